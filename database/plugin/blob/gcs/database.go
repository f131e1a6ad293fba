// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	// defaultOpTimeout bounds individual storage operations when no
	// explicit timeout is configured
	defaultOpTimeout = 60 * time.Second

	// startupTimeout bounds client creation during Start()
	startupTimeout = 30 * time.Second
)

// Store keeps raw event blobs in a Google Cloud Storage bucket
type Store struct {
	promRegistry    prometheus.Registerer
	startupCtx      context.Context
	logger          *slog.Logger
	client          *storage.Client
	bucket          *storage.BucketHandle
	startupCancel   context.CancelFunc
	opsTotal        prometheus.Counter
	bytesTotal      prometheus.Counter
	bucketName      string
	credentialsFile string
	timeout         time.Duration
}

// gcsTxn satisfies types.Txn. Operations are not atomic but respect the
// transaction interface used by the database layer
type gcsTxn struct {
	store     *Store
	finished  bool
	readWrite bool
}

// NewWithOptions creates a new store. The client is not created until
// Start()
func NewWithOptions(opts ...StoreOption) (*Store, error) {
	s := &Store{
		opsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: gcsMetricNamePrefix + "ops_total",
			Help: "Total number of GCS blob operations",
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: gcsMetricNamePrefix + "bytes_total",
			Help: "Total bytes read and written by GCS blob operations",
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "database")
	return s, nil
}

// Start implements the plugin.Plugin interface. It validates the
// configuration and creates the storage client
func (d *Store) Start() error {
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(d.credentialsFile); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)

	clientOpts := []option.ClientOption{
		storage.WithDisabledClientMetrics(),
	}
	if d.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.credentialsFile),
		)
	}
	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		cancel()
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}

	d.client = client
	d.bucket = client.Bucket(d.bucketName)
	d.startupCtx = ctx
	d.startupCancel = cancel

	if err := d.init(); err != nil {
		d.Close()
		return err
	}
	return nil
}

func (d *Store) init() error {
	if d.promRegistry != nil {
		d.registerBlobMetrics()
	}
	// Client creation is done, so release the startup context
	if d.startupCancel != nil {
		d.startupCancel()
		d.startupCancel = nil
	}
	d.startupCtx = context.Background()
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *Store) Stop() error {
	return d.Close()
}

// Close closes the GCS client
func (d *Store) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

// ValidateCredentials checks that the configured credentials file exists.
// An empty path is allowed and falls back to application default
// credentials
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("failed to read GCS credentials file: %w", err)
	}
	return nil
}

// Client returns the GCS client
func (d *Store) Client() *storage.Client {
	return d.client
}

// Bucket returns the bucket handle
func (d *Store) Bucket() *storage.BucketHandle {
	return d.bucket
}

func (d *Store) opContext() (context.Context, context.CancelFunc) {
	timeout := d.timeout
	if timeout == 0 {
		timeout = defaultOpTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// NewTransaction returns a lightweight transaction wrapper
func (d *Store) NewTransaction(readWrite bool) types.Txn {
	return &gcsTxn{store: d, readWrite: readWrite}
}

func (t *gcsTxn) assertWritable() error {
	if !t.readWrite {
		return errors.New("transaction is read-only")
	}
	return nil
}

func (d *Store) validateTxn(txn types.Txn) (*gcsTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*gcsTxn)
	if !ok || t.store != d {
		return nil, types.ErrTxnWrongType
	}
	if t.finished {
		return nil, errors.New("transaction already finished")
	}
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return t, nil
}

func (t *gcsTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return nil
}

func (t *gcsTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return nil
}

// Get retrieves a value within a transaction
func (d *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	if _, err := d.validateTxn(txn); err != nil {
		return nil, err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	data, err := d.getInternal(ctx, string(key))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores a key-value pair within a transaction
func (d *Store) Set(txn types.Txn, key, val []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if err := t.assertWritable(); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	return d.Put(ctx, string(key), val)
}

// Delete removes a key within a transaction
func (d *Store) Delete(txn types.Txn, key []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if err := t.assertWritable(); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	if err := d.bucket.Object(string(key)).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return types.ErrBlobKeyNotFound
		}
		d.logger.Error("gcs delete failed", "key", string(key), "error", err)
		return err
	}
	d.opsTotal.Inc()
	return nil
}

// NewIterator creates an iterator within a transaction. The object list is
// fetched up front, so items must only be accessed while that transaction
// is still active
func (d *Store) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	if _, err := d.validateTxn(txn); err != nil {
		return &gcsErrorIterator{err: err}
	}
	keys, err := d.listKeys(opts)
	if err != nil {
		d.logger.Error("gcs list failed", "error", err)
		return &gcsIterator{
			store:   d,
			keys:    []string{},
			reverse: opts.Reverse,
			err:     err,
			txn:     txn,
		}
	}
	return &gcsIterator{store: d, keys: keys, reverse: opts.Reverse, txn: txn}
}

func (d *Store) listKeys(
	opts types.BlobIteratorOptions,
) ([]string, error) {
	ctx, cancel := d.opContext()
	defer cancel()
	query := &storage.Query{}
	if len(opts.Prefix) > 0 {
		query.Prefix = string(opts.Prefix)
	}
	objects := d.bucket.Objects(ctx, query)
	keys := make([]string, 0)
	for {
		attrs, err := objects.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
	sort.Strings(keys)
	if opts.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return keys, nil
}

type gcsIterator struct {
	store   *Store
	keys    []string
	idx     int
	reverse bool
	err     error
	txn     types.Txn
}

func (it *gcsIterator) Rewind() {
	it.idx = 0
}

func (it *gcsIterator) Seek(prefix []byte) {
	target := string(prefix)
	it.idx = len(it.keys)
	if it.reverse {
		for i, key := range it.keys {
			if key <= target {
				it.idx = i
				break
			}
		}
		return
	}
	for i, key := range it.keys {
		if key >= target {
			it.idx = i
			break
		}
	}
}

func (it *gcsIterator) Valid() bool {
	return it.err == nil && it.idx < len(it.keys)
}

func (it *gcsIterator) ValidForPrefix(prefix []byte) bool {
	if !it.Valid() {
		return false
	}
	return strings.HasPrefix(it.keys[it.idx], string(prefix))
}

func (it *gcsIterator) Next() {
	if it.idx < len(it.keys) {
		it.idx++
	}
}

func (it *gcsIterator) Item() types.BlobItem {
	if !it.Valid() {
		return nil
	}
	return &gcsItem{store: it.store, key: it.keys[it.idx], txn: it.txn}
}

// Err surfaces any error from listing the bucket
func (it *gcsIterator) Err() error {
	return it.err
}

func (it *gcsIterator) Close() {}

// gcsErrorIterator is returned when an iterator cannot be created. It
// yields no items and reports the creation error from Err()
type gcsErrorIterator struct {
	err error
}

func (it *gcsErrorIterator) Rewind()                      {}
func (it *gcsErrorIterator) Seek(prefix []byte)           {}
func (it *gcsErrorIterator) Valid() bool                  { return false }
func (it *gcsErrorIterator) ValidForPrefix(p []byte) bool { return false }
func (it *gcsErrorIterator) Next()                        {}
func (it *gcsErrorIterator) Item() types.BlobItem         { return nil }
func (it *gcsErrorIterator) Close()                       {}
func (it *gcsErrorIterator) Err() error                   { return it.err }

type gcsItem struct {
	store *Store
	key   string
	txn   types.Txn
}

func (i *gcsItem) Key() []byte {
	return []byte(i.key)
}

func (i *gcsItem) ValueCopy(dst []byte) ([]byte, error) {
	data, err := i.store.Get(i.txn, []byte(i.key))
	if err != nil {
		return nil, err
	}
	if dst != nil {
		return append(dst[:0], data...), nil
	}
	return data, nil
}

// getInternal reads the value at key
func (d *Store) getInternal(
	ctx context.Context,
	key string,
) ([]byte, error) {
	r, err := d.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotExist) {
			d.logger.Error("gcs get failed", "key", key, "error", err)
		}
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		d.logger.Error("gcs read failed", "key", key, "error", err)
		return nil, err
	}
	d.opsTotal.Inc()
	d.bytesTotal.Add(float64(len(data)))
	d.logger.Debug("gcs get ok", "key", key, "bytes", len(data))
	return data, nil
}

// Put writes a value to key
func (d *Store) Put(ctx context.Context, key string, value []byte) error {
	w := d.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		d.logger.Error("gcs put failed", "key", key, "error", err)
		return err
	}
	if err := w.Close(); err != nil {
		d.logger.Error("gcs put failed", "key", key, "error", err)
		return err
	}
	d.opsTotal.Inc()
	d.bytesTotal.Add(float64(len(value)))
	d.logger.Debug("gcs put ok", "key", key, "bytes", len(value))
	return nil
}
