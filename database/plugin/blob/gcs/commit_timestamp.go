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
	"encoding/json"
	"errors"
	"io"
	"math/big"

	"cloud.google.com/go/storage"
	dbsops "github.com/blinklabs-io/proofhound/database/sops"
	"github.com/blinklabs-io/proofhound/database/types"
)

const commitTimestampBlobKey = "metadata_commit_timestamp"

// GetCommitTimestamp returns the stored commit timestamp, decrypting it
// with SOPS. Values written before encryption was introduced are read as
// raw bytes and rewritten encrypted. Returns types.ErrBlobKeyNotFound when
// none has been recorded yet
func (b *Store) GetCommitTimestamp() (int64, error) {
	ctx, cancel := b.opContext()
	defer cancel()

	r, err := b.bucket.Object(commitTimestampBlobKey).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, types.ErrBlobKeyNotFound
		}
		b.logger.Error("failed to read commit timestamp", "error", err)
		return 0, err
	}
	defer r.Close()

	ciphertext, err := io.ReadAll(r)
	if err != nil {
		b.logger.Error("failed to read commit timestamp object", "error", err)
		return 0, err
	}

	plaintext, err := dbsops.Decrypt(ciphertext)
	if err != nil {
		// A pre-encryption value is raw big-endian bytes, at most 8 of
		// them, while SOPS output is JSON
		if !json.Valid(ciphertext) && len(ciphertext) <= 8 {
			ts := new(big.Int).SetBytes(ciphertext).Int64()
			b.logger.Warn(
				"commit timestamp stored plaintext in GCS, migrating to SOPS encryption",
				"error", err,
			)
			if migrateErr := b.writeCommitTimestamp(ctx, ts); migrateErr != nil {
				b.logger.Error(
					"failed to migrate plaintext commit timestamp",
					"error", migrateErr,
				)
			}
			return ts, nil
		}
		b.logger.Error("failed to decrypt commit timestamp", "error", err)
		return 0, err
	}

	return new(big.Int).SetBytes(plaintext).Int64(), nil
}

// SetCommitTimestamp encrypts and stores the commit timestamp within the
// given transaction
func (b *Store) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	t, err := b.validateTxn(txn)
	if err != nil {
		return err
	}
	if err := t.assertWritable(); err != nil {
		return err
	}
	ctx, cancel := b.opContext()
	defer cancel()
	return b.writeCommitTimestamp(ctx, timestamp)
}

func (b *Store) writeCommitTimestamp(
	ctx context.Context,
	timestamp int64,
) error {
	raw := new(big.Int).SetInt64(timestamp).Bytes()

	ciphertext, err := dbsops.Encrypt(raw)
	if err != nil {
		b.logger.Error("failed to encrypt commit timestamp", "error", err)
		return err
	}

	w := b.bucket.Object(commitTimestampBlobKey).NewWriter(ctx)
	if _, err := w.Write(ciphertext); err != nil {
		_ = w.Close()
		b.logger.Error("failed to write commit timestamp", "error", err)
		return err
	}
	if err := w.Close(); err != nil {
		b.logger.Error("failed to close commit timestamp writer", "error", err)
		return err
	}
	b.logger.Info("commit timestamp written to GCS", "timestamp", timestamp)
	return nil
}
