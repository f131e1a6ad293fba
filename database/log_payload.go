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

package database

import (
	"errors"

	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/fxamacker/cbor/v2"
)

// LogPayload is the raw content of a contract event log as archived in the
// blob store. Archived payloads are the replay source for rebuilding the
// metadata store from scratch
type LogPayload struct {
	_           struct{} `cbor:",toarray"`
	Address     []byte
	Topics      [][]byte
	Data        []byte
	TxHash      []byte
	TxInput     []byte
	BlockHash   []byte
	BlockNumber uint64
	LogIndex    uint32
}

// SetLogPayload archives a raw log payload in the blob store, keyed by block
// number and log index
func (d *Database) SetLogPayload(
	payload *LogPayload,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.BlobTransaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		return types.ErrNilTxn
	}
	blob := txn.DB().Blob()
	if blob == nil {
		return types.ErrBlobStoreUnavailable
	}
	key := types.LogBlobKey(payload.BlockNumber, payload.LogIndex)
	payloadBytes, err := cbor.Marshal(payload)
	if err != nil {
		return err
	}
	if err := blob.Set(blobTxn, key, payloadBytes); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetLogPayload returns an archived log payload, or nil when no payload has
// been archived for the given block number and log index
func (d *Database) GetLogPayload(
	blockNumber uint64,
	logIndex uint32,
	txn *Txn,
) (*LogPayload, error) {
	if txn == nil {
		txn = d.BlobTransaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		return nil, types.ErrNilTxn
	}
	blob := txn.DB().Blob()
	if blob == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	key := types.LogBlobKey(blockNumber, logIndex)
	payloadBytes, err := blob.Get(blobTxn, key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ret := &LogPayload{}
	if err := cbor.Unmarshal(payloadBytes, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetLogPayloads returns every archived log payload for a block in log index
// order
func (d *Database) GetLogPayloads(
	blockNumber uint64,
	txn *Txn,
) ([]LogPayload, error) {
	if txn == nil {
		txn = d.BlobTransaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		return nil, types.ErrNilTxn
	}
	blob := txn.DB().Blob()
	if blob == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	prefix := types.LogBlobBlockPrefix(blockNumber)
	it := blob.NewIterator(blobTxn, types.BlobIteratorOptions{
		Prefix: prefix,
	})
	defer it.Close()
	ret := []LogPayload{}
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		payloadBytes, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		tmpPayload := LogPayload{}
		if err := cbor.Unmarshal(payloadBytes, &tmpPayload); err != nil {
			return nil, err
		}
		ret = append(ret, tmpPayload)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
