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

package badger

import (
	"math/big"

	"github.com/blinklabs-io/proofhound/database/types"
)

// The timestamp lives at a fixed key as minimal big-endian bytes, the same
// encoding the GCS store wraps in encryption
const commitTimestampBlobKey = "metadata_commit_timestamp"

// GetCommitTimestamp returns the stored commit timestamp. Returns
// types.ErrBlobKeyNotFound when none has been recorded yet
func (b *Store) GetCommitTimestamp() (int64, error) {
	txn := b.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	raw, err := b.Get(txn, []byte(commitTimestampBlobKey))
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(raw).Int64(), nil
}

// SetCommitTimestamp stores the commit timestamp within the given
// transaction
func (b *Store) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	raw := new(big.Int).SetInt64(timestamp).Bytes()
	return b.Set(txn, []byte(commitTimestampBlobKey), raw)
}
