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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// Errors shared across the blob and metadata store implementations
var (
	// ErrBlobKeyNotFound is returned by blob operations when a key is missing
	ErrBlobKeyNotFound = errors.New("blob key not found")
	// ErrTxnWrongType is returned when a transaction has the wrong type
	ErrTxnWrongType = errors.New("invalid transaction type")
	// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
	ErrNilTxn = errors.New("nil transaction")
	// ErrNoStoreAvailable is returned when no blob or metadata store is available
	ErrNoStoreAvailable = errors.New("no store available")
	// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
	ErrBlobStoreUnavailable = errors.New("blob store unavailable")
)

// BigInt stores an arbitrary-precision integer as a decimal string column.
// Weights and on-chain quantities are 256-bit values that do not fit the
// native integer column types.
//
//nolint:recvcheck
type BigInt struct {
	*big.Int
}

func (b BigInt) Value() (driver.Value, error) {
	if b.Int == nil {
		return "0", nil
	}
	return b.String(), nil
}

func (b *BigInt) Scan(val any) error {
	if b.Int == nil {
		b.Int = new(big.Int)
	}
	v, ok := val.(string)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if _, ok := b.SetString(v, 10); !ok {
		return fmt.Errorf("failed to set big.Int value from string: %s", v)
	}
	return nil
}

// Uint64 stores a uint64 as a decimal string column. SQL integer columns
// are signed, so values above math.MaxInt64 would not round-trip.
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	v, ok := val.(string)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmpUint, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(tmpUint)
	return nil
}

// BlobItem is a single key/value pair yielded by a BlobIterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator provides key iteration over the blob store. Items must only
// be accessed while the transaction the iterator was created from is still
// active, and implementations may enforce this at access time.
type BlobIterator interface {
	Rewind()
	Seek(prefix []byte)
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

// BlobIteratorOptions configures blob iterator creation
type BlobIteratorOptions struct {
	Prefix  []byte
	Reverse bool
}

// Txn is the commit/rollback handle exposed by an individual store. The
// database layer coordinates one of these per participating store.
type Txn interface {
	Commit() error
	Rollback() error
}
