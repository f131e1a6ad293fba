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
	"github.com/blinklabs-io/proofhound/database/models"
)

// GetPiece returns a piece by its data set ID and piece ID
func (d *Database) GetPiece(
	setId uint64,
	pieceId uint64,
	txn *Txn,
) (*models.Piece, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	ret, err := d.metadata.GetPiece(setId, pieceId, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrPieceNotFound
	}
	return ret, nil
}

// GetPieces returns the pieces of a data set ordered by piece ID, descending
// when desc is set
func (d *Database) GetPieces(
	setId uint64,
	includeRemoved bool,
	desc bool,
	offset int,
	limit int,
	txn *Txn,
) ([]models.Piece, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.GetPieces(
		setId,
		includeRemoved,
		desc,
		offset,
		limit,
		txn.Metadata(),
	)
}

// CountPieces returns the number of pieces in a data set
func (d *Database) CountPieces(
	setId uint64,
	includeRemoved bool,
	txn *Txn,
) (int64, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.CountPieces(setId, includeRemoved, txn.Metadata())
}

// GetScheduledRemovals returns the pieces of a data set with a pending
// removal that has not yet been applied
func (d *Database) GetScheduledRemovals(
	setId uint64,
	txn *Txn,
) ([]models.Piece, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.GetScheduledRemovals(setId, txn.Metadata())
}

// SetPiece stores a piece
func (d *Database) SetPiece(
	piece *models.Piece,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetPiece(piece, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}
