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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetPiece returns the piece with the given piece ID within a data set, or
// nil when no such piece exists
func (d *Store) GetPiece(
	setId uint64,
	pieceId uint64,
	txn types.Txn,
) (*models.Piece, error) {
	ret := &models.Piece{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("set_id = ? AND piece_id = ?", setId, pieceId).
		First(ret)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetPieces returns the pieces of a data set ordered by piece ID. Removed
// pieces are excluded unless includeRemoved is set
func (d *Store) GetPieces(
	setId uint64,
	includeRemoved bool,
	desc bool,
	offset int,
	limit int,
	txn types.Txn,
) ([]models.Piece, error) {
	ret := []models.Piece{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	order := "piece_id ASC"
	if desc {
		order = "piece_id DESC"
	}
	query := db.Where("set_id = ?", setId).Order(order)
	if !includeRemoved {
		query = query.Where("removed = ?", false)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CountPieces returns the number of pieces in a data set. Removed pieces are
// excluded unless includeRemoved is set
func (d *Store) CountPieces(
	setId uint64,
	includeRemoved bool,
	txn types.Txn,
) (int64, error) {
	var ret int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	query := db.Model(&models.Piece{}).Where("set_id = ?", setId)
	if !includeRemoved {
		query = query.Where("removed = ?", false)
	}
	result := query.Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// GetScheduledRemovals returns the pieces of a data set with a pending
// removal that has not yet been applied
func (d *Store) GetScheduledRemovals(
	setId uint64,
	txn types.Txn,
) ([]models.Piece, error) {
	ret := []models.Piece{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.
		Where(
			"set_id = ? AND removal_scheduled = ? AND removed = ?",
			setId,
			true,
			false,
		).
		Order("piece_id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetPiece stores a piece, replacing any existing row with the same set ID
// and piece ID
func (d *Store) SetPiece(
	piece *models.Piece,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if piece.ID != 0 {
		if result := db.Save(piece); result.Error != nil {
			return result.Error
		}
		return nil
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "set_id"},
			{Name: "piece_id"},
		},
		UpdateAll: true,
	}).Create(piece)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
