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
)

// GetProof returns a proof and its challenges by row ID, or nil when no
// such proof exists
func (d *Store) GetProof(
	id uint,
	txn types.Txn,
) (*models.Proof, error) {
	ret := &models.Proof{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.
		Preload("Challenges", func(db *gorm.DB) *gorm.DB {
			return db.Order("proof_index ASC")
		}).
		Where("id = ?", id).
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

// GetProofs returns the proofs recorded for a data set in recording order,
// most recent first when desc is set, with their challenges preloaded
func (d *Store) GetProofs(
	setId uint64,
	desc bool,
	offset int,
	limit int,
	txn types.Txn,
) ([]models.Proof, error) {
	ret := []models.Proof{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	order := "id ASC"
	if desc {
		order = "id DESC"
	}
	query := db.
		Preload("Challenges", func(db *gorm.DB) *gorm.DB {
			return db.Order("proof_index ASC")
		}).
		Where("set_id = ?", setId).
		Order(order)
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

// CountProofs returns the number of proofs recorded for a data set
func (d *Store) CountProofs(
	setId uint64,
	txn types.Txn,
) (int64, error) {
	var ret int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.Proof{}).
		Where("set_id = ?", setId).
		Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// SetProof stores a proof along with its challenges
func (d *Store) SetProof(
	proof *models.Proof,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(proof); result.Error != nil {
		return result.Error
	}
	return nil
}
