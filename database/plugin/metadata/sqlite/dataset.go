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

// GetDataSet returns the data set with the given set ID, or nil when no
// such data set exists
func (d *Store) GetDataSet(
	setId uint64,
	txn types.Txn,
) (*models.DataSet, error) {
	ret := &models.DataSet{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("set_id = ?", setId).First(ret)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetDataSets returns known data sets ordered by set ID. Deleted data sets
// are excluded unless includeDeleted is set
func (d *Store) GetDataSets(
	includeDeleted bool,
	desc bool,
	offset int,
	limit int,
	txn types.Txn,
) ([]models.DataSet, error) {
	ret := []models.DataSet{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	order := "set_id ASC"
	if desc {
		order = "set_id DESC"
	}
	query := db.Order(order)
	if !includeDeleted {
		query = query.Where("deleted = ?", false)
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

// CountDataSets returns the number of known data sets. Deleted data sets are
// excluded unless includeDeleted is set
func (d *Store) CountDataSets(
	includeDeleted bool,
	txn types.Txn,
) (int64, error) {
	var ret int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	query := db.Model(&models.DataSet{})
	if !includeDeleted {
		query = query.Where("deleted = ?", false)
	}
	result := query.Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// SetDataSet stores a data set, replacing any existing row with the same
// set ID
func (d *Store) SetDataSet(
	dataSet *models.DataSet,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if dataSet.ID != 0 {
		if result := db.Save(dataSet); result.Error != nil {
			return result.Error
		}
		return nil
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "set_id"}},
		UpdateAll: true,
	}).Create(dataSet)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
