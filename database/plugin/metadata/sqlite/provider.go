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

// GetProvider returns the storage provider with the given address, or nil
// when no such provider exists
func (d *Store) GetProvider(
	address []byte,
	txn types.Txn,
) (*models.Provider, error) {
	ret := &models.Provider{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("address = ?", address).First(ret)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetProviders returns known storage providers in registration order,
// reversed when desc is set
func (d *Store) GetProviders(
	desc bool,
	offset int,
	limit int,
	txn types.Txn,
) ([]models.Provider, error) {
	ret := []models.Provider{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	order := "id ASC"
	if desc {
		order = "id DESC"
	}
	query := db.Order(order)
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

// CountProviders returns the number of known storage providers
func (d *Store) CountProviders(
	txn types.Txn,
) (int64, error) {
	var ret int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.Provider{}).Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// SetProvider stores a storage provider, replacing any existing row with
// the same address
func (d *Store) SetProvider(
	provider *models.Provider,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if provider.ID != 0 {
		if result := db.Save(provider); result.Error != nil {
			return result.Error
		}
		return nil
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		UpdateAll: true,
	}).Create(provider)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
