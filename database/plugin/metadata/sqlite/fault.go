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
	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
)

// GetFaults returns the fault records for a data set in recording order,
// most recent first when desc is set
func (d *Store) GetFaults(
	setId uint64,
	desc bool,
	offset int,
	limit int,
	txn types.Txn,
) ([]models.Fault, error) {
	ret := []models.Fault{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	order := "id ASC"
	if desc {
		order = "id DESC"
	}
	query := db.Where("set_id = ?", setId).Order(order)
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

// CountFaults returns the number of fault records for a data set
func (d *Store) CountFaults(
	setId uint64,
	txn types.Txn,
) (int64, error) {
	var ret int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.Fault{}).
		Where("set_id = ?", setId).
		Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// SetFault stores a fault record
func (d *Store) SetFault(
	fault *models.Fault,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(fault); result.Error != nil {
		return result.Error
	}
	return nil
}
