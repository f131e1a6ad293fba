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

// GetDataSet returns a data set by its set ID
func (d *Database) GetDataSet(
	setId uint64,
	txn *Txn,
) (*models.DataSet, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	ret, err := d.metadata.GetDataSet(setId, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrDataSetNotFound
	}
	return ret, nil
}

// GetDataSets returns known data sets ordered by set ID, descending when
// desc is set
func (d *Database) GetDataSets(
	includeDeleted bool,
	desc bool,
	offset int,
	limit int,
	txn *Txn,
) ([]models.DataSet, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.GetDataSets(
		includeDeleted,
		desc,
		offset,
		limit,
		txn.Metadata(),
	)
}

// CountDataSets returns the number of known data sets
func (d *Database) CountDataSets(
	includeDeleted bool,
	txn *Txn,
) (int64, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.CountDataSets(includeDeleted, txn.Metadata())
}

// SetDataSet stores a data set
func (d *Database) SetDataSet(
	dataSet *models.DataSet,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetDataSet(dataSet, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}
