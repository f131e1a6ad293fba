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

// GetFaults returns the fault records for a data set in recording order,
// most recent first when desc is set
func (d *Database) GetFaults(
	setId uint64,
	desc bool,
	offset int,
	limit int,
	txn *Txn,
) ([]models.Fault, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.GetFaults(setId, desc, offset, limit, txn.Metadata())
}

// CountFaults returns the number of fault records for a data set
func (d *Database) CountFaults(
	setId uint64,
	txn *Txn,
) (int64, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.CountFaults(setId, txn.Metadata())
}

// SetFault stores a fault record
func (d *Database) SetFault(
	fault *models.Fault,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetFault(fault, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}
