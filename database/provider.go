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

// GetProvider returns a storage provider by its address
func (d *Database) GetProvider(
	address []byte,
	txn *Txn,
) (*models.Provider, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	ret, err := d.metadata.GetProvider(address, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrProviderNotFound
	}
	return ret, nil
}

// GetProviders returns known storage providers in registration order,
// reversed when desc is set
func (d *Database) GetProviders(
	desc bool,
	offset int,
	limit int,
	txn *Txn,
) ([]models.Provider, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.GetProviders(desc, offset, limit, txn.Metadata())
}

// CountProviders returns the number of known storage providers
func (d *Database) CountProviders(
	txn *Txn,
) (int64, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.CountProviders(txn.Metadata())
}

// SetProvider stores a storage provider
func (d *Database) SetProvider(
	provider *models.Provider,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetProvider(provider, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}
