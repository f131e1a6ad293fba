// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"github.com/blinklabs-io/proofhound/database"
	"github.com/blinklabs-io/proofhound/database/models"
)

// StoreAdapter wraps a database handle to implement the Store interface.
// Every query runs in its own read transaction.
type StoreAdapter struct {
	db *database.Database
}

// NewStoreAdapter creates a StoreAdapter that queries the given database.
// Panics if db is nil.
func NewStoreAdapter(db *database.Database) *StoreAdapter {
	if db == nil {
		panic("NewStoreAdapter: database must not be nil")
	}
	return &StoreAdapter{db: db}
}

// DataSet returns a data set by its set ID.
func (a *StoreAdapter) DataSet(setId uint64) (*models.DataSet, error) {
	return a.db.GetDataSet(setId, nil)
}

// DataSets returns known data sets ordered by set ID.
func (a *StoreAdapter) DataSets(
	includeDeleted bool,
	desc bool,
	offset int,
	limit int,
) ([]models.DataSet, error) {
	return a.db.GetDataSets(includeDeleted, desc, offset, limit, nil)
}

// CountDataSets returns the number of known data sets.
func (a *StoreAdapter) CountDataSets(includeDeleted bool) (int64, error) {
	return a.db.CountDataSets(includeDeleted, nil)
}

// Piece returns a piece by its data set ID and piece ID.
func (a *StoreAdapter) Piece(
	setId uint64,
	pieceId uint64,
) (*models.Piece, error) {
	return a.db.GetPiece(setId, pieceId, nil)
}

// Pieces returns the pieces of a data set ordered by piece ID.
func (a *StoreAdapter) Pieces(
	setId uint64,
	includeRemoved bool,
	desc bool,
	offset int,
	limit int,
) ([]models.Piece, error) {
	return a.db.GetPieces(setId, includeRemoved, desc, offset, limit, nil)
}

// CountPieces returns the number of pieces in a data set.
func (a *StoreAdapter) CountPieces(
	setId uint64,
	includeRemoved bool,
) (int64, error) {
	return a.db.CountPieces(setId, includeRemoved, nil)
}

// Proofs returns the proofs recorded for a data set.
func (a *StoreAdapter) Proofs(
	setId uint64,
	desc bool,
	offset int,
	limit int,
) ([]models.Proof, error) {
	return a.db.GetProofs(setId, desc, offset, limit, nil)
}

// CountProofs returns the number of proofs recorded for a data set.
func (a *StoreAdapter) CountProofs(setId uint64) (int64, error) {
	return a.db.CountProofs(setId, nil)
}

// Provider returns a storage provider by its address.
func (a *StoreAdapter) Provider(address []byte) (*models.Provider, error) {
	return a.db.GetProvider(address, nil)
}

// Providers returns known storage providers in registration order.
func (a *StoreAdapter) Providers(
	desc bool,
	offset int,
	limit int,
) ([]models.Provider, error) {
	return a.db.GetProviders(desc, offset, limit, nil)
}

// CountProviders returns the number of known storage providers.
func (a *StoreAdapter) CountProviders() (int64, error) {
	return a.db.CountProviders(nil)
}

// Faults returns the fault records for a data set.
func (a *StoreAdapter) Faults(
	setId uint64,
	desc bool,
	offset int,
	limit int,
) ([]models.Fault, error) {
	return a.db.GetFaults(setId, desc, offset, limit, nil)
}

// CountFaults returns the number of fault records for a data set.
func (a *StoreAdapter) CountFaults(setId uint64) (int64, error) {
	return a.db.CountFaults(setId, nil)
}

// SyncCursor returns the last fully processed event log position.
func (a *StoreAdapter) SyncCursor() (*models.SyncCursor, error) {
	return a.db.GetSyncCursor(nil)
}
