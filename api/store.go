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
	"github.com/blinklabs-io/proofhound/database/models"
)

// Store is the interface that the API server uses to query indexed state.
// This decouples the HTTP server from the concrete database handle and
// enables testing with mock implementations.
type Store interface {
	// DataSet returns a data set by its set ID
	DataSet(setId uint64) (*models.DataSet, error)

	// DataSets returns known data sets ordered by set ID
	DataSets(
		includeDeleted bool,
		desc bool,
		offset int,
		limit int,
	) ([]models.DataSet, error)

	// CountDataSets returns the number of known data sets
	CountDataSets(includeDeleted bool) (int64, error)

	// Piece returns a piece by its data set ID and piece ID
	Piece(setId uint64, pieceId uint64) (*models.Piece, error)

	// Pieces returns the pieces of a data set ordered by piece ID
	Pieces(
		setId uint64,
		includeRemoved bool,
		desc bool,
		offset int,
		limit int,
	) ([]models.Piece, error)

	// CountPieces returns the number of pieces in a data set
	CountPieces(setId uint64, includeRemoved bool) (int64, error)

	// Proofs returns the proofs recorded for a data set
	Proofs(
		setId uint64,
		desc bool,
		offset int,
		limit int,
	) ([]models.Proof, error)

	// CountProofs returns the number of proofs recorded for a data set
	CountProofs(setId uint64) (int64, error)

	// Provider returns a storage provider by its address
	Provider(address []byte) (*models.Provider, error)

	// Providers returns known storage providers in registration order
	Providers(desc bool, offset int, limit int) ([]models.Provider, error)

	// CountProviders returns the number of known storage providers
	CountProviders() (int64, error)

	// Faults returns the fault records for a data set
	Faults(
		setId uint64,
		desc bool,
		offset int,
		limit int,
	) ([]models.Fault, error)

	// CountFaults returns the number of fault records for a data set
	CountFaults(setId uint64) (int64, error)

	// SyncCursor returns the last fully processed event log position, or
	// nil when no events have been processed yet
	SyncCursor() (*models.SyncCursor, error)
}
