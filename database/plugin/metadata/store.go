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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/plugin"
	"github.com/blinklabs-io/proofhound/database/types"
	"gorm.io/gorm"
)

// MetadataStore is the interface for all metadata storage methods
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Data sets
	GetDataSet(
		uint64, // setId
		types.Txn,
	) (*models.DataSet, error)
	GetDataSets(
		bool, // includeDeleted
		bool, // desc
		int, // offset
		int, // limit
		types.Txn,
	) ([]models.DataSet, error)
	CountDataSets(
		bool, // includeDeleted
		types.Txn,
	) (int64, error)
	SetDataSet(*models.DataSet, types.Txn) error

	// Pieces
	GetPiece(
		uint64, // setId
		uint64, // pieceId
		types.Txn,
	) (*models.Piece, error)
	GetPieces(
		uint64, // setId
		bool, // includeRemoved
		bool, // desc
		int, // offset
		int, // limit
		types.Txn,
	) ([]models.Piece, error)
	CountPieces(
		uint64, // setId
		bool, // includeRemoved
		types.Txn,
	) (int64, error)
	GetScheduledRemovals(
		uint64, // setId
		types.Txn,
	) ([]models.Piece, error)
	SetPiece(*models.Piece, types.Txn) error

	// Providers
	GetProvider(
		[]byte, // address
		types.Txn,
	) (*models.Provider, error)
	GetProviders(
		bool, // desc
		int, // offset
		int, // limit
		types.Txn,
	) ([]models.Provider, error)
	CountProviders(types.Txn) (int64, error)
	SetProvider(*models.Provider, types.Txn) error

	// Selection tree nodes
	GetSumTreeNode(
		uint64, // treeId
		uint64, // nodeIndex
		types.Txn,
	) (*models.SumTreeNode, error)
	SetSumTreeNode(*models.SumTreeNode, types.Txn) error
	DeleteSumTreeNodes(
		uint64, // treeId
		types.Txn,
	) error

	// Proofs
	GetProof(
		uint, // id
		types.Txn,
	) (*models.Proof, error)
	GetProofs(
		uint64, // setId
		bool, // desc
		int, // offset
		int, // limit
		types.Txn,
	) ([]models.Proof, error)
	CountProofs(
		uint64, // setId
		types.Txn,
	) (int64, error)
	SetProof(*models.Proof, types.Txn) error

	// Faults
	GetFaults(
		uint64, // setId
		bool, // desc
		int, // offset
		int, // limit
		types.Txn,
	) ([]models.Fault, error)
	CountFaults(
		uint64, // setId
		types.Txn,
	) (int64, error)
	SetFault(*models.Fault, types.Txn) error

	// Sync cursor
	GetSyncCursor(types.Txn) (*models.SyncCursor, error)
	SetSyncCursor(*models.SyncCursor, types.Txn) error
}

// New returns the requested metadata store plugin after starting it
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	store, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return store, nil
}
