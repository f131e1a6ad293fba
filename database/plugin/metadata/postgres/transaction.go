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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"errors"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	syncCursorRowId = 1
)

// dbFromTxn returns d.DB() only when txn is nil, unwraps known *postgresTxn or provider.MetadataTxn() when available, and returns nil for unrecognized txn types so callers can detect errors
func (d *Store) dbFromTxn(txn types.Txn) *gorm.DB {
	if txn == nil {
		return d.DB()
	}
	if stx, ok := txn.(*postgresTxn); ok && stx != nil {
		return stx.db
	}
	if provider, ok := txn.(interface{ MetadataTxn() *gorm.DB }); ok {
		if db := provider.MetadataTxn(); db != nil {
			return db
		}
	}
	return nil // Return nil for unrecognized txn types to allow callers to detect errors
}

// resolveDB returns the *gorm.DB for the given transaction, or d.DB() if txn is nil.
// Returns nil, ErrTxnWrongType if txn is non-nil but not the expected type.
func (d *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if stx, ok := txn.(*postgresTxn); ok {
		if stx != nil && stx.beginErr != nil {
			return nil, stx.beginErr
		}
	}
	if txn == nil {
		return d.DB(), nil
	}
	db := d.dbFromTxn(txn)
	if db == nil {
		return nil, types.ErrTxnWrongType
	}
	return db, nil
}

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

// GetPiece returns the piece with the given piece ID within a data set, or
// nil when no such piece exists
func (d *Store) GetPiece(
	setId uint64,
	pieceId uint64,
	txn types.Txn,
) (*models.Piece, error) {
	ret := &models.Piece{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("set_id = ? AND piece_id = ?", setId, pieceId).
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

// GetPieces returns the pieces of a data set ordered by piece ID. Removed
// pieces are excluded unless includeRemoved is set
func (d *Store) GetPieces(
	setId uint64,
	includeRemoved bool,
	desc bool,
	offset int,
	limit int,
	txn types.Txn,
) ([]models.Piece, error) {
	ret := []models.Piece{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	order := "piece_id ASC"
	if desc {
		order = "piece_id DESC"
	}
	query := db.Where("set_id = ?", setId).Order(order)
	if !includeRemoved {
		query = query.Where("removed = ?", false)
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

// CountPieces returns the number of pieces in a data set. Removed pieces are
// excluded unless includeRemoved is set
func (d *Store) CountPieces(
	setId uint64,
	includeRemoved bool,
	txn types.Txn,
) (int64, error) {
	var ret int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	query := db.Model(&models.Piece{}).Where("set_id = ?", setId)
	if !includeRemoved {
		query = query.Where("removed = ?", false)
	}
	result := query.Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// GetScheduledRemovals returns the pieces of a data set with a pending
// removal that has not yet been applied
func (d *Store) GetScheduledRemovals(
	setId uint64,
	txn types.Txn,
) ([]models.Piece, error) {
	ret := []models.Piece{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.
		Where(
			"set_id = ? AND removal_scheduled = ? AND removed = ?",
			setId,
			true,
			false,
		).
		Order("piece_id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetPiece stores a piece, replacing any existing row with the same set ID
// and piece ID
func (d *Store) SetPiece(
	piece *models.Piece,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if piece.ID != 0 {
		if result := db.Save(piece); result.Error != nil {
			return result.Error
		}
		return nil
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "set_id"},
			{Name: "piece_id"},
		},
		UpdateAll: true,
	}).Create(piece)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

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

// GetSumTreeNode returns a selection tree node by tree ID and node index,
// or nil when the node has never been written
func (d *Store) GetSumTreeNode(
	treeId uint64,
	nodeIndex uint64,
	txn types.Txn,
) (*models.SumTreeNode, error) {
	ret := &models.SumTreeNode{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("tree_id = ? AND node_index = ?", treeId, nodeIndex).
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

// SetSumTreeNode stores a selection tree node, replacing any existing row
// with the same tree ID and node index
func (d *Store) SetSumTreeNode(
	node *models.SumTreeNode,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if node.ID != 0 {
		if result := db.Save(node); result.Error != nil {
			return result.Error
		}
		return nil
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tree_id"},
			{Name: "node_index"},
		},
		UpdateAll: true,
	}).Create(node)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteSumTreeNodes removes all selection tree nodes for a tree ID
func (d *Store) DeleteSumTreeNodes(
	treeId uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("tree_id = ?", treeId).
		Delete(&models.SumTreeNode{})
	if result.Error != nil {
		return result.Error
	}
	return nil
}

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

// GetSyncCursor returns the sync cursor, or nil when no events have been
// processed yet
func (d *Store) GetSyncCursor(
	txn types.Txn,
) (*models.SyncCursor, error) {
	ret := &models.SyncCursor{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.First(ret)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetSyncCursor stores the sync cursor. The cursor is a single fixed row
// that is updated in place
func (d *Store) SetSyncCursor(
	cursor *models.SyncCursor,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	cursor.ID = syncCursorRowId
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"block_number", "block_hash", "log_index"},
		),
	}).Create(cursor)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
