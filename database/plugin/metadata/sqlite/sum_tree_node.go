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
