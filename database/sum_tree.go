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
	"math/big"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/blinklabs-io/proofhound/sumtree"
)

// GetSumTreeNode returns a selection tree node by tree ID and node index, or
// nil when the node has never been written
func (d *Database) GetSumTreeNode(
	treeId uint64,
	nodeIndex uint64,
	txn *Txn,
) (*models.SumTreeNode, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	return d.metadata.GetSumTreeNode(treeId, nodeIndex, txn.Metadata())
}

// SetSumTreeNode stores a selection tree node
func (d *Database) SetSumTreeNode(
	node *models.SumTreeNode,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetSumTreeNode(node, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSumTreeNodes removes all selection tree nodes for a tree ID
func (d *Database) DeleteSumTreeNodes(
	treeId uint64,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.DeleteSumTreeNodes(treeId, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SumTreeStore adapts the metadata store to sumtree.NodeStore within the
// scope of a single transaction. All node reads and writes share the bound
// transaction so tree updates commit or roll back with the rest of the event
type SumTreeStore struct {
	db  *Database
	txn *Txn
}

// SumTreeStore returns a sumtree.NodeStore bound to the given transaction
func (d *Database) SumTreeStore(txn *Txn) *SumTreeStore {
	return &SumTreeStore{
		db:  d,
		txn: txn,
	}
}

func (s *SumTreeStore) LoadNode(
	treeId uint64,
	nodeIndex uint64,
) (*sumtree.Node, error) {
	tmpNode, err := s.db.GetSumTreeNode(treeId, nodeIndex, s.txn)
	if err != nil {
		return nil, err
	}
	if tmpNode == nil {
		return nil, nil
	}
	ret := &sumtree.Node{
		TreeId:         tmpNode.TreeId,
		NodeIndex:      tmpNode.NodeIndex,
		LastDecayEpoch: tmpNode.LastDecayEpoch,
	}
	if tmpNode.SubtreeSum.Int != nil {
		ret.SubtreeSum = new(big.Int).Set(tmpNode.SubtreeSum.Int)
	}
	if tmpNode.LastLeafWeight.Int != nil {
		ret.LastLeafWeight = new(big.Int).Set(tmpNode.LastLeafWeight.Int)
	}
	return ret, nil
}

func (s *SumTreeStore) NewNode(
	treeId uint64,
	nodeIndex uint64,
) (*sumtree.Node, error) {
	return &sumtree.Node{
		TreeId:         treeId,
		NodeIndex:      nodeIndex,
		SubtreeSum:     new(big.Int),
		LastLeafWeight: new(big.Int),
	}, nil
}

func (s *SumTreeStore) SaveNode(node *sumtree.Node) error {
	tmpNode := &models.SumTreeNode{
		TreeId:         node.TreeId,
		NodeIndex:      node.NodeIndex,
		LastDecayEpoch: node.LastDecayEpoch,
	}
	if node.SubtreeSum != nil {
		tmpNode.SubtreeSum = types.BigInt{Int: new(big.Int).Set(node.SubtreeSum)}
	}
	if node.LastLeafWeight != nil {
		tmpNode.LastLeafWeight = types.BigInt{
			Int: new(big.Int).Set(node.LastLeafWeight),
		}
	}
	return s.db.SetSumTreeNode(tmpNode, s.txn)
}
