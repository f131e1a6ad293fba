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

package models

import (
	"github.com/blinklabs-io/proofhound/database/types"
)

// SumTreeNode is one node of a data set's weighted selection tree. Nodes are
// created lazily on first weight increment and never deleted. SubtreeSum at
// node i covers the 2^h leaves ending at i, where h is the trailing zero bit
// count of i+1
type SumTreeNode struct {
	SubtreeSum     types.BigInt
	LastLeafWeight types.BigInt
	ID             uint   `gorm:"primarykey"`
	TreeId         uint64 `gorm:"uniqueIndex:sum_tree_node_tree_id_node_index"`
	NodeIndex      uint64 `gorm:"uniqueIndex:sum_tree_node_tree_id_node_index"`
	LastDecayEpoch uint64
}

func (SumTreeNode) TableName() string {
	return "sum_tree_node"
}
