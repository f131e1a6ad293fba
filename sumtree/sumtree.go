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

// Package sumtree implements a persistent binary indexed tree (Fenwick tree)
// used for weighted random selection of dataset leaves. Nodes live in an
// external store and are fetched by computed index on every traversal; the
// tree topology is never cached in memory.
package sumtree

import (
	"fmt"
	"math/big"
	"math/bits"
)

// DefaultMaxHeight bounds the number of ancestor nodes touched by a single
// weight update
const DefaultMaxHeight = 50

// Node is a single tree entry addressed by (tree ID, node index). SubtreeSum
// at node i covers the 2^h leaves ending at i, where h is the trailing zero
// bit count of i+1
type Node struct {
	SubtreeSum     *big.Int
	LastLeafWeight *big.Int
	TreeId         uint64
	NodeIndex      uint64
	LastDecayEpoch uint64
}

// NodeStore provides durable load/save access to tree nodes. LoadNode returns
// nil (without error) for nodes that have never been written
type NodeStore interface {
	LoadNode(treeId uint64, nodeIndex uint64) (*Node, error)
	NewNode(treeId uint64, nodeIndex uint64) (*Node, error)
	SaveNode(node *Node) error
}

// Selection is the result of a weighted selection: the chosen leaf and the
// residual offset of the target within that leaf's weight
type Selection struct {
	Offset *big.Int
	Leaf   uint64
}

type Index struct {
	store     NodeStore
	maxHeight uint
	capacity  uint64
}

type IndexOption func(*Index)

// WithMaxHeight overrides the maximum tree height. Updates propagate through
// at most this many ancestors
func WithMaxHeight(height uint) IndexOption {
	return func(i *Index) {
		i.maxHeight = height
	}
}

func NewIndex(store NodeStore, opts ...IndexOption) *Index {
	i := &Index{
		store:     store,
		maxHeight: DefaultMaxHeight,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.capacity = uint64(1) << i.maxHeight
	return i
}

// HeightFromIndex returns the number of leaves aggregated by the node at the
// given index
func HeightFromIndex(index uint64) uint64 {
	return uint64(bits.TrailingZeros64(index + 1))
}

func lowBit(n uint64) uint64 {
	return n & -n
}

// Inc adds delta to the weight of the given leaf and propagates the update to
// every ancestor within the tree bound. Missing entries are created with a
// zero baseline before the delta is applied
func (i *Index) Inc(
	treeId uint64,
	leafIndex uint64,
	delta *big.Int,
) error {
	if delta == nil {
		delta = new(big.Int)
	}
	nodeIdx := leafIndex
	for nodeIdx < i.capacity {
		node, err := i.store.LoadNode(treeId, nodeIdx)
		if err != nil {
			return fmt.Errorf("failed to load sum tree node: %w", err)
		}
		if node == nil {
			node, err = i.store.NewNode(treeId, nodeIdx)
			if err != nil {
				return fmt.Errorf("failed to create sum tree node: %w", err)
			}
		}
		if node.SubtreeSum == nil {
			node.SubtreeSum = new(big.Int)
		}
		node.SubtreeSum.Add(node.SubtreeSum, delta)
		if err := i.store.SaveNode(node); err != nil {
			return fmt.Errorf("failed to save sum tree node: %w", err)
		}
		nodeIdx += lowBit(nodeIdx + 1)
	}
	return nil
}

// Dec subtracts delta from the weight of the given leaf, propagating through
// the same ancestors as Inc and stamping each touched node with the epoch of
// the decrement. Nodes that were never written are skipped, so decrementing
// an unknown leaf is a no-op
func (i *Index) Dec(
	treeId uint64,
	leafIndex uint64,
	delta *big.Int,
	epoch uint64,
) error {
	if delta == nil {
		delta = new(big.Int)
	}
	nodeIdx := leafIndex
	for nodeIdx < i.capacity {
		node, err := i.store.LoadNode(treeId, nodeIdx)
		if err != nil {
			return fmt.Errorf("failed to load sum tree node: %w", err)
		}
		if node != nil {
			if node.SubtreeSum == nil {
				node.SubtreeSum = new(big.Int)
			}
			node.LastLeafWeight = new(big.Int).Set(node.SubtreeSum)
			node.SubtreeSum.Sub(node.SubtreeSum, delta)
			node.LastDecayEpoch = epoch
			if err := i.store.SaveNode(node); err != nil {
				return fmt.Errorf("failed to save sum tree node: %w", err)
			}
		}
		nodeIdx += lowBit(nodeIdx + 1)
	}
	return nil
}

// Select returns the leaf whose cumulative weight range contains target,
// along with the offset of target within that leaf. The descent starts at the
// largest power-of-two span not exceeding leafCount and narrows one bit at a
// time. Returns nil when target is at or beyond the total recorded weight,
// including on an empty tree
func (i *Index) Select(
	treeId uint64,
	target *big.Int,
	leafCount uint64,
) (*Selection, error) {
	if leafCount == 0 {
		return nil, nil
	}
	rem := new(big.Int)
	if target != nil {
		rem.Set(target)
	}
	var pos uint64
	pw := uint64(1) << (bits.Len64(leafCount) - 1)
	for pw > 0 {
		if pos+pw <= leafCount {
			node, err := i.store.LoadNode(treeId, pos+pw-1)
			if err != nil {
				return nil, fmt.Errorf("failed to load sum tree node: %w", err)
			}
			sum := new(big.Int)
			if node != nil && node.SubtreeSum != nil {
				sum = node.SubtreeSum
			}
			if rem.Cmp(sum) >= 0 {
				rem.Sub(rem, sum)
				pos += pw
			}
		}
		pw >>= 1
	}
	if pos >= leafCount {
		return nil, nil
	}
	return &Selection{
		Leaf:   pos,
		Offset: rem,
	}, nil
}
