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
	"errors"

	"github.com/blinklabs-io/proofhound/database/types"
)

var ErrPieceNotFound = errors.New("piece not found")

// Piece represents a stored piece within a data set. The piece ID doubles as
// the leaf index of the piece in the data set's selection tree, with the
// piece's leaf count as its weight. Removal happens in two phases: scheduled
// by a removal event, then applied at the next proving period rollover
type Piece struct {
	Signature        []byte
	Metadata         string
	RawSize          types.BigInt
	ID               uint   `gorm:"primarykey"`
	SetId            uint64 `gorm:"uniqueIndex:piece_set_id_piece_id"`
	PieceId          uint64 `gorm:"uniqueIndex:piece_set_id_piece_id"`
	LeafCount        uint64
	AddedBlock       uint64 `gorm:"index"`
	RemovedBlock     uint64
	RemovalScheduled bool
	Removed          bool
}

func (Piece) TableName() string {
	return "piece"
}
