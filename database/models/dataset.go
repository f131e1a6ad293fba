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

var ErrDataSetNotFound = errors.New("data set not found")

// DataSet represents a storage data set and its live challenge parameters.
// LeafCount tracks the current total data leaves across live pieces, while
// ChallengeRange is the leaf bound committed at the last proving period
// rollover. NextPieceId is one past the highest piece ID ever added and
// bounds piece selection
type DataSet struct {
	StorageProvider    []byte `gorm:"index;size:20"`
	Payer              []byte `gorm:"index;size:20"`
	Signature          []byte
	Metadata           string
	TotalDataSize      types.BigInt
	ID                 uint   `gorm:"primarykey"`
	SetId              uint64 `gorm:"uniqueIndex"`
	LeafCount          uint64
	ChallengeRange     uint64
	NextChallengeEpoch uint64
	NextPieceId        uint64
	AddedBlock         uint64 `gorm:"index"`
	DeletedBlock       uint64
	WithCDN            bool
	Deleted            bool
}

func (DataSet) TableName() string {
	return "data_set"
}
