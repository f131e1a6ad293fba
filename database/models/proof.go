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

// Proof represents a proven possession for a data set, along with the
// challenges derived from its committed seed
type Proof struct {
	Seed           []byte
	TxHash         []byte `gorm:"index;size:32"`
	Challenges     []Challenge
	ID             uint   `gorm:"primarykey"`
	SetId          uint64 `gorm:"index"`
	ChallengeCount uint64
	BlockNumber    uint64 `gorm:"index"`
}

func (Proof) TableName() string {
	return "proof"
}

// Challenge is a single derived challenge within a proof. ChallengeIndex is
// the data leaf targeted across the whole set, PieceId the piece whose leaf
// range contains it, and Offset the leaf position within that piece. Found is
// false when the selection tree had no weight covering the challenge
type Challenge struct {
	Offset         types.BigInt
	ID             uint `gorm:"primarykey"`
	ProofID        uint `gorm:"index"`
	SetId          uint64
	ProofIndex     uint64
	ChallengeIndex uint64
	PieceId        uint64
	Found          bool
}

func (Challenge) TableName() string {
	return "challenge"
}
