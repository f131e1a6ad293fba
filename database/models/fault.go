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

// Fault records a missed proving deadline for a data set
type Fault struct {
	PeriodsFaulted types.BigInt
	Deadline       types.BigInt
	ID             uint   `gorm:"primarykey"`
	SetId          uint64 `gorm:"index"`
	BlockNumber    uint64 `gorm:"index"`
}

func (Fault) TableName() string {
	return "fault"
}
