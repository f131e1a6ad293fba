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

// SyncCursor is a single-row marker of the last fully processed event log.
// Event processing resumes from the log after the cursor on restart
type SyncCursor struct {
	BlockHash   []byte `gorm:"size:32"`
	ID          uint   `gorm:"primarykey"`
	BlockNumber uint64
	LogIndex    uint32
}

func (SyncCursor) TableName() string {
	return "sync_cursor"
}
