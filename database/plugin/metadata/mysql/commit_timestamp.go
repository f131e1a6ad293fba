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

package mysql

import (
	"errors"

	"github.com/blinklabs-io/proofhound/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	commitTimestampRowId = 1
)

// CommitTimestamp is the last commit timestamp shared between the metadata
// and blob stores. It's stored as a single fixed row
type CommitTimestamp struct {
	ID        uint `gorm:"primaryKey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// GetCommitTimestamp returns the stored commit timestamp, or 0 when none
// has been recorded yet
func (d *Store) GetCommitTimestamp() (int64, error) {
	ret := CommitTimestamp{}
	result := d.DB().
		Where("id = ?", commitTimestampRowId).
		First(&ret)
	if result.Error != nil {
		// It's not an error if there's no commit timestamp
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return ret.Timestamp, nil
}

// SetCommitTimestamp stores the commit timestamp, updating the fixed row
// in place
func (d *Store) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	row := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"timestamp"},
		),
	}).Create(&row)
	return result.Error
}
