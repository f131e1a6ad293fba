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

	"github.com/ethereum/go-ethereum/common"
)

var ErrProviderNotFound = errors.New("provider not found")

// Provider represents a registered storage provider
type Provider struct {
	Address      []byte `gorm:"uniqueIndex;size:20"`
	ServiceURL   string
	RetrievalURL string
	ID           uint   `gorm:"primarykey"`
	AddedBlock   uint64 `gorm:"index"`
}

func (Provider) TableName() string {
	return "provider"
}

// String returns the checksummed hex representation of the Provider's
// address. Returns an error if the address is empty
func (p *Provider) String() (string, error) {
	if len(p.Address) == 0 {
		return "", errors.New("provider address is empty")
	}
	return common.BytesToAddress(p.Address).Hex(), nil
}
