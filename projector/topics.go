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

package projector

import (
	"github.com/blinklabs-io/proofhound/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Topic zero of each contract log identifies the event by the keccak hash
// of its signature
var (
	DataSetCreatedTopic         = crypto.Keccak256Hash([]byte("DataSetCreated(uint256,address)"))
	PieceAddedTopic             = crypto.Keccak256Hash([]byte("PieceAdded(uint256,uint256,uint256)"))
	PieceRemovalScheduledTopic  = crypto.Keccak256Hash([]byte("PieceRemovalScheduled(uint256,uint256)"))
	NextProvingPeriodTopic      = crypto.Keccak256Hash([]byte("NextProvingPeriod(uint256,uint256,uint256)"))
	PossessionProvenTopic       = crypto.Keccak256Hash([]byte("PossessionProven(uint256,uint256,uint256)"))
	FaultRecordTopic            = crypto.Keccak256Hash([]byte("FaultRecord(uint256,uint256,uint256)"))
	DataSetDeletedTopic         = crypto.Keccak256Hash([]byte("DataSetDeleted(uint256,uint256)"))
	StorageProviderChangedTopic = crypto.Keccak256Hash([]byte("StorageProviderChanged(uint256,address,address)"))
	ProviderRegisteredTopic     = crypto.Keccak256Hash([]byte("ProviderRegistered(address)"))
)

// addProviderSelector is the 4-byte selector of the registration call whose
// input carries the provider URLs
var addProviderSelector = crypto.Keccak256(
	[]byte("addServiceProvider(address,string,string)"),
)[:abi.SelectorSize]

// topicNames maps topic zero to the event name used in logs and metrics
var topicNames = map[common.Hash]string{
	DataSetCreatedTopic:         "DataSetCreated",
	PieceAddedTopic:             "PieceAdded",
	PieceRemovalScheduledTopic:  "PieceRemovalScheduled",
	NextProvingPeriodTopic:      "NextProvingPeriod",
	PossessionProvenTopic:       "PossessionProven",
	FaultRecordTopic:            "FaultRecord",
	DataSetDeletedTopic:         "DataSetDeleted",
	StorageProviderChangedTopic: "StorageProviderChanged",
	ProviderRegisteredTopic:     "ProviderRegistered",
}
