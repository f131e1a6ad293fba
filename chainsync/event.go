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

package chainsync

import (
	"github.com/blinklabs-io/proofhound/event"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// ChainLogEventType is emitted for each contract log, in strict
	// (block, log index) order.
	ChainLogEventType event.EventType = "chainsync.log"

	// ChainBlockEventType is emitted after all logs in a processed
	// block range have been published.
	ChainBlockEventType event.EventType = "chainsync.block"

	// SyncedEventType is emitted when the poller first reaches the
	// confirmed chain head.
	SyncedEventType event.EventType = "chainsync.synced"
)

// ChainLogEvent carries a single contract log along with the raw
// calldata of the transaction that emitted it.
type ChainLogEvent struct {
	TxInput []byte
	Log     ethtypes.Log
}

// ChainBlockEvent marks the high block of a processed range. All
// logs at or below BlockNumber have already been published.
type ChainBlockEvent struct {
	BlockNumber uint64
}

// SyncedEvent is published once the poller has processed every block
// up to the confirmed chain head.
type SyncedEvent struct {
	BlockNumber uint64
}
