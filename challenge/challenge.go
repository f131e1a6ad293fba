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

// Package challenge derives deterministic challenge leaf indexes from
// committed random seeds. Any verifier holding the same seed must arrive at
// the same index, so the derivation is a pure function of its inputs.
package challenge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blinklabs-io/proofhound/abi"
)

// GenerateIndex hashes the padded seed together with the dataset ID and proof
// index and reduces the digest modulo totalLeaves. Each input is encoded as a
// full 32-byte big-endian word before hashing. Returns zero when totalLeaves
// is zero
func GenerateIndex(
	seed []byte,
	datasetId uint64,
	proofIndex uint64,
	totalLeaves uint64,
) uint64 {
	if totalLeaves == 0 {
		return 0
	}
	preimage := make([]byte, 0, 3*abi.WordSize)
	preimage = append(preimage, abi.LeftPad32(seed)...)
	preimage = append(
		preimage,
		abi.LeftPad32(new(big.Int).SetUint64(datasetId).Bytes())...)
	preimage = append(
		preimage,
		abi.LeftPad32(new(big.Int).SetUint64(proofIndex).Bytes())...)
	digest := crypto.Keccak256(preimage)
	index := new(big.Int).SetBytes(digest)
	index.Mod(index, new(big.Int).SetUint64(totalLeaves))
	return index.Uint64()
}
