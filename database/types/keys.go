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

package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	LogBlobKeyPrefix = "lg"
)

func LogBlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// LogBlobKey builds the blob key for an archived log payload. Keys order by
// block number and then by log index within the block
func LogBlobKey(blockNumber uint64, logIndex uint32) []byte {
	key := []byte(LogBlobKeyPrefix)
	key = append(key, LogBlobKeyUint64ToBytes(blockNumber)...)
	idxBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idxBytes, logIndex)
	key = append(key, idxBytes...)
	return key
}

// LogBlobBlockPrefix builds the iteration prefix covering every archived log
// payload in a block
func LogBlobBlockPrefix(blockNumber uint64) []byte {
	key := []byte(LogBlobKeyPrefix)
	key = append(key, LogBlobKeyUint64ToBytes(blockNumber)...)
	return key
}

// ParseLogBlobKey extracts the block number and log index from an archived
// log payload key
func ParseLogBlobKey(key []byte) (uint64, uint32, error) {
	prefixLen := len(LogBlobKeyPrefix)
	if len(key) != prefixLen+12 ||
		!bytes.HasPrefix(key, []byte(LogBlobKeyPrefix)) {
		return 0, 0, fmt.Errorf("invalid log payload key: %x", key)
	}
	blockNumber := binary.BigEndian.Uint64(key[prefixLen : prefixLen+8])
	logIndex := binary.BigEndian.Uint32(key[prefixLen+8:])
	return blockNumber, logIndex, nil
}
