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

// Package abi implements manual decoding of dynamic-ABI call and event
// payloads. Decoding is schema-free and never panics: any offset or
// length that would read past the available payload yields the zero
// value for that field only. This matches the wire contract of the
// upstream verifier contract, so the head/tail layout and the
// default-on-out-of-range policy must not be replaced with a
// reflection-based ABI library.
package abi

import (
	"encoding/binary"
	"math/big"
)

// Protocol constants. These are fixed by the ABI encoding itself and
// are not configurable.
const (
	WordSize     = 32
	AddressSize  = 20
	SelectorSize = 4
)

// RangeEqual compares length bytes of a starting at aStart against b
// starting at bStart. It returns false, never panicking, when either
// range would read past its source, including a range that starts
// beyond the end of its source. A zero-length comparison of in-range
// offsets returns true regardless of surrounding content.
func RangeEqual(a []byte, aStart int, b []byte, bStart int, length int) bool {
	if length < 0 || aStart < 0 || bStart < 0 {
		return false
	}
	// Subtract instead of adding to avoid overflow on hostile offsets
	if aStart > len(a)-length || bStart > len(b)-length {
		return false
	}
	for i := range length {
		if a[aStart+i] != b[bStart+i] {
			return false
		}
	}
	return true
}

// ToUint256 interprets the 32-byte big-endian word at offset as an
// unsigned integer. It returns zero when fewer than 32 bytes remain
// from offset. The result is never nil.
func ToUint256(data []byte, offset int) *big.Int {
	if offset < 0 || offset > len(data)-WordSize {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(data[offset : offset+WordSize])
}

// ToI32 interprets the last 4 bytes of the 32-byte word starting at
// offset as a signed two's-complement 32-bit integer, so a word whose
// trailing bytes are all 0xff decodes to -1. It returns 0 when fewer
// than 32 bytes remain from offset.
func ToI32(data []byte, offset int) int32 {
	if offset < 0 || offset > len(data)-WordSize {
		return 0
	}
	word := data[offset : offset+WordSize]
	return int32(binary.BigEndian.Uint32(word[WordSize-4:]))
}

// View returns a non-copying sub-range of length bytes starting at
// start, or nil when the requested range is out of bounds.
func View(data []byte, start, length int) []byte {
	if start < 0 || length < 0 {
		return nil
	}
	if start > len(data)-length {
		return nil
	}
	return data[start : start+length]
}

// ToBytes wraps a byte range as an opaque value for storage. A nil
// input yields an empty, non-nil slice so stored fields are always
// present.
func ToBytes(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}

// LeftPad32 left-pads data with zero bytes to a full 32-byte word.
// Input longer than a word keeps its trailing 32 bytes, consistent
// with right-aligned numeric encoding.
func LeftPad32(data []byte) []byte {
	if len(data) >= WordSize {
		return data[len(data)-WordSize:]
	}
	padded := make([]byte, WordSize)
	copy(padded[WordSize-len(data):], data)
	return padded
}
