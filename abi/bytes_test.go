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

package abi_test

import (
	"bytes"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/proofhound/abi"
)

func TestRangeEqual(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	b := []byte{0xff, 0x02, 0x03, 0x04, 0xee}
	if !abi.RangeEqual(a, 1, b, 1, 3) {
		t.Fatalf("expected matching ranges to compare equal")
	}
	if abi.RangeEqual(a, 0, b, 0, 3) {
		t.Fatalf("expected mismatched ranges to compare unequal")
	}
	// Zero-length ranges compare equal as long as both offsets are in bounds
	if !abi.RangeEqual(a, 5, b, 5, 0) {
		t.Fatalf("expected zero-length range at end of buffer to compare equal")
	}
	if !abi.RangeEqual(a, 0, b, 4, 0) {
		t.Fatalf("expected zero-length range to compare equal")
	}
	// Out-of-range and negative arguments never match
	require.False(t, abi.RangeEqual(a, 6, b, 0, 0))
	require.False(t, abi.RangeEqual(a, 0, b, 6, 0))
	require.False(t, abi.RangeEqual(a, 3, b, 0, 3))
	require.False(t, abi.RangeEqual(a, 0, b, 3, 3))
	require.False(t, abi.RangeEqual(a, -1, b, 0, 2))
	require.False(t, abi.RangeEqual(a, 0, b, -1, 2))
	require.False(t, abi.RangeEqual(a, 0, b, 0, -1))
	// Hostile length must not wrap around
	require.False(t, abi.RangeEqual(a, 2, b, 2, math.MaxInt))
}

func TestToUint256(t *testing.T) {
	data := make([]byte, 64)
	data[31] = 0x2a
	data[32] = 0x01
	require.Equal(t, int64(42), abi.ToUint256(data, 0).Int64())
	// Word starting at offset 32 has its high byte set
	expected := new(big.Int).Lsh(big.NewInt(1), 248)
	require.Zero(t, expected.Cmp(abi.ToUint256(data, 32)))
	// Out-of-range reads produce zero, never nil
	for _, offset := range []int{-1, 33, 64, math.MaxInt} {
		v := abi.ToUint256(data, offset)
		if v == nil {
			t.Fatalf("expected non-nil result for offset %d", offset)
		}
		require.Zero(t, v.Sign())
	}
	require.Zero(t, abi.ToUint256(nil, 0).Sign())
}

func TestToI32(t *testing.T) {
	word := make([]byte, 32)
	require.Equal(t, int32(0), abi.ToI32(word, 0))
	for i := range word {
		word[i] = 0xff
	}
	// All-ones low bytes decode as two's-complement -1
	require.Equal(t, int32(-1), abi.ToI32(word, 0))
	word = make([]byte, 32)
	word[31] = 0x07
	require.Equal(t, int32(7), abi.ToI32(word, 0))
	// High bytes of the word are ignored
	word[0] = 0xff
	require.Equal(t, int32(7), abi.ToI32(word, 0))
	require.Equal(t, int32(0), abi.ToI32(word, 1))
	require.Equal(t, int32(0), abi.ToI32(word, -1))
	require.Equal(t, int32(0), abi.ToI32(nil, 0))
}

func TestView(t *testing.T) {
	data := []byte{0x0a, 0x0b, 0x0c, 0x0d}
	view := abi.View(data, 1, 2)
	require.Equal(t, []byte{0x0b, 0x0c}, view)
	// Views alias the underlying buffer rather than copying
	data[1] = 0x99
	require.Equal(t, byte(0x99), view[0])
	// Zero-length views inside the buffer are valid
	require.NotNil(t, abi.View(data, 4, 0))
	require.Len(t, abi.View(data, 4, 0), 0)
	// Anything out of range is nil
	require.Nil(t, abi.View(data, 3, 2))
	require.Nil(t, abi.View(data, 5, 0))
	require.Nil(t, abi.View(data, -1, 1))
	require.Nil(t, abi.View(data, 0, -1))
	require.Nil(t, abi.View(data, 2, math.MaxInt))
	require.Nil(t, abi.View(nil, 0, 1))
}

func TestToBytes(t *testing.T) {
	got := abi.ToBytes(nil)
	if got == nil {
		t.Fatalf("expected non-nil slice for nil input")
	}
	require.Len(t, got, 0)
	orig := []byte{0x01, 0x02}
	require.Equal(t, orig, abi.ToBytes(orig))
}

func TestLeftPad32(t *testing.T) {
	padded := abi.LeftPad32([]byte{0x01, 0x02})
	require.Len(t, padded, 32)
	require.Equal(t, byte(0x01), padded[30])
	require.Equal(t, byte(0x02), padded[31])
	if !bytes.Equal(padded[:30], make([]byte, 30)) {
		t.Fatalf("expected leading bytes to be zero")
	}
	require.Len(t, abi.LeftPad32(nil), 32)
	// Exact-width input passes through unchanged
	exact := make([]byte, 32)
	exact[0] = 0xaa
	require.Equal(t, exact, abi.LeftPad32(exact))
	// Longer input keeps the trailing 32 bytes
	long := make([]byte, 40)
	for i := range long {
		long[i] = byte(i)
	}
	require.Equal(t, long[8:], abi.LeftPad32(long))
}
