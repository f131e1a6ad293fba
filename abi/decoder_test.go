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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/proofhound/abi"
)

func uintWord(v uint64) []byte {
	return abi.LeftPad32(new(big.Int).SetUint64(v).Bytes())
}

func padRight(data []byte) []byte {
	rem := len(data) % abi.WordSize
	if rem == 0 {
		return append([]byte{}, data...)
	}
	return append(append([]byte{}, data...), make([]byte, abi.WordSize-rem)...)
}

func TestDecodeExtraData(t *testing.T) {
	payer := common.HexToAddress("0x00112233445566778899aAbBcCdDeEfF00112233")
	metadata := "https://svc.example/meta"
	signature := []byte{0xde, 0xad, 0xbe, 0xef}
	var data []byte
	data = append(data, uintWord(128)...)
	data = append(data, abi.LeftPad32(payer.Bytes())...)
	data = append(data, uintWord(1)...)
	data = append(data, uintWord(192)...)
	data = append(data, uintWord(uint64(len(metadata)))...)
	data = append(data, padRight([]byte(metadata))...)
	data = append(data, uintWord(uint64(len(signature)))...)
	data = append(data, padRight(signature)...)
	decoded := abi.DecodeExtraData(data)
	require.Equal(t, metadata, decoded.Metadata)
	require.Equal(t, payer, decoded.Payer)
	require.True(t, decoded.WithCDN)
	require.Equal(t, signature, decoded.Signature)
}

func TestDecodeExtraDataShortPayload(t *testing.T) {
	for _, data := range [][]byte{nil, {}, {0x01, 0x02}} {
		decoded := abi.DecodeExtraData(data)
		require.Empty(t, decoded.Metadata)
		require.Equal(t, common.Address{}, decoded.Payer)
		require.False(t, decoded.WithCDN)
		if decoded.Signature == nil {
			t.Fatalf("expected non-nil signature for short payload")
		}
		require.Len(t, decoded.Signature, 0)
	}
}

func TestDecodeExtraDataFieldIndependence(t *testing.T) {
	payer := common.HexToAddress("0x5555555555555555555555555555555555555555")
	var data []byte
	// String tail offset points past the end of the payload
	data = append(data, uintWord(4096)...)
	data = append(data, abi.LeftPad32(payer.Bytes())...)
	data = append(data, uintWord(1)...)
	data = append(data, uintWord(128)...)
	data = append(data, uintWord(3)...)
	data = append(data, padRight([]byte{0x01, 0x02, 0x03})...)
	decoded := abi.DecodeExtraData(data)
	// Bad string field decodes empty without disturbing its neighbors
	require.Empty(t, decoded.Metadata)
	require.Equal(t, payer, decoded.Payer)
	require.True(t, decoded.WithCDN)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, decoded.Signature)
}

func TestDecodePieceExtraData(t *testing.T) {
	signature := make([]byte, 65)
	for i := range signature {
		signature[i] = byte(i + 1)
	}
	metadata := "piece-42"
	var data []byte
	data = append(data, uintWord(64)...)
	data = append(data, uintWord(192)...)
	data = append(data, uintWord(uint64(len(signature)))...)
	data = append(data, padRight(signature)...)
	data = append(data, uintWord(uint64(len(metadata)))...)
	data = append(data, padRight([]byte(metadata))...)
	decoded := abi.DecodePieceExtraData(data)
	require.Equal(t, signature, decoded.Signature)
	require.Equal(t, metadata, decoded.Metadata)
}

func TestDecodePieceExtraDataShortPayload(t *testing.T) {
	decoded := abi.DecodePieceExtraData([]byte{0xab})
	if decoded.Signature == nil {
		t.Fatalf("expected non-nil signature for short payload")
	}
	require.Len(t, decoded.Signature, 0)
	require.Empty(t, decoded.Metadata)
}

func TestDecodeAddProviderCall(t *testing.T) {
	provider := common.HexToAddress("0xaAbBcCdDeEfF00112233445566778899aAbBcCdD")
	serviceURL := "https://provider.dev"
	retrievalURL := "https://cdn.provider.dev"
	input := []byte{0x1a, 0x0b, 0x2c, 0x3d}
	input = append(input, abi.LeftPad32(provider.Bytes())...)
	input = append(input, uintWord(96)...)
	input = append(input, uintWord(160)...)
	input = append(input, uintWord(uint64(len(serviceURL)))...)
	input = append(input, padRight([]byte(serviceURL))...)
	input = append(input, uintWord(uint64(len(retrievalURL)))...)
	input = append(input, padRight([]byte(retrievalURL))...)
	decoded := abi.DecodeAddProviderCall(input)
	require.Equal(t, provider, decoded.Provider)
	require.Equal(t, serviceURL, decoded.ServiceURL)
	require.Equal(t, retrievalURL, decoded.RetrievalURL)
}

func TestDecodeAddProviderCallTruncated(t *testing.T) {
	for _, input := range [][]byte{nil, {}, {0x1a, 0x0b, 0x2c}, {0x1a, 0x0b, 0x2c, 0x3d}} {
		decoded := abi.DecodeAddProviderCall(input)
		require.Equal(t, common.Address{}, decoded.Provider)
		require.Empty(t, decoded.ServiceURL)
		require.Empty(t, decoded.RetrievalURL)
	}
}

func TestValueAccessors(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	sv := abi.StringValue("hello")
	require.Equal(t, abi.ValueKindString, sv.Kind())
	require.Equal(t, "hello", sv.AsString())
	// Mismatched accessors return zero values rather than panicking
	require.Zero(t, sv.AsBigInt().Sign())
	require.Len(t, sv.AsBytes(), 0)
	require.False(t, sv.AsBool())
	require.Equal(t, common.Address{}, sv.AsAddress())

	av := abi.AddressValue(addr)
	require.Equal(t, abi.ValueKindAddress, av.Kind())
	require.Equal(t, addr, av.AsAddress())

	bv := abi.BoolValue(true)
	require.Equal(t, abi.ValueKindBool, bv.Kind())
	require.True(t, bv.AsBool())

	byv := abi.BytesValue(nil)
	require.Equal(t, abi.ValueKindBytes, byv.Kind())
	if byv.AsBytes() == nil {
		t.Fatalf("expected non-nil bytes for nil-constructed value")
	}

	iv := abi.BigIntValue(nil)
	require.Equal(t, abi.ValueKindBigInt, iv.Kind())
	if iv.AsBigInt() == nil {
		t.Fatalf("expected non-nil big.Int for nil-constructed value")
	}
	require.Zero(t, iv.AsBigInt().Sign())

	var zero abi.Value
	require.Equal(t, abi.ValueKindInvalid, zero.Kind())
	require.Empty(t, zero.AsString())
	require.Zero(t, zero.AsBigInt().Sign())
}
