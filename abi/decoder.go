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

package abi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ValueKind discriminates the payload held by a Value.
type ValueKind int

const (
	ValueKindInvalid ValueKind = iota
	ValueKindString
	ValueKindAddress
	ValueKindBool
	ValueKindBytes
	ValueKindBigInt
)

// Value is a tagged variant over the decodable payload types: string,
// 20-byte address, boolean, byte sequence, and 256-bit unsigned
// integer. Exactly one payload is valid per kind; accessors on a
// mismatched kind return the zero value.
type Value struct {
	payload any
	kind    ValueKind
}

func StringValue(s string) Value {
	return Value{kind: ValueKindString, payload: s}
}

func AddressValue(a common.Address) Value {
	return Value{kind: ValueKindAddress, payload: a}
}

func BoolValue(b bool) Value {
	return Value{kind: ValueKindBool, payload: b}
}

func BytesValue(b []byte) Value {
	return Value{kind: ValueKindBytes, payload: ToBytes(b)}
}

func BigIntValue(n *big.Int) Value {
	if n == nil {
		n = new(big.Int)
	}
	return Value{kind: ValueKindBigInt, payload: n}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) AsString() string {
	s, _ := v.payload.(string)
	return s
}

func (v Value) AsAddress() common.Address {
	a, _ := v.payload.(common.Address)
	return a
}

func (v Value) AsBool() bool {
	b, _ := v.payload.(bool)
	return b
}

func (v Value) AsBytes() []byte {
	b, _ := v.payload.([]byte)
	if b == nil {
		return []byte{}
	}
	return b
}

func (v Value) AsBigInt() *big.Int {
	n, _ := v.payload.(*big.Int)
	if n == nil {
		return new(big.Int)
	}
	return n
}

// ExtraData is the decoded service payload attached to data set
// creation: (string metadata, address payer, bool withCDN, bytes
// signature). Malformed input decodes to zero-valued fields, never to
// partially populated garbage.
type ExtraData struct {
	Metadata  string
	Payer     common.Address
	WithCDN   bool
	Signature []byte
}

// PieceExtraData is the decoded service payload attached to piece
// addition: (bytes signature, string metadata).
type PieceExtraData struct {
	Signature []byte
	Metadata  string
}

// AddProviderCall is the decoded input of an add-provider call:
// selector, then (address provider, string serviceURL, string
// retrievalURL).
type AddProviderCall struct {
	Provider     common.Address
	ServiceURL   string
	RetrievalURL string
}

// DecodeExtraData decodes a (string, address, bool, bytes) payload.
// The head is four 32-byte words: offset to the string tail, the
// address right-aligned in its word, the boolean (word is non-zero),
// and the offset to the bytes tail. Each field that would read out of
// range decodes to its zero value while siblings decode normally.
func DecodeExtraData(data []byte) ExtraData {
	return ExtraData{
		Metadata:  dynamicStringAt(data, 0).AsString(),
		Payer:     addressAt(data, WordSize).AsAddress(),
		WithCDN:   boolAt(data, 2*WordSize).AsBool(),
		Signature: dynamicBytesAt(data, 3*WordSize).AsBytes(),
	}
}

// DecodePieceExtraData decodes a (bytes, string) payload. The head is
// two offset words: bytes tail first, then string tail.
func DecodePieceExtraData(data []byte) PieceExtraData {
	return PieceExtraData{
		Signature: dynamicBytesAt(data, 0).AsBytes(),
		Metadata:  dynamicStringAt(data, WordSize).AsString(),
	}
}

// DecodeAddProviderCall decodes add-provider call input. The leading
// 4-byte selector is skipped; tail offsets are relative to the
// payload that follows it.
func DecodeAddProviderCall(input []byte) AddProviderCall {
	if len(input) < SelectorSize {
		return AddProviderCall{}
	}
	body := input[SelectorSize:]
	return AddProviderCall{
		Provider:     addressAt(body, 0).AsAddress(),
		ServiceURL:   dynamicStringAt(body, WordSize).AsString(),
		RetrievalURL: dynamicStringAt(body, 2*WordSize).AsString(),
	}
}

// dynamicBytesAt resolves the offset word at headOffset to a dynamic
// tail (length word followed by content, padded to a word boundary)
// and returns the content. Any out-of-range offset or length yields an
// empty bytes value.
func dynamicBytesAt(data []byte, headOffset int) Value {
	tailOffset := ToUint256(data, headOffset)
	if !tailOffset.IsInt64() {
		return BytesValue(nil)
	}
	tailStart := int(tailOffset.Int64())
	length := ToUint256(data, tailStart)
	if !length.IsInt64() {
		return BytesValue(nil)
	}
	content := View(data, tailStart+WordSize, int(length.Int64()))
	if content == nil {
		return BytesValue(nil)
	}
	return BytesValue(content)
}

func dynamicStringAt(data []byte, headOffset int) Value {
	return StringValue(string(dynamicBytesAt(data, headOffset).AsBytes()))
}

// addressAt reads the 20-byte address right-aligned in the word at
// headOffset. The leading 12 bytes of the word are ignored.
func addressAt(data []byte, headOffset int) Value {
	word := View(data, headOffset, WordSize)
	if word == nil {
		return AddressValue(common.Address{})
	}
	return AddressValue(common.BytesToAddress(word[WordSize-AddressSize:]))
}

// boolAt reads the word at headOffset as a boolean: any non-zero word
// is true.
func boolAt(data []byte, headOffset int) Value {
	return BoolValue(ToUint256(data, headOffset).Sign() != 0)
}
