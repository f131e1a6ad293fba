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

package challenge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/proofhound/challenge"
)

func TestGenerateIndexDeterministic(t *testing.T) {
	seed := []byte{0x01, 0x02, 0x03, 0x04}
	first := challenge.GenerateIndex(seed, 12, 0, 1000)
	for range 10 {
		if got := challenge.GenerateIndex(seed, 12, 0, 1000); got != first {
			t.Fatalf("expected deterministic index, got %d and %d", first, got)
		}
	}
}

func TestGenerateIndexBounds(t *testing.T) {
	seed := []byte{0xaa, 0xbb, 0xcc}
	for _, totalLeaves := range []uint64{1, 2, 3, 7, 1000, 1 << 40} {
		for proofIndex := uint64(0); proofIndex < 20; proofIndex++ {
			got := challenge.GenerateIndex(seed, 42, proofIndex, totalLeaves)
			if got >= totalLeaves {
				t.Fatalf(
					"index %d out of bounds for %d leaves",
					got,
					totalLeaves,
				)
			}
		}
	}
}

func TestGenerateIndexSeedPadding(t *testing.T) {
	// A short seed hashes identically to its explicitly left-padded form
	short := []byte{0x5a}
	padded := make([]byte, 32)
	padded[31] = 0x5a
	require.Equal(
		t,
		challenge.GenerateIndex(short, 3, 4, 500),
		challenge.GenerateIndex(padded, 3, 4, 500),
	)
	// An overlong seed is reduced to its trailing 32 bytes
	long := append(make([]byte, 8), padded...)
	require.Equal(
		t,
		challenge.GenerateIndex(short, 3, 4, 500),
		challenge.GenerateIndex(long, 3, 4, 500),
	)
}

func TestGenerateIndexVariesWithInputs(t *testing.T) {
	seed := []byte{0x01}
	const totalLeaves = uint64(1) << 62
	base := challenge.GenerateIndex(seed, 1, 1, totalLeaves)
	distinct := 0
	for proofIndex := uint64(2); proofIndex < 10; proofIndex++ {
		if challenge.GenerateIndex(seed, 1, proofIndex, totalLeaves) != base {
			distinct++
		}
	}
	if distinct == 0 {
		t.Fatalf("expected distinct indexes across proof indexes")
	}
}

func TestGenerateIndexZeroLeaves(t *testing.T) {
	require.Equal(
		t,
		uint64(0),
		challenge.GenerateIndex([]byte{0x01}, 1, 1, 0),
	)
}
