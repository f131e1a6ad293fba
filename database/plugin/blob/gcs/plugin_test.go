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

package gcs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/proofhound/database/plugin/blob/gcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	tempDir := t.TempDir()
	existing, err := os.CreateTemp(tempDir, "credentials-*.json")
	require.NoError(t, err)
	require.NoError(t, existing.Close())

	// An empty path falls back to application default credentials
	assert.NoError(t, gcs.ValidateCredentials(""))

	assert.NoError(t, gcs.ValidateCredentials(existing.Name()))

	err = gcs.ValidateCredentials(
		filepath.Join(tempDir, "nonexistent-credentials.json"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GCS credentials file does not exist")
}

func TestStartRequiresBucket(t *testing.T) {
	store, err := gcs.NewWithOptions()
	require.NoError(t, err)
	err = store.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket not set")
}
