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

package plugin_test

import (
	"testing"

	"github.com/blinklabs-io/proofhound/database/plugin"
	_ "github.com/blinklabs-io/proofhound/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/proofhound/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/proofhound/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSetPluginOptionStoragePlugins exercises option setting against the
// default storage backends. Option destinations are global plugin state,
// so these tests must not run in parallel
func TestSetPluginOptionStoragePlugins(t *testing.T) {
	// An empty data-dir selects in-memory storage
	require.NoError(
		t,
		plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			config.DefaultMetadataPlugin,
			"data-dir",
			"",
		),
	)
	require.NoError(
		t,
		plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			config.DefaultBlobPlugin,
			"data-dir",
			t.TempDir(),
		),
	)
	require.NoError(
		t,
		plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			config.DefaultBlobPlugin,
			"block-cache-size",
			uint64(100000000),
		),
	)
	require.NoError(
		t,
		plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			config.DefaultBlobPlugin,
			"gc",
			true,
		),
	)

	// A value of the wrong type is rejected before it reaches the plugin
	assert.Error(
		t,
		plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			config.DefaultMetadataPlugin,
			"data-dir",
			123,
		),
	)
}
