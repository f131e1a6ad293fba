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

package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/proofhound/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "proofhound.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// RunMode represents the operational mode of the indexer
type RunMode string

const (
	RunModeServe RunMode = "serve" // Continuous indexing with REST API (default)
	RunModeLoad  RunMode = "load"  // One-shot backfill to the confirmed chain head
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeLoad, "":
		return true
	default:
		return false
	}
}

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	MetadataPlugin   string  `yaml:"metadataPlugin"   envconfig:"PROOFHOUND_DATABASE_METADATA_PLUGIN"`
	BlobPlugin       string  `yaml:"blobPlugin"       envconfig:"PROOFHOUND_DATABASE_BLOB_PLUGIN"`
	RpcUrl           string  `yaml:"rpcUrl"                                                           split_words:"true"`
	ContractAddress  string  `yaml:"contractAddress"                                                  split_words:"true"`
	DatabasePath     string  `yaml:"databasePath"                                                     split_words:"true"`
	BindAddr         string  `yaml:"bindAddr"                                                         split_words:"true"`
	ApiListenAddress string  `yaml:"apiListenAddress"                                                 split_words:"true"`
	ShutdownTimeout  string  `yaml:"shutdownTimeout"                                                  split_words:"true"`
	PollInterval     string  `yaml:"pollInterval"                                                     split_words:"true"`
	StartBlock       uint64  `yaml:"startBlock"                                                       split_words:"true"`
	Confirmations    uint64  `yaml:"confirmations"`
	BatchSize        uint64  `yaml:"batchSize"                                                        split_words:"true"`
	SumTreeMaxHeight uint    `yaml:"sumTreeMaxHeight"                                                 split_words:"true"`
	MetricsPort      uint    `yaml:"metricsPort"                                                      split_words:"true"`
	IntersectTip     bool    `yaml:"intersectTip"                                                     split_words:"true"`
	Tracing          bool    `yaml:"tracing"`
	TracingStdout    bool    `yaml:"tracingStdout"                                                    split_words:"true"`
	RunMode          RunMode `yaml:"runMode"          envconfig:"PROOFHOUND_RUN_MODE"`
}

var globalConfig = &Config{
	BindAddr:         "0.0.0.0",
	DatabasePath:     ".proofhound",
	MetricsPort:      12798,
	Confirmations:    12,
	PollInterval:     "12s",
	IntersectTip:     false,
	BlobPlugin:       DefaultBlobPlugin,
	MetadataPlugin:   DefaultMetadataPlugin,
	RunMode:          RunModeServe,
	ShutdownTimeout:  DefaultShutdownTimeout,
	ApiListenAddress: ":8080",
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.proofhound/proofhound.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".proofhound", "proofhound.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/proofhound/proofhound.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/proofhound/proofhound.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// First unmarshal into temp config to handle plugin sections
		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			err = yaml.Unmarshal(configBytes, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			// Otherwise unmarshal the whole file as main config (backward compatibility)
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}

		// Process plugin configurations
		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Blob != nil {
			pluginConfig["blob"] = tempCfg.Blob
		}
		if tempCfg.Metadata != nil {
			pluginConfig["metadata"] = tempCfg.Metadata
		}
		// Handle database section if present
		if tempCfg.Database != nil {
			if tempCfg.Database.Blob != nil {
				// Extract plugin name if specified
				if pluginVal, exists := tempCfg.Database.Blob["plugin"]; exists {
					if pluginName, ok := pluginVal.(string); ok {
						globalConfig.BlobPlugin = pluginName
						// Remove plugin from config map
						delete(tempCfg.Database.Blob, "plugin")
					}
				}
				blobConfig := pluginSectionConfig(tempCfg.Database.Blob, "blob")
				// Merge with existing blob config instead of overwriting
				if pluginConfig["blob"] == nil {
					pluginConfig["blob"] = blobConfig
				} else {
					maps.Copy(pluginConfig["blob"], blobConfig)
				}
			}
			if tempCfg.Database.Metadata != nil {
				// Extract plugin name if specified
				if pluginVal, exists := tempCfg.Database.Metadata["plugin"]; exists {
					if pluginName, ok := pluginVal.(string); ok {
						globalConfig.MetadataPlugin = pluginName
						// Remove plugin from config map
						delete(tempCfg.Database.Metadata, "plugin")
					}
				}
				metadataConfig := pluginSectionConfig(
					tempCfg.Database.Metadata,
					"metadata",
				)
				// Merge with existing metadata config instead of overwriting
				if pluginConfig["metadata"] == nil {
					pluginConfig["metadata"] = metadataConfig
				} else {
					maps.Copy(pluginConfig["metadata"], metadataConfig)
				}
			}
		}
		if len(pluginConfig) > 0 {
			err = plugin.ProcessConfig(pluginConfig)
			if err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("proofhound", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	// Validate and default RunMode
	if !globalConfig.RunMode.Valid() {
		return nil, fmt.Errorf(
			"invalid runMode: %q (must be 'serve' or 'load')",
			globalConfig.RunMode,
		)
	}
	if globalConfig.RunMode == "" {
		globalConfig.RunMode = RunModeServe
	}

	return globalConfig, nil
}

// pluginSectionConfig converts a per-plugin YAML section into the nested map
// shape consumed by plugin.ProcessConfig
func pluginSectionConfig(
	section map[string]any,
	sectionName string,
) map[string]map[string]any {
	sectionConfig := make(map[string]map[string]any)
	for k, v := range section {
		if val, ok := v.(map[string]any); ok {
			sectionConfig[k] = val
		} else if val, ok := v.(map[any]any); ok {
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			sectionConfig[k] = stringAnyMap
		} else {
			// Log skipped non-map config entries
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				sectionName,
				k,
				v,
			)
		}
	}
	return sectionConfig
}

func GetConfig() *Config {
	return globalConfig
}
