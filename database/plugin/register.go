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

package plugin

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota
	PluginTypeMetadata
)

// PluginTypeName returns the name for a plugin type
func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

// PluginOption describes a single configurable option for a plugin. Dest
// must be a pointer matching the option type and is written directly when
// the option is set from the command line, environment, or config file.
// CustomEnvVar names an additional environment variable checked alongside
// the generated PROOFHOUND_* variable, letting plugins honor conventional
// names such as MYSQL_HOST or PGPORT
type PluginOption struct {
	Dest         any
	DefaultValue any
	Name         string
	Description  string
	CustomEnvVar string
	Type         PluginOptionType
}

// optionDest returns the option's destination pointer with its type checked,
// guarding against both a mismatched and a nil destination
func optionDest[T any](o *PluginOption) (*T, error) {
	dest, ok := o.Dest.(*T)
	if !ok || dest == nil {
		var zero T
		return nil, fmt.Errorf(
			"invalid destination type for option %s: expected *%T",
			o.Name,
			zero,
		)
	}
	return dest, nil
}

func (o *PluginOption) setFromString(value string) error {
	switch o.Type {
	case PluginOptionTypeString:
		dest, err := optionDest[string](o)
		if err != nil {
			return err
		}
		*dest = value
	case PluginOptionTypeBool:
		dest, err := optionDest[bool](o)
		if err != nil {
			return err
		}
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*dest = v
	case PluginOptionTypeInt:
		dest, err := optionDest[int](o)
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*dest = v
	case PluginOptionTypeUint:
		dest, err := optionDest[uint64](o)
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		*dest = v
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			o.Type,
			o.Name,
		)
	}
	return nil
}

func (o *PluginOption) setFromValue(value any) error {
	// Strings are parsed per the option type, so config file values can be
	// quoted uniformly
	if s, ok := value.(string); ok {
		return o.setFromString(s)
	}
	switch o.Type {
	case PluginOptionTypeString:
		return fmt.Errorf(
			"invalid value for option %s: expected string, got %T",
			o.Name,
			value,
		)
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf(
				"invalid value for option %s: expected bool, got %T",
				o.Name,
				value,
			)
		}
		dest, err := optionDest[bool](o)
		if err != nil {
			return err
		}
		*dest = v
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf(
				"invalid value for option %s: expected int, got %T",
				o.Name,
				value,
			)
		}
		dest, err := optionDest[int](o)
		if err != nil {
			return err
		}
		*dest = v
	case PluginOptionTypeUint:
		dest, err := optionDest[uint64](o)
		if err != nil {
			return err
		}
		switch v := value.(type) {
		case uint64:
			*dest = v
		case int:
			if v < 0 {
				return fmt.Errorf(
					"invalid value for option %s: negative int",
					o.Name,
				)
			}
			*dest = uint64(v)
		default:
			return fmt.Errorf(
				"invalid value for option %s: expected uint, got %T",
				o.Name,
				value,
			)
		}
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			o.Type,
			o.Name,
		)
	}
	return nil
}

// PluginEntry describes a registered plugin and how to instantiate it
type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

// pluginEntries holds all registered plugins. Registration happens from
// package init functions, so access is not synchronized
var pluginEntries []PluginEntry

// Register adds a plugin to the registry
func Register(entry PluginEntry) {
	pluginEntries = append(pluginEntries, entry)
}

// GetPlugin returns an instantiated plugin of the given type and name, or nil
// if no matching plugin has been registered
func GetPlugin(pluginType PluginType, name string) Plugin {
	for _, entry := range pluginEntries {
		if entry.Type == pluginType && entry.Name == name {
			return entry.NewFromOptionsFunc()
		}
	}
	return nil
}

// GetPlugins returns the registered plugin entries for the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, entry := range pluginEntries {
		if entry.Type == pluginType {
			ret = append(ret, entry)
		}
	}
	return ret
}

// PopulateCmdlineOptions adds a flag for each registered plugin option,
// named <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for i := range pluginEntries {
		entry := &pluginEntries[i]
		for j := range entry.Options {
			opt := &entry.Options[j]
			flagName := fmt.Sprintf(
				"%s-%s-%s",
				PluginTypeName(entry.Type),
				entry.Name,
				opt.Name,
			)
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *string",
						flagName,
					)
				}
				defaultValue, _ := opt.DefaultValue.(string)
				fs.StringVar(dest, flagName, defaultValue, opt.Description)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *bool",
						flagName,
					)
				}
				defaultValue, _ := opt.DefaultValue.(bool)
				fs.BoolVar(dest, flagName, defaultValue, opt.Description)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *int",
						flagName,
					)
				}
				defaultValue, _ := opt.DefaultValue.(int)
				fs.IntVar(dest, flagName, defaultValue, opt.Description)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *uint64",
						flagName,
					)
				}
				defaultValue, _ := opt.DefaultValue.(uint64)
				fs.Uint64Var(dest, flagName, defaultValue, opt.Description)
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					flagName,
				)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies environment variable overrides for each registered
// plugin option, named PROOFHOUND_<TYPE>_<PLUGIN>_<OPTION>. The generated
// name takes precedence over the option's CustomEnvVar when both are set
func ProcessEnvVars() error {
	for i := range pluginEntries {
		entry := &pluginEntries[i]
		for j := range entry.Options {
			opt := &entry.Options[j]
			envVar := strings.ToUpper(
				strings.ReplaceAll(
					fmt.Sprintf(
						"proofhound_%s_%s_%s",
						PluginTypeName(entry.Type),
						entry.Name,
						opt.Name,
					),
					"-",
					"_",
				),
			)
			value, ok := os.LookupEnv(envVar)
			if !ok && opt.CustomEnvVar != "" {
				envVar = opt.CustomEnvVar
				value, ok = os.LookupEnv(envVar)
			}
			if !ok {
				continue
			}
			if err := opt.setFromString(value); err != nil {
				return fmt.Errorf(
					"failed to process environment variable %s: %w",
					envVar,
					err,
				)
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin option values from a parsed config file. The
// map is keyed by plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for typeName, pluginOptions := range pluginConfig {
		for pluginName, options := range pluginOptions {
			var entry *PluginEntry
			for i := range pluginEntries {
				if PluginTypeName(pluginEntries[i].Type) == typeName &&
					pluginEntries[i].Name == pluginName {
					entry = &pluginEntries[i]
					break
				}
			}
			if entry == nil {
				return fmt.Errorf(
					"unknown %s plugin: %s",
					typeName,
					pluginName,
				)
			}
			for optName, optValue := range options {
				var opt *PluginOption
				for i := range entry.Options {
					if entry.Options[i].Name == optName {
						opt = &entry.Options[i]
						break
					}
				}
				if opt == nil {
					return fmt.Errorf(
						"unknown option %s for %s plugin %s",
						optName,
						typeName,
						pluginName,
					)
				}
				if err := opt.setFromValue(optValue); err != nil {
					return fmt.Errorf(
						"failed to process config for %s plugin %s: %w",
						typeName,
						pluginName,
						err,
					)
				}
			}
		}
	}
	return nil
}
