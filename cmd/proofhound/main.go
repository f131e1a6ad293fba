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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/proofhound/database/plugin"
	"github.com/blinklabs-io/proofhound/internal/config"
	"github.com/blinklabs-io/proofhound/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "proofhound"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// maxprocsLogf adapts slog to the printf-style logger expected by maxprocs
func maxprocsLogf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

func commonRun() *slog.Logger {
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Align GOMAXPROCS with the container CPU quota. The undo func is not
	// needed since this lasts for the process lifetime
	if _, err := maxprocs.Set(maxprocs.Logger(maxprocsLogf)); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

// formatPlugins renders the registered plugins of one type as an indented
// list under the given heading
func formatPlugins(
	buf *strings.Builder,
	heading string,
	pluginType plugin.PluginType,
) {
	buf.WriteString(heading + ":\n")
	for _, p := range plugin.GetPlugins(pluginType) {
		fmt.Fprintf(buf, "  %s: %s\n", p.Name, p.Description)
	}
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all available storage plugins",
		Run: func(cmd *cobra.Command, args []string) {
			var buf strings.Builder
			formatPlugins(&buf, "Blob storage plugins", plugin.PluginTypeBlob)
			buf.WriteString("\n")
			formatPlugins(
				&buf,
				"Metadata storage plugins",
				plugin.PluginTypeMetadata,
			)
			fmt.Print(buf.String())
		},
	}
}

// preRun handles the "list" pseudo-plugin name, loads the config file, and
// applies command line overrides before any subcommand runs
func preRun(cmd *cobra.Command, args []string) error {
	blobPlugin, _ := cmd.Root().PersistentFlags().GetString("blob")
	metadataPlugin, _ := cmd.Root().PersistentFlags().GetString("metadata")

	// Selecting the plugin name "list" prints the available plugins of
	// that type and exits
	if blobPlugin == "list" || metadataPlugin == "list" {
		var buf strings.Builder
		if blobPlugin == "list" {
			formatPlugins(
				&buf,
				"Available blob plugins",
				plugin.PluginTypeBlob,
			)
		}
		if metadataPlugin == "list" {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			formatPlugins(
				&buf,
				"Available metadata plugins",
				plugin.PluginTypeMetadata,
			)
		}
		fmt.Print(buf.String())
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Command line flags override the config file
	if blobPlugin != config.DefaultBlobPlugin {
		cfg.BlobPlugin = blobPlugin
	}
	if metadataPlugin != config.DefaultMetadataPlugin {
		cfg.MetadataPlugin = metadataPlugin
	}
	cmd.SetContext(config.WithContext(cmd.Context(), cfg))
	return nil
}

func main() {
	serveCmd := serveCommand()
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Indexer for proof-of-data-possession verifier contract events",
		// Running without a subcommand behaves like "serve"
		Run: serveCmd.Run,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().
		StringP("blob", "b", config.DefaultBlobPlugin, "blob store plugin to use, 'list' to show available")
	rootCmd.PersistentFlags().
		StringP("metadata", "m", config.DefaultMetadataPlugin, "metadata store plugin to use, 'list' to show available")
	if err := plugin.PopulateCmdlineOptions(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding plugin flags: %v\n", err)
		os.Exit(1)
	}
	rootCmd.PersistentPreRunE = preRun

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadCommand())
	rootCmd.AddCommand(listCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error
		os.Exit(1)
	}
}
