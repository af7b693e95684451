// Package cmd implements the command-line interface for goresearch.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdhttpd "github.com/jonesrussell/goresearch/cmd/httpd"
	cmdingest "github.com/jonesrussell/goresearch/cmd/ingest"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "goresearch",
		Short: "Research topic ingestion pipeline",
		Long: `goresearch discovers web content for a research topic, extracts and
cleans the text, and chunks it for downstream embedding.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("goresearch version %s\n", version)
		},
	})

	rootCmd.AddCommand(cmdingest.Command(&cfgFile, &debug))
	rootCmd.AddCommand(cmdhttpd.Command(&cfgFile, &debug))
}

// version is overridable at build time via -ldflags.
var version = "dev"
