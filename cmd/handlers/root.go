package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tidings/internal/config"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tidings",
		Short: "Tidings is a topic-scoped discovery and feed service.",
		Long: `Tidings discovers, caches and ranks topic-scoped content: web search
fan-out, a news feed worker over curated RSS sources, a video feed worker
over curated channels, a legal research assistant and a trend miner.

Examples:
  tidings search "religious freedom bill" --type web --limit 20
  tidings news --lang ta
  tidings videos --query "sunday service live"
  tidings legal "what does article 25 guarantee"
  tidings trend "christian persecution india"
  tidings serve`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tidings.yaml)")

	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewNewsCmd())
	rootCmd.AddCommand(NewVideosCmd())
	rootCmd.AddCommand(NewReadCmd())
	rootCmd.AddCommand(NewLegalCmd())
	rootCmd.AddCommand(NewTrendCmd())
	rootCmd.AddCommand(NewTopicsCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	_, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if config.Get().App.ConfigFile != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", config.Get().App.ConfigFile)
	}
}
