package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aretw0/formdraft/internal/cli"
	"github.com/aretw0/formdraft/internal/config"
	"github.com/spf13/cobra"
)

// cfg is resolved once per invocation, before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "formdraft",
	Short: "formdraft keeps multi-step form drafts and gates each step on validation",
	Long: `formdraft loads form schemas from YAML or JSON files and lets users fill them
step by step. Every step is validated before moving on and the draft survives
restarts in a file, memory or redis store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.New()
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(v, path)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "Config file (default ./formdraft.yaml when present)")
	f.String("dir", "forms", "Directory containing form schemas")
	f.String("store", config.StoreFile, "Draft store: memory, file or redis")
	f.String("data-dir", ".formdraft/drafts", "Directory of the file store")
	f.String("namespace", "formdraft", "Prefix of every draft key")
	f.Duration("debounce", 500*time.Millisecond, "Autosave delay for edits (0 writes every edit)")
	f.String("redis.addr", "localhost:6379", "Redis address")
	f.Bool("redis.lock", false, "Serialise writes across processes with a redis lock")
	f.StringSlice("pii", nil, "Field name patterns masked before storage")
	f.StringSlice("exclude", nil, "Fields never written to the store")
	f.Bool("debug", false, "Enable debug logging")
}

// newApp builds the application for a command from the resolved config.
func newApp(jsonLogs bool, opts ...cli.AppOption) (*cli.App, error) {
	logger := cli.NewLogger(cfg.Debug, jsonLogs)
	return cli.NewApp(cfg, logger, opts...)
}
