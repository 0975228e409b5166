package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/formdraft"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of formdraft",
	// Printing the version needs no config.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("formdraft version %s\n", strings.TrimSpace(formdraft.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
