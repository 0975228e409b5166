package main

import (
	"fmt"

	"github.com/aretw0/formdraft/internal/presentation/tui"
	"github.com/aretw0/formdraft/pkg/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Work with form schemas",
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Load and check every schema in the forms directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Dir
		if len(args) > 0 {
			dir = args[0]
		}

		reg, err := schema.LoadDir(dir)
		if reg == nil {
			return err
		}
		for _, form := range reg.List() {
			fields := 0
			for _, s := range form.Steps {
				fields += len(s.Fields)
			}
			fmt.Println(tui.Success("✓ "+form.ID) + tui.Faint(fmt.Sprintf(" %d steps, %d fields", form.TotalSteps(), fields)))
		}
		for _, e := range schema.LoadErrors(err) {
			fmt.Println(tui.Error("✗ " + e.Error()))
		}
		if err != nil {
			return fmt.Errorf("%d schema(s) failed to load", len(schema.LoadErrors(err)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaCheckCmd)
}
