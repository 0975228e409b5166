package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage saved drafts",
	Long:  `List, inspect, and remove drafts kept in the configured store.`,
}

var draftLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List forms with a saved draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		ids, err := app.Manager.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list drafts: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No saved drafts found.")
			return nil
		}

		fmt.Println("Saved drafts:")
		for _, id := range ids {
			snap := app.Drafts.LoadSnapshot(cmd.Context(), id)
			total := "?"
			if form, err := app.Registry.Get(id); err == nil {
				total = fmt.Sprint(form.TotalSteps())
			}
			fmt.Printf("- %s (step %d of %s, %d fields)\n", id, snap.Step, total, len(snap.Values))
		}
		return nil
	},
}

var draftInspectCmd = &cobra.Command{
	Use:   "inspect <form-id>",
	Short: "Print the draft and step of a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		snap := app.Drafts.LoadSnapshot(cmd.Context(), args[0])
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode draft: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var draftRmCmd = &cobra.Command{
	Use:   "rm <form-id>...",
	Short: "Remove one or more drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("name at least one form or pass --all")
		}

		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		if all {
			if args, err = app.Manager.List(cmd.Context()); err != nil {
				return fmt.Errorf("failed to list drafts: %w", err)
			}
		}

		var errs []error
		for _, id := range args {
			// Drafts of forms no longer on disk are removed straight from the store.
			err := app.Manager.Cancel(cmd.Context(), id)
			if err != nil {
				err = app.Drafts.Clear(cmd.Context(), id)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to remove '%s': %w", id, err))
				continue
			}
			fmt.Printf("Removed draft '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.AddCommand(draftLsCmd)
	draftCmd.AddCommand(draftInspectCmd)
	draftCmd.AddCommand(draftRmCmd)

	draftRmCmd.Flags().Bool("all", false, "Remove every saved draft")
}
