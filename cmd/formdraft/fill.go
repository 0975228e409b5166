package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/formdraft"
	"github.com/aretw0/formdraft/internal/cli"
	"github.com/aretw0/formdraft/internal/presentation/tui"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var fillCmd = &cobra.Command{
	Use:   "fill [form-id]",
	Short: "Fill a form interactively",
	Long: `Walks through a form step by step in the terminal. A saved draft is resumed
at the step it was left on. Submitted values are written as JSON to stdout or
to the file given with --output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("fill needs an interactive terminal; use 'formdraft serve' or 'formdraft mcp' instead")
		}
		output, _ := cmd.Flags().GetString("output")

		app, err := newApp(false, cli.WithSubmitter(func(ctx context.Context, values domain.Draft) error {
			return writeSubmission(output, values)
		}))
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		defer func() {
			if err := app.Close(context.Background()); err != nil {
				fmt.Fprintln(os.Stderr, tui.Error(err.Error()))
			}
		}()

		prompter := tui.SurveyPrompter{}
		tui.PrintBanner(os.Stdout, formdraft.Version)

		formID := ""
		if len(args) > 0 {
			formID = args[0]
		} else {
			formID, err = pickForm(ctx, app, prompter)
			if err != nil {
				return cli.HandleExecutionError(err)
			}
		}

		filler := &cli.Filler{
			Manager:  app.Manager,
			Prompter: prompter,
			Out:      os.Stdout,
			Render:   tui.NewRenderer(),
		}
		if form, err := app.Registry.Get(formID); err == nil && form.Description != "" {
			if out, err := filler.Render(form.Description); err == nil {
				fmt.Print(out)
			}
		}

		_, err = filler.Fill(ctx, formID)
		if cli.IsInterrupted(err) {
			cli.PrintSystemMessage(os.Stdout, "Interrupted. Your draft is saved.")
		}
		return cli.HandleExecutionError(err)
	},
}

func pickForm(ctx context.Context, app *cli.App, p tui.Prompter) (string, error) {
	forms := app.Registry.List()
	switch len(forms) {
	case 0:
		return "", fmt.Errorf("no forms found in %s", cfg.Dir)
	case 1:
		return forms[0].ID, nil
	}

	ids := make([]string, len(forms))
	for i, f := range forms {
		ids[i] = f.ID
	}
	return p.Select(ctx, tui.SelectConfig{Message: "Which form?", Options: ids})
}

func writeSubmission(path string, values domain.Draft) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write submission: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(fillCmd)
	fillCmd.Flags().StringP("output", "o", "", "Write submitted values to this file")
}
