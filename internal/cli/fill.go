package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/formdraft/internal/presentation/tui"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/session"
)

// Navigation choices offered after each step.
const (
	ActionNext    = "Next"
	ActionSubmit  = "Submit"
	ActionBack    = "Back"
	ActionSave    = "Save and quit"
	ActionDiscard = "Discard draft"
)

// Filler walks a user through a form in the terminal, resuming any saved draft.
type Filler struct {
	Manager  *session.Manager
	Prompter tui.Prompter
	Out      io.Writer
	// Render formats step descriptions. Nil prints them as is.
	Render func(string) (string, error)
}

// Outcome reports how a fill session ended.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeSaved     Outcome = "saved"
	OutcomeDiscarded Outcome = "discarded"
)

// Fill runs the prompt loop for formID until the form is submitted, saved
// for later or discarded. Values typed before an interruption are kept.
func (f *Filler) Fill(ctx context.Context, formID string) (Outcome, error) {
	c, err := f.Manager.Controller(formID)
	if err != nil {
		return "", err
	}
	form := c.Form()

	snap, err := f.Manager.Open(ctx, formID)
	if err != nil {
		return "", err
	}
	if len(snap.Values) > 0 {
		PrintSystemMessage(f.Out, "Resuming draft of '%s' at step %d of %d", formID, snap.Step, form.TotalSteps())
	}

	values := snap.Values.Clone()
	transient := domain.Draft{}
	current := snap.Step

	for {
		step, err := form.Step(current)
		if err != nil {
			return "", err
		}
		f.printStep(form, current, step)

		patch, err := f.askStep(ctx, step, values)
		if err != nil {
			f.keep(formID, patch)
			return "", err
		}
		for k, v := range patch {
			values[k] = v
		}
		for _, field := range step.Fields {
			if v, ok := patch[field.Name]; ok && field.IsTransient() {
				transient[field.Name] = v
			}
		}

		last := current == form.TotalSteps()
		action, err := f.Prompter.Select(ctx, tui.SelectConfig{
			Message: "What next?",
			Options: actions(current, last),
			Default: actions(current, last)[0],
		})
		if err != nil {
			f.keep(formID, patch)
			return "", err
		}

		switch action {
		case ActionNext, ActionSubmit:
			res, err := f.Manager.Next(ctx, formID, patch)
			if err != nil {
				return "", err
			}
			if !res.Errors.Valid() {
				f.printErrors(step, res.Errors)
				current = res.Step
				continue
			}
			if !res.ReadyToSubmit {
				current = res.Step
				continue
			}
			ok, err := f.Prompter.Confirm(ctx, "Submit the form?", true)
			if err != nil {
				return "", err
			}
			if !ok {
				PrintSystemMessage(f.Out, "Draft kept. Run fill again to submit.")
				return OutcomeSaved, nil
			}
			res, err = f.Manager.Submit(ctx, formID, transient)
			if err != nil {
				fmt.Fprintln(f.Out, tui.Error(err.Error()))
				if res.Step > 0 {
					current = res.Step
				}
				if res.Errors.Valid() {
					return "", err
				}
				failed, _ := form.Step(current)
				f.printErrors(failed, res.Errors)
				continue
			}
			fmt.Fprintln(f.Out, tui.Success("Form submitted."))
			return OutcomeSubmitted, nil

		case ActionBack:
			if _, err := f.Manager.Edit(ctx, formID, patch); err != nil {
				return "", err
			}
			res, err := f.Manager.Back(ctx, formID)
			if err != nil {
				return "", err
			}
			current = res.Step

		case ActionSave:
			if _, err := f.Manager.Edit(ctx, formID, patch); err != nil {
				return "", err
			}
			if err := f.Manager.Flush(ctx, formID); err != nil {
				return "", err
			}
			PrintSystemMessage(f.Out, "Draft saved at step %d.", current)
			return OutcomeSaved, nil

		case ActionDiscard:
			ok, err := f.Prompter.Confirm(ctx, "Discard everything entered so far?", false)
			if err != nil {
				return "", err
			}
			if !ok {
				continue
			}
			if err := f.Manager.Cancel(ctx, formID); err != nil {
				return "", err
			}
			PrintSystemMessage(f.Out, "Draft discarded.")
			return OutcomeDiscarded, nil
		}
	}
}

func actions(step int, last bool) []string {
	first := ActionNext
	if last {
		first = ActionSubmit
	}
	out := []string{first}
	if step > 1 {
		out = append(out, ActionBack)
	}
	return append(out, ActionSave, ActionDiscard)
}

// keep saves what was typed before an interruption, outliving the cancelled context.
func (f *Filler) keep(formID string, patch domain.Draft) {
	if len(patch) == 0 {
		return
	}
	ctx := context.Background()
	if _, err := f.Manager.Edit(ctx, formID, patch); err != nil {
		return
	}
	_ = f.Manager.Flush(ctx, formID)
}

func (f *Filler) printStep(form *domain.Form, n int, step domain.Step) {
	title := step.Title
	if title == "" {
		title = fmt.Sprintf("Step %d", n)
	}
	fmt.Fprintf(f.Out, "\n%s %s\n", tui.Faint(fmt.Sprintf("[%d/%d]", n, form.TotalSteps())), title)
	if step.Description == "" {
		return
	}
	desc := step.Description
	if f.Render != nil {
		if out, err := f.Render(desc); err == nil {
			desc = out
		}
	}
	fmt.Fprintln(f.Out, strings.TrimRight(desc, "\n"))
}

func (f *Filler) printErrors(step domain.Step, errs domain.FieldErrors) {
	for _, name := range errs.Fields() {
		label := name
		for _, field := range step.Fields {
			if field.Name == name {
				label = field.DisplayName()
			}
		}
		fmt.Fprintln(f.Out, tui.Error(fmt.Sprintf("%s: %s", label, errs[name])))
	}
}

// askStep prompts every field of step, offering the saved value as default.
// The returned patch holds the answers given before any error.
func (f *Filler) askStep(ctx context.Context, step domain.Step, values domain.Draft) (domain.Draft, error) {
	patch := domain.Draft{}
	for _, field := range step.Fields {
		v, err := f.askField(ctx, field, values[field.Name])
		if err != nil {
			return patch, err
		}
		if v != nil {
			patch[field.Name] = v
		}
	}
	return patch, nil
}

func (f *Filler) askField(ctx context.Context, field domain.Field, current any) (any, error) {
	def := ""
	if current != nil {
		def = fmt.Sprint(current)
	}
	msg := field.DisplayName()

	switch field.Type {
	case domain.FieldBool:
		b, _ := current.(bool)
		return f.Prompter.Confirm(ctx, msg, b)

	case domain.FieldSelect:
		if len(field.Options) > 0 {
			return f.Prompter.Select(ctx, tui.SelectConfig{Message: msg, Options: field.Options, Default: def})
		}

	case domain.FieldPassword:
		help := ""
		if def != "" {
			help = "Leave empty to keep the saved value"
		}
		s, err := f.Prompter.Password(ctx, tui.InputConfig{Message: msg, Help: help})
		if err != nil || (s == "" && current != nil) {
			return current, err
		}
		return s, nil

	case domain.FieldNumber:
		s, err := f.Prompter.Input(ctx, tui.InputConfig{Message: msg, Default: def})
		if err != nil {
			return nil, err
		}
		return parseNumber(s), nil

	case domain.FieldFile:
		s, err := f.Prompter.Input(ctx, tui.InputConfig{Message: msg + " (path)", Help: "Files are not saved with the draft"})
		if err != nil || s == "" {
			return current, err
		}
		return fileRef(s), nil
	}

	return f.Prompter.Input(ctx, tui.InputConfig{Message: msg, Default: def})
}

// parseNumber keeps unparseable input as text so validation can report it.
func parseNumber(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return n
}

func fileRef(path string) domain.FileRef {
	ref := domain.FileRef{Name: filepath.Base(path)}
	if info, err := os.Stat(path); err == nil {
		ref.Size = info.Size()
	}
	return ref
}
