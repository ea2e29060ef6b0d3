package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/wbs/internal/cli/formatter"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ConflictChoice is the user's answer to a schedule conflict.
type ConflictChoice int

const (
	ConflictCancel ConflictChoice = iota
	ConflictApplySuggested
	ConflictOverride
)

// ConflictPrompt asks how to resolve a rejected schedule change.
type ConflictPrompt func(res scheduler.ValidationResult) (ConflictChoice, error)

// wbsHuhTheme returns a custom huh theme using the formatter palette.
func wbsHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	// Focused state: orange accent
	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	// Blurred state: dimmed
	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// validateOptionalDate accepts empty or a YYYY-MM-DD date.
func validateOptionalDate(s string) error {
	if _, err := domain.ParseOptionalDate(s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD format")
	}
	return nil
}

// validateNonNegativeFloat accepts empty or a cost of zero or more.
func validateNonNegativeFloat(s string) error {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return fmt.Errorf("enter a non-negative amount")
	}
	return nil
}

// validateRequired rejects blank input.
func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

// dateInput returns a huh.Input for an optional date field with YYYY-MM-DD validation.
func dateInput(title string, value *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		Placeholder("2025-06-30").
		Value(value).
		Validate(validateOptionalDate)
}

// confirm runs a yes/no confirmation form.
func confirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(wbsHuhTheme()).WithShowHelp(false)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

// huhConflictPrompt offers the suggested fix, an override or cancel.
func huhConflictPrompt(res scheduler.ValidationResult) (ConflictChoice, error) {
	choice := ConflictCancel
	options := make([]huh.Option[ConflictChoice], 0, 3)
	if res.SuggestedStartDate != nil || res.SuggestedEndDate != nil {
		options = append(options, huh.NewOption("Apply suggested dates", ConflictApplySuggested))
	}
	options = append(options,
		huh.NewOption("Save anyway", ConflictOverride),
		huh.NewOption("Cancel", ConflictCancel),
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConflictChoice]().
				Title("Schedule conflict").
				Description(res.Message).
				Options(options...).
				Value(&choice),
		),
	).WithTheme(wbsHuhTheme()).WithShowHelp(false)
	if err := form.Run(); err != nil {
		return ConflictCancel, err
	}
	return choice, nil
}

// nodeFormValues holds the raw strings collected by the node form.
type nodeFormValues struct {
	Name        string
	Cost        string
	Start       string
	End         string
	Responsible string
}

// nodeForm collects the common fields of a new node.
func nodeForm(parentLabel string, v *nodeFormValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("New child of "+parentLabel).
				Value(&v.Name).
				Validate(validateRequired),
			huh.NewInput().
				Title("Cost").
				Placeholder("0").
				Value(&v.Cost).
				Validate(validateNonNegativeFloat),
			dateInput("Start (YYYY-MM-DD, blank for none)", &v.Start),
			dateInput("End (YYYY-MM-DD, blank for none)", &v.End),
			huh.NewInput().
				Title("Responsible").
				Value(&v.Responsible),
		),
	).WithTheme(wbsHuhTheme()).WithShowHelp(false)
}
