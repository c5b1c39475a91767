// Package prompt wraps promptui for the interactive parts of dboxctl.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted means the user left a prompt with Ctrl+C or Ctrl+D.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err ends an interactive session.
func IsAborted(err error) bool {
	switch {
	case errors.Is(err, ErrAborted),
		errors.Is(err, promptui.ErrInterrupt),
		errors.Is(err, promptui.ErrEOF),
		errors.Is(err, promptui.ErrAbort):
		return true
	}
	return false
}

func run(p promptui.Prompt) (string, error) {
	line, err := p.Run()
	if err != nil && IsAborted(err) {
		return "", ErrAborted
	}
	return line, err
}

// Input reads one line. Empty answers are returned as is.
func Input(label string) (string, error) {
	return run(promptui.Prompt{Label: label})
}

// InputWithValidation keeps asking until validate accepts the line.
func InputWithValidation(label string, validate func(string) error) (string, error) {
	line, err := run(promptui.Prompt{Label: label, Validate: validate})
	return strings.TrimSpace(line), err
}

// Confirm asks a yes/no question. An empty answer picks defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
	}
	answer, err := p.Run()
	switch {
	case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		// promptui answers "n" with ErrAbort
		if strings.TrimSpace(answer) == "" {
			return defaultYes, nil
		}
		return false, nil
	case err != nil:
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	case "":
		return defaultYes, nil
	}
	return false, nil
}

// ConfirmWithForce answers yes without asking when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
