package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/manifoldco/promptui"
)

var (
	// ErrEmptyInput is returned by validators when nothing was entered.
	ErrEmptyInput = errors.New("you must enter something")
	// ErrInvalidSequence is returned when sequence data contains anything
	// but letters and digits.
	ErrInvalidSequence = errors.New("invalid sequence character")
)

// Terminal is the pair of streams prompts read from and write to.
type Terminal struct {
	In  io.ReadCloser
	Out io.WriteCloser
}

// Stdio returns the process terminal.
func Stdio() Terminal {
	return Terminal{In: os.Stdin, Out: os.Stdout}
}

// PromptConfirm asks a yes/no question. Answering no is not an error.
func (t Terminal) PromptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.In,
		Stdout:    t.Out,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// PromptString asks for a non-empty line.
func (t Terminal) PromptString(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return ErrEmptyInput
			}

			return nil
		},
		Stdin:  t.In,
		Stdout: t.Out,
	}

	return prompt.Run()
}

// PromptSequence asks for sequence data and returns it without whitespace.
func (t Terminal) PromptSequence(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: ValidateSequence,
		Stdin:    t.In,
		Stdout:   t.Out,
	}

	txt, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return NormalizeSequence(txt), nil
}

// NormalizeSequence strips whitespace from sequence data.
func NormalizeSequence(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// ValidateSequence accepts letters and digits, ignoring whitespace.
func ValidateSequence(s string) error {
	seq := NormalizeSequence(s)
	if seq == "" {
		return ErrEmptyInput
	}

	for i, r := range []rune(seq) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%w %q at position %d", ErrInvalidSequence, r, i+1)
		}
	}

	return nil
}
