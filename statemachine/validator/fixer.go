package validator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/liminal/statemachine"
)

var (
	// ErrRuleNotFound is returned when a fix targets a rule that doesn't exist.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrDuplicateNotFound is returned when attempting to remove a duplicate that doesn't exist.
	ErrDuplicateNotFound = errors.New("duplicate not found")
	// ErrAlreadyTerminal is returned when marking a state terminal that already is.
	ErrAlreadyTerminal = errors.New("already a terminal state")
)

// Fix represents an automatic fix for a validation error.
type Fix struct {
	Description string
	Apply       func(config *statemachine.Config) error
}

// MarkTerminal creates a fix that declares state terminal.
func MarkTerminal(state string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Mark '%s' as a terminal state", state),
		Apply: func(config *statemachine.Config) error {
			if slices.Contains(config.Terminal, state) {
				return ErrAlreadyTerminal
			}

			config.Terminal = append(config.Terminal, state)

			return nil
		},
	}
}

// RemoveRule creates a fix that removes the rule for (from, on).
func RemoveRule(from, on string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove the rule for '%s' on '%s'", from, on),
		Apply: func(config *statemachine.Config) error {
			i := slices.IndexFunc(config.Rules, func(r statemachine.RuleConfig) bool {
				return r.From == from && r.On == on
			})
			if i < 0 {
				return fmt.Errorf("%w: %s on %s", ErrRuleNotFound, from, on)
			}

			config.Rules = slices.Delete(config.Rules, i, i+1)

			return nil
		},
	}
}

// RemoveDuplicateRule creates a fix that keeps only the first rule for (from, on).
func RemoveDuplicateRule(from, on string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove duplicate rules for '%s' on '%s'", from, on),
		Apply: func(config *statemachine.Config) error {
			found := false
			removed := false

			config.Rules = slices.DeleteFunc(config.Rules, func(r statemachine.RuleConfig) bool {
				if r.From != from || r.On != on {
					return false
				}

				if !found {
					found = true

					return false
				}

				removed = true

				return true
			})

			if !removed {
				return fmt.Errorf("%w: %s on %s", ErrDuplicateNotFound, from, on)
			}

			return nil
		},
	}
}

// ApplyFixes applies every fix attached to result's errors and reports how
// many were applied. Fixes that no longer apply are skipped.
func ApplyFixes(config *statemachine.Config, result ValidationResult) (int, error) {
	applied := 0

	for _, e := range result.Errors {
		if e.Fix == nil {
			continue
		}

		err := e.Fix.Apply(config)

		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrAlreadyTerminal), errors.Is(err, ErrDuplicateNotFound), errors.Is(err, ErrRuleNotFound):
		default:
			return applied, fmt.Errorf("applying fix %q: %w", e.Fix.Description, err)
		}
	}

	return applied, nil
}
