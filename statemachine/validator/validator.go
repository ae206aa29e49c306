// Package validator checks transition tables for structural problems that
// the builder accepts but that are almost always mistakes, and offers fixes
// for some of them.
package validator

import (
	"fmt"
	"slices"

	"github.com/amp-labs/liminal/statemachine"
)

// ValidationResult contains the results of validating a transition table.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string   // Error code like "DANGLING_NEXT_STATE"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
}

// Location identifies where an issue occurred.
type Location struct {
	File   string // Config file path, if validated from a file
	State  string // State name if applicable
	Signal string // Signal name if applicable
}

func (l Location) String() string {
	out := l.File

	if l.State != "" {
		if out != "" {
			out += ": "
		}

		out += l.State
	}

	if l.Signal != "" {
		out += " on " + l.Signal
	}

	return out
}

// Validate runs the default rules against a table config.
func Validate(config *statemachine.Config) ValidationResult {
	return ValidateWithRules(config, DefaultRules())
}

// ValidateTable runs the default rules against a built table.
func ValidateTable(table *statemachine.Table) ValidationResult {
	return Validate(statemachine.ConfigOf(table))
}

// ValidateFile loads a config from a file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict loads a config from a file and validates it in strict mode.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads a config from a file and validates it.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return ValidationResult{
			Errors: []ValidationError{
				{
					Code:     "CONFIG_LOAD_FAILED",
					Message:  fmt.Sprintf("failed to load config: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict || config.Strict {
		result = ValidateWithRulesStrict(config, DefaultRules())
	} else {
		result = Validate(config)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules, followed by any rules
// added with RegisterRule.
func ValidateWithRules(config *statemachine.Config, rules []Rule) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, rule := range slices.Concat(rules, registeredRules()) {
		ruleResult := rule.Check(config)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(config *statemachine.Config, rules []Rule) ValidationResult {
	result := ValidateWithRules(config, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError{
			Code:     warning.Code,
			Message:  warning.Message,
			Location: warning.Location,
		})
	}

	result.Warnings = nil
	result.Valid = len(result.Errors) == 0

	return result
}
