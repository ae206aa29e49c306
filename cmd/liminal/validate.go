package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/amp-labs/liminal/examples/assay"
	"github.com/amp-labs/liminal/statemachine"
	"github.com/amp-labs/liminal/statemachine/validator"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable is returned when validation reports errors.
var ErrInvalidTable = errors.New("table is invalid")

type validateOptions struct {
	configPath string
	strict     bool
	fix        bool
}

var validateOpts validateOptions //nolint:gochecknoglobals

var validateCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "validate",
	Short: "Check a table config for structural mistakes",
	Long: `validate loads a YAML table config and reports unreachable states,
dangling targets, duplicate rules and other mistakes. Without --config the
bundled assay table is checked. With --fix the available fixes are applied
and the repaired config is printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runValidate(cmd.OutOrStdout(), validateOpts)
	},
}

func init() { //nolint:gochecknoinits
	validateCmd.Flags().StringVarP(&validateOpts.configPath, "config", "c", "", "table config file (default: bundled assay)")
	validateCmd.Flags().BoolVar(&validateOpts.strict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().BoolVar(&validateOpts.fix, "fix", false, "apply available fixes and print the result")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(out io.Writer, opts validateOptions) error {
	config, err := loadTableConfig(opts.configPath)
	if err != nil {
		return err
	}

	var result validator.ValidationResult
	if opts.strict || config.Strict {
		result = validator.ValidateWithRulesStrict(config, validator.DefaultRules())
	} else {
		result = validator.Validate(config)
	}

	printValidation(out, opts.configPath, result)

	if opts.fix {
		return printFixed(out, config, result)
	}

	if !result.Valid {
		return fmt.Errorf("%w: %d error(s)", ErrInvalidTable, len(result.Errors))
	}

	return nil
}

func loadTableConfig(path string) (*statemachine.Config, error) {
	if path == "" {
		return assay.Config()
	}

	return statemachine.LoadConfig(path)
}

func printValidation(out io.Writer, file string, result validator.ValidationResult) {
	for _, e := range result.Errors {
		e.Location.File = file
		_, _ = fmt.Fprintf(out, "error   %-28s %s: %s\n", e.Code, e.Location, e.Message)
	}

	for _, w := range result.Warnings {
		w.Location.File = file
		_, _ = fmt.Fprintf(out, "warning %-28s %s: %s\n", w.Code, w.Location, w.Message)
	}

	if result.Valid && len(result.Warnings) == 0 {
		_, _ = fmt.Fprintln(out, "ok")
	}
}

func printFixed(out io.Writer, config *statemachine.Config, result validator.ValidationResult) error {
	applied, err := validator.ApplyFixes(config, result)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "# %d fix(es) applied\n", applied)

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2) //nolint:mnd

	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return enc.Close()
}
