package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/amp-labs/liminal/statemachine/visualizer"
	"github.com/spf13/cobra"
)

type graphOptions struct {
	configPath    string
	direction     string
	handlers      bool
	preconditions bool
	highlight     string
}

var graphOpts = graphOptions{direction: "TD", handlers: true, preconditions: true} //nolint:gochecknoglobals

var graphCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "graph",
	Short: "Render a table config as a Mermaid state diagram",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runGraph(cmd.OutOrStdout(), graphOpts)
	},
}

func init() { //nolint:gochecknoinits
	flags := graphCmd.Flags()
	flags.StringVarP(&graphOpts.configPath, "config", "c", "", "table config file (default: bundled assay)")
	flags.StringVarP(&graphOpts.direction, "direction", "d", graphOpts.direction, "diagram direction: TD or LR")
	flags.BoolVar(&graphOpts.handlers, "handlers", graphOpts.handlers, "mark handler states")
	flags.BoolVar(&graphOpts.preconditions, "preconditions", graphOpts.preconditions, "label edges with preconditions")
	flags.StringVar(&graphOpts.highlight, "highlight", "", "comma separated states to highlight")

	rootCmd.AddCommand(graphCmd)
}

func runGraph(out io.Writer, opts graphOptions) error {
	config, err := loadTableConfig(opts.configPath)
	if err != nil {
		return err
	}

	vopts := visualizer.DefaultOptions().
		WithDirection(strings.ToUpper(opts.direction)).
		WithShowHandlers(opts.handlers).
		WithShowPreconditions(opts.preconditions)

	if opts.highlight != "" {
		vopts = vopts.WithHighlightPath(strings.Split(opts.highlight, ","))
	}

	diagram, err := visualizer.GenerateMermaidWithOptions(config, vopts)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, diagram)

	return err
}
