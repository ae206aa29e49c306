// Package visualizer renders transition tables as Mermaid state diagrams.
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/liminal/statemachine"
)

// Visualizer errors.
var (
	ErrConfigNil      = errors.New("config cannot be nil")
	ErrNoInitialState = errors.New("config must have an initial state")
)

// GenerateMermaid converts a Config to a Mermaid state diagram.
func GenerateMermaid(config *statemachine.Config) (string, error) {
	return GenerateMermaidWithOptions(config, DefaultOptions())
}

// GenerateMermaidFromTable converts a built table to a Mermaid state diagram.
// Tables carry no precondition names, so guards get positional names.
func GenerateMermaidFromTable(table *statemachine.Table, opts Options) (string, error) {
	if table == nil {
		return "", ErrConfigNil
	}

	return GenerateMermaidWithOptions(statemachine.ConfigOf(table), opts)
}

// GenerateMermaidFromFile loads a config from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	return GenerateMermaid(config)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
// States are listed in natural order so that the output is stable.
func GenerateMermaidWithOptions(config *statemachine.Config, opts Options) (string, error) {
	if config == nil {
		return "", ErrConfigNil
	}

	if config.InitialState == "" {
		return "", ErrNoInitialState
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	highlight := make(map[string]bool, len(opts.HighlightPath))
	for _, s := range opts.HighlightPath {
		highlight[s] = true
	}

	terminal := make(map[string]bool, len(config.Terminal))
	for _, s := range config.Terminal {
		terminal[s] = true
	}

	handlers := make(map[string]bool)
	outgoing := make(map[string][]statemachine.RuleConfig)
	seen := map[string]bool{config.InitialState: true}
	states := []string{config.InitialState}

	addState := func(s string) {
		if !seen[s] {
			seen[s] = true
			states = append(states, s)
		}
	}

	for _, r := range config.Rules {
		outgoing[r.From] = append(outgoing[r.From], r)

		if r.Handler != "" {
			handlers[r.MoveTo] = true
		}

		addState(r.From)
		addState(r.MoveTo)
	}

	for _, s := range config.Terminal {
		addState(s)
	}

	natsort.Sort(states)

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	fmt.Fprintf(&sb, "stateDiagram-v2\n    direction %s\n", direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", config.InitialState)

	for _, state := range states {
		if opts.ShowHandlers && handlers[state] {
			fmt.Fprintf(&sb, "    %s: %s\\n[handler]\n", state, state)
		}

		switch {
		case highlight[state]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", state)
		case terminal[state]:
			fmt.Fprintf(&sb, "    class %s terminalState\n", state)
		case handlers[state]:
			fmt.Fprintf(&sb, "    class %s handlerState\n", state)
		}

		for _, r := range outgoing[state] {
			fmt.Fprintf(&sb, "    %s --> %s: %s\n", state, r.MoveTo, transitionLabel(r, opts))
		}

		if terminal[state] {
			fmt.Fprintf(&sb, "    %s --> [*]\n", state)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef handlerState fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef terminalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
	sb.WriteString("```\n")

	return sb.String(), nil
}

func transitionLabel(r statemachine.RuleConfig, opts Options) string {
	if !opts.ShowPreconditions || len(r.When) == 0 {
		return r.On
	}

	return r.On + " [" + strings.Join(r.When, ", ") + "]"
}
