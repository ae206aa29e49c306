package validator

import (
	"fmt"
	"slices"
	"sync"

	"github.com/amp-labs/liminal/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a config for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(config *statemachine.Config) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&unreachableStateRule{},
		&danglingNextStateRule{},
		&handlerStateWithoutRulesRule{},
		&terminalStateHasRulesRule{},
		&duplicateRuleRule{},
	}
}

var (
	registeredMu sync.RWMutex
	registered   []Rule
)

// RegisterRule adds a custom validation rule run by every validation.
func RegisterRule(rule Rule) {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	registered = append(registered, rule)
}

func registeredRules() []Rule {
	registeredMu.RLock()
	defer registeredMu.RUnlock()

	return slices.Clone(registered)
}

// graph is the routing structure of a config.
type graph struct {
	initial  string
	states   []string
	outgoing map[string][]statemachine.RuleConfig
	terminal map[string]bool
	handlers map[string]bool
}

func graphOf(config *statemachine.Config) *graph {
	g := &graph{
		initial:  config.InitialState,
		outgoing: make(map[string][]statemachine.RuleConfig),
		terminal: make(map[string]bool),
		handlers: make(map[string]bool),
	}

	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			g.states = append(g.states, s)
		}
	}

	add(config.InitialState)

	for _, r := range config.Rules {
		add(r.From)
		add(r.MoveTo)

		g.outgoing[r.From] = append(g.outgoing[r.From], r)

		if r.Handler != "" {
			g.handlers[r.MoveTo] = true
		}
	}

	for _, s := range config.Terminal {
		add(s)
		g.terminal[s] = true
	}

	return g
}

// unreachableStateRule warns about states no rule path leads to from the
// initial state. Handlers may still jump there, so this is only a warning.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *unreachableStateRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	g := graphOf(config)

	reachable := map[string]bool{g.initial: true}
	queue := []string{g.initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, rule := range g.outgoing[current] {
			if !reachable[rule.MoveTo] {
				reachable[rule.MoveTo] = true
				queue = append(queue, rule.MoveTo)
			}
		}
	}

	for _, s := range g.states {
		if !reachable[s] {
			warnings = append(warnings, ValidationWarning{
				Code:     "UNREACHABLE_STATE",
				Message:  fmt.Sprintf("state '%s' is unreachable from initial state '%s'", s, g.initial),
				Location: Location{State: s},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// danglingNextStateRule flags plain moves into states that accept no
// signals and were not declared terminal.
type danglingNextStateRule struct{}

func (r *danglingNextStateRule) Name() string {
	return "DanglingNextState"
}

func (r *danglingNextStateRule) Severity() Severity {
	return SeverityError
}

func (r *danglingNextStateRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	g := graphOf(config)
	reported := make(map[string]bool)

	for _, rule := range config.Rules {
		next := rule.MoveTo
		if rule.Handler != "" || g.terminal[next] || len(g.outgoing[next]) > 0 || reported[next] {
			continue
		}

		reported[next] = true

		errors = append(errors, ValidationError{
			Code: "DANGLING_NEXT_STATE",
			Message: fmt.Sprintf("rule '%s' on '%s' moves to '%s', which accepts no signals and is not terminal",
				rule.From, rule.On, next),
			Location: Location{State: rule.From, Signal: rule.On},
			Fix:      MarkTerminal(next),
		})
	}

	return RuleResult{Errors: errors}
}

// handlerStateWithoutRulesRule warns about handler states that accept no
// signals: their handler can only finish by returning a state directly.
type handlerStateWithoutRulesRule struct{}

func (r *handlerStateWithoutRulesRule) Name() string {
	return "HandlerStateWithoutRules"
}

func (r *handlerStateWithoutRulesRule) Severity() Severity {
	return SeverityWarning
}

func (r *handlerStateWithoutRulesRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	g := graphOf(config)

	for _, s := range g.states {
		if g.handlers[s] && len(g.outgoing[s]) == 0 {
			warnings = append(warnings, ValidationWarning{
				Code:     "HANDLER_STATE_WITHOUT_RULES",
				Message:  fmt.Sprintf("handler state '%s' accepts no signals; its handler cannot emit any", s),
				Location: Location{State: s},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// terminalStateHasRulesRule flags terminal states that still accept signals.
type terminalStateHasRulesRule struct{}

func (r *terminalStateHasRulesRule) Name() string {
	return "TerminalStateHasRules"
}

func (r *terminalStateHasRulesRule) Severity() Severity {
	return SeverityError
}

func (r *terminalStateHasRulesRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	g := graphOf(config)

	for _, s := range config.Terminal {
		for _, rule := range g.outgoing[s] {
			errors = append(errors, ValidationError{
				Code:     "TERMINAL_STATE_HAS_RULES",
				Message:  fmt.Sprintf("terminal state '%s' has a rule for signal '%s'", s, rule.On),
				Location: Location{State: s, Signal: rule.On},
				Fix:      RemoveRule(s, rule.On),
			})
		}
	}

	return RuleResult{Errors: errors}
}

// duplicateRuleRule flags two rules for the same state and signal.
type duplicateRuleRule struct{}

func (r *duplicateRuleRule) Name() string {
	return "DuplicateRule"
}

func (r *duplicateRuleRule) Severity() Severity {
	return SeverityError
}

func (r *duplicateRuleRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	seen := make(map[[2]string]bool)

	for _, rule := range config.Rules {
		key := [2]string{rule.From, rule.On}
		if seen[key] {
			errors = append(errors, ValidationError{
				Code:     "DUPLICATE_RULE",
				Message:  fmt.Sprintf("state '%s' has more than one rule for signal '%s'", rule.From, rule.On),
				Location: Location{State: rule.From, Signal: rule.On},
				Fix:      RemoveDuplicateRule(rule.From, rule.On),
			})

			continue
		}

		seen[key] = true
	}

	return RuleResult{Errors: errors}
}
