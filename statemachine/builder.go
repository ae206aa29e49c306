package statemachine

import (
	"github.com/amp-labs/liminal/errors"
	"github.com/amp-labs/liminal/logger"
)

// Builder provides a fluent API for declaring a transition table.
//
//	b := statemachine.NewBuilder("assay")
//	b.StartsIn(Ready{})
//	b.For(Ready{}).
//	    On(Sample{}).When(notEmpty).MoveToHandler(Analyzing{}, analyze)
//	b.For(Analyzing{}).
//	    On(Analysis{}).MoveTo(Done{})
//	b.Terminal(Done{})
//	table, err := b.Build()
//
// Problems are collected while declaring and reported together by Build.
type Builder struct {
	name     string
	initial  State
	rules    []Rule
	keys     map[ruleKey]bool
	terminal []State
	strict   bool
	errs     errors.Collection
}

// NewBuilder creates a new table builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		name: name,
		keys: make(map[ruleKey]bool),
	}
}

// BuildTable runs configure against a fresh builder and builds the table.
func BuildTable(name string, configure func(b *Builder)) (*Table, error) {
	b := NewBuilder(name)
	configure(b)

	return b.Build()
}

// StartsIn declares the state instances start in.
func (b *Builder) StartsIn(state State) *Builder {
	b.initial = state

	return b
}

// Terminal declares states that intentionally have no outgoing rules.
func (b *Builder) Terminal(states ...State) *Builder {
	for _, s := range states {
		if s == nil {
			b.errs.Add(&ConfigurationError{Err: ErrInvalidRule})

			continue
		}

		b.terminal = append(b.terminal, s)
	}

	return b
}

// Strict turns dangling next states into build errors instead of warnings.
func (b *Builder) Strict() *Builder {
	b.strict = true

	return b
}

// For starts declaring the rules of one state.
func (b *Builder) For(state State) *StateRules {
	return &StateRules{builder: b, state: state}
}

// StateRules declares the rules leaving one state.
type StateRules struct {
	builder *Builder
	state   State
}

// On starts a rule for the given signal. Only the signal's name is kept.
func (r *StateRules) On(sig Signal) *RuleBuilder {
	return &RuleBuilder{rules: r, signal: nameOf(sig)}
}

// For switches to declaring the rules of another state.
func (r *StateRules) For(state State) *StateRules {
	return r.builder.For(state)
}

// Builder returns the table builder.
func (r *StateRules) Builder() *Builder {
	return r.builder
}

// RuleBuilder declares a single rule.
type RuleBuilder struct {
	rules         *StateRules
	signal        string
	preconditions []Precondition
}

// When adds preconditions. All of them are checked, in order, and every
// cause they report is kept.
func (r *RuleBuilder) When(preconditions ...Precondition) *RuleBuilder {
	for _, p := range preconditions {
		if p == nil {
			r.rules.builder.errs.Add(&ConfigurationError{
				State:  nameOf(r.rules.state),
				Signal: r.signal,
				Err:    ErrInvalidRule,
			})

			continue
		}

		r.preconditions = append(r.preconditions, p)
	}

	return r
}

// MoveTo completes the rule as a plain move to next.
func (r *RuleBuilder) MoveTo(next State) *StateRules {
	r.add(next, nil, false)

	return r.rules
}

// MoveToHandler completes the rule as a handler rule: the machine enters
// next, which acts as the handler's state, and handler decides how the
// chain continues.
func (r *RuleBuilder) MoveToHandler(next State, handler Handler) *StateRules {
	r.add(next, handler, true)

	return r.rules
}

func (r *RuleBuilder) add(next State, handler Handler, wantHandler bool) {
	b := r.rules.builder
	from := r.rules.state

	cfgErr := func(err error) {
		b.errs.Add(&ConfigurationError{State: nameOf(from), Signal: r.signal, Err: err})
	}

	switch {
	case from == nil || r.signal == "":
		cfgErr(ErrInvalidRule)

		return
	case next == nil, wantHandler && handler == nil:
		cfgErr(ErrMissingNextState)

		return
	}

	key := ruleKey{state: from.Name(), signal: r.signal}
	if b.keys[key] {
		cfgErr(ErrDuplicateRule)

		return
	}

	b.keys[key] = true
	b.rules = append(b.rules, Rule{
		From:          from,
		Signal:        r.signal,
		Preconditions: r.preconditions,
		Handler:       handler,
		Next:          next,
	})
}

// Build validates the declarations and returns the immutable table.
func (b *Builder) Build() (*Table, error) {
	errs := errors.Collection{}

	for _, err := range b.errs.Errors() {
		errs.Add(err)
	}

	if b.initial == nil {
		errs.Add(&ConfigurationError{Err: ErrNoInitialState})
	}

	for _, dangling := range b.danglingTargets() {
		if b.strict {
			errs.Add(&ConfigurationError{State: dangling, Err: ErrDanglingNextState})
		} else {
			logger.Get().Warn("state machine rule targets a state with no rules",
				"machine", b.name, "state", dangling)
		}
	}

	if errs.HasError() {
		return nil, errs.GetError()
	}

	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)

	return newTable(b.name, b.initial, rules, b.terminal), nil
}

// danglingTargets lists targets of plain moves that have no outgoing rules
// and were not declared terminal, in first-appearance order. Handler states
// are exempt: their handler may settle the chain directly.
func (b *Builder) danglingTargets() []string {
	known := make(map[string]bool, len(b.rules)+len(b.terminal))

	for _, r := range b.rules {
		known[r.From.Name()] = true
	}

	for _, s := range b.terminal {
		known[s.Name()] = true
	}

	var out []string

	for _, r := range b.rules {
		if r.HasHandler() {
			continue
		}

		name := r.Next.Name()
		if !known[name] {
			known[name] = true

			out = append(out, name)
		}
	}

	return out
}
