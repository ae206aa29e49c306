package statemachine

import (
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Rule is one entry of a transition table: in state From, signal Signal
// moves the machine to Next once every precondition agrees. When Handler is
// set, Next is the handler's own state and the handler decides where the
// chain ends up.
type Rule struct {
	From          State
	Signal        string
	Preconditions []Precondition
	Handler       Handler
	Next          State
}

// HasHandler reports whether the rule delegates to a handler.
func (r Rule) HasHandler() bool {
	return r.Handler != nil
}

type ruleKey struct {
	state  string
	signal string
}

// Table is an immutable, validated transition table. It is safe for
// concurrent use by any number of engines and instances.
type Table struct {
	name        string
	initial     State
	rules       []Rule
	index       map[ruleKey]int
	states      []State
	byName      map[string]State
	terminal    map[string]bool
	fingerprint uint64
}

func newTable(name string, initial State, rules []Rule, terminal []State) *Table {
	t := &Table{
		name:     name,
		initial:  initial,
		rules:    rules,
		index:    make(map[ruleKey]int, len(rules)),
		byName:   make(map[string]State),
		terminal: make(map[string]bool, len(terminal)),
	}

	t.addState(initial)

	for i, r := range rules {
		t.index[ruleKey{state: r.From.Name(), signal: r.Signal}] = i
		t.addState(r.From)
		t.addState(r.Next)
	}

	for _, s := range terminal {
		t.addState(s)
		t.terminal[s.Name()] = true
	}

	t.fingerprint = fingerprint(t)

	return t
}

func (t *Table) addState(s State) {
	if s == nil {
		return
	}

	if _, ok := t.byName[s.Name()]; ok {
		return
	}

	t.byName[s.Name()] = s
	t.states = append(t.states, s)
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Initial returns the state new instances start in.
func (t *Table) Initial() State { //nolint:ireturn
	return t.initial
}

// Lookup returns the rule for (state, signal), if any.
func (t *Table) Lookup(state, signal string) (Rule, bool) {
	i, ok := t.index[ruleKey{state: state, signal: signal}]
	if !ok {
		return Rule{}, false
	}

	return t.rules[i], true
}

// Rules returns the rules in declaration order.
func (t *Table) Rules() []Rule {
	return slices.Clone(t.rules)
}

// States returns every state the table mentions, in order of first appearance.
func (t *Table) States() []State {
	return slices.Clone(t.states)
}

// State resolves a state name to the value registered in the table.
func (t *Table) State(name string) (State, bool) { //nolint:ireturn
	s, ok := t.byName[name]

	return s, ok
}

// IsTerminal reports whether the state was declared terminal.
func (t *Table) IsTerminal(name string) bool {
	return t.terminal[name]
}

// HasRulesFrom reports whether any rule starts in the named state.
func (t *Table) HasRulesFrom(name string) bool {
	for _, r := range t.rules {
		if r.From.Name() == name {
			return true
		}
	}

	return false
}

// SignalsFor returns the signals accepted in the named state, in
// declaration order.
func (t *Table) SignalsFor(state string) []string {
	var out []string

	for _, r := range t.rules {
		if r.From.Name() == state {
			out = append(out, r.Signal)
		}
	}

	return out
}

// Fingerprint is a stable hash of the table's structure (names, rule keys,
// targets, handler presence, precondition counts and terminal states). Two
// tables with the same fingerprint route every signal the same way.
func (t *Table) Fingerprint() uint64 {
	return t.fingerprint
}

func fingerprint(t *Table) uint64 {
	lines := make([]string, 0, len(t.rules)+len(t.terminal)+1)
	lines = append(lines, "initial="+nameOf(t.initial))

	for _, r := range t.rules {
		lines = append(lines, strings.Join([]string{
			r.From.Name(),
			r.Signal,
			r.Next.Name(),
			strconv.FormatBool(r.HasHandler()),
			strconv.Itoa(len(r.Preconditions)),
		}, "|"))
	}

	for name := range t.terminal {
		lines = append(lines, "terminal="+name)
	}

	slices.Sort(lines)

	return xxh3.HashString(strings.Join(lines, "\n"))
}
