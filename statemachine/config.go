package statemachine

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/amp-labs/liminal/errors"
	"gopkg.in/yaml.v3"
)

// Config is the declarative form of a transition table.
//
//	name: door
//	initialState: Closed
//	strict: true
//	terminal: [Broken]
//	rules:
//	  - from: Closed
//	    on: Open
//	    when: [unlocked]
//	    moveTo: Opened
//	  - from: Opened
//	    on: Slam
//	    moveTo: Slamming
//	    handler: slam
type Config struct {
	Name         string       `json:"name"         yaml:"name"`
	InitialState string       `json:"initialState" yaml:"initialState"`
	Strict       bool         `json:"strict"       yaml:"strict"`
	Terminal     []string     `json:"terminal"     yaml:"terminal"`
	Rules        []RuleConfig `json:"rules"        yaml:"rules"`
}

// RuleConfig is one rule of a Config. Handler, when set, makes MoveTo the
// handler's state.
type RuleConfig struct {
	From    string   `json:"from"    yaml:"from"`
	On      string   `json:"on"      yaml:"on"`
	When    []string `json:"when"    yaml:"when"`
	MoveTo  string   `json:"moveTo"  yaml:"moveTo"`
	Handler string   `json:"handler" yaml:"handler"`
}

// LoadConfig loads a table config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromFS loads a table config from a filesystem, such as an embed.FS.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses and validates a YAML table config.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the config's structure. Semantic checks (duplicates,
// dangling states) happen when the table is built.
func (c *Config) Validate() error {
	errs := errors.Collection{}

	if c.Name == "" {
		errs.Add(fmt.Errorf("%w: name is required", ErrInvalidConfig))
	}

	if c.InitialState == "" {
		errs.Add(&ConfigurationError{Err: ErrNoInitialState})
	}

	for i, r := range c.Rules {
		if r.From == "" || r.On == "" {
			errs.Add(fmt.Errorf("%w: rule %d: from and on are required", ErrInvalidConfig, i))
		}

		if r.MoveTo == "" {
			errs.Add(&ConfigurationError{State: r.From, Signal: r.On, Err: ErrMissingNextState})
		}
	}

	return errs.GetError()
}

// Build resolves the config's names through reg and builds the table.
func (c *Config) Build(reg *Registry) (*Table, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if reg == nil {
		reg = NewRegistry()
	}

	b := NewBuilder(c.Name)
	if c.Strict {
		b.Strict()
	}

	b.StartsIn(reg.State(c.InitialState))

	for _, name := range c.Terminal {
		b.Terminal(reg.State(name))
	}

	resolveErrs := errors.Collection{}

	for _, r := range c.Rules {
		rule := b.For(reg.State(r.From)).On(SignalName(r.On))

		for _, name := range r.When {
			p, err := reg.Precondition(name)
			if err != nil {
				resolveErrs.Add(&ConfigurationError{State: r.From, Signal: r.On, Err: err})

				continue
			}

			rule.When(p)
		}

		if r.Handler == "" {
			rule.MoveTo(reg.State(r.MoveTo))

			continue
		}

		h, err := reg.Handler(r.Handler)
		if err != nil {
			resolveErrs.Add(&ConfigurationError{State: r.From, Signal: r.On, Err: err})

			continue
		}

		rule.MoveToHandler(reg.State(r.MoveTo), h)
	}

	table, err := b.Build()

	resolveErrs.Add(err)

	if resolveErrs.HasError() {
		return nil, resolveErrs.GetError()
	}

	return table, nil
}

// ConfigOf describes a built table as a config. Preconditions and handlers
// are anonymous in a table, so they get positional names.
func ConfigOf(table *Table) *Config {
	config := &Config{
		Name: table.Name(),
	}

	if initial := table.Initial(); initial != nil {
		config.InitialState = initial.Name()
	}

	for _, s := range table.States() {
		if table.IsTerminal(s.Name()) {
			config.Terminal = append(config.Terminal, s.Name())
		}
	}

	for i, r := range table.Rules() {
		rc := RuleConfig{
			From:   r.From.Name(),
			On:     r.Signal,
			MoveTo: r.Next.Name(),
		}

		for j := range r.Preconditions {
			rc.When = append(rc.When, "precondition-"+strconv.Itoa(i)+"."+strconv.Itoa(j))
		}

		if r.HasHandler() {
			rc.Handler = "handler-" + strconv.Itoa(i)
		}

		config.Rules = append(config.Rules, rc)
	}

	return config
}
