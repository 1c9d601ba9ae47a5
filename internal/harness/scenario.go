package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario describes one conversation to run against the engine.
type Scenario struct {
	// Name uniquely identifies the scenario; it is also the golden file
	// base name.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Markers are the mention markers the engine strips from replies.
	Markers []string `yaml:"markers,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// FinalPending, when set, asserts the queue length after all steps.
	FinalPending *int `yaml:"final_pending,omitempty"`
}

// Step is either a push or a message; exactly one must be set.
type Step struct {
	Push    *PushStep    `yaml:"push,omitempty"`
	Message *MessageStep `yaml:"message,omitempty"`
}

// PushStep asks a question. Pushes in scenarios are assumed to succeed;
// a push error fails the scenario.
type PushStep struct {
	User    string   `yaml:"user"`
	Channel string   `yaml:"channel"`
	Kind    string   `yaml:"kind"`
	Text    string   `yaml:"text"`
	Extra   []string `yaml:"extra,omitempty"`
}

// MessageStep feeds an incoming envelope to the engine.
type MessageStep struct {
	User    string `yaml:"user"`
	Channel string `yaml:"channel"`
	Text    string `yaml:"text"`

	// Match, when set, asserts whether the message resolved a context.
	Match *bool `yaml:"match,omitempty"`

	// Value, when set, asserts the parsed value of the resolved context.
	Value string `yaml:"value,omitempty"`
}

// LoadScenario reads and validates a scenario file. Unknown YAML fields
// are errors; silent typos in a conformance file are worse than noise.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}

	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// LoadScenarioDir loads every *.yaml scenario in dir, sorted by file
// name for deterministic test order.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func (sc *Scenario) validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range sc.Steps {
		switch {
		case step.Push == nil && step.Message == nil:
			return fmt.Errorf("step %d: push or message is required", i+1)
		case step.Push != nil && step.Message != nil:
			return fmt.Errorf("step %d: push and message are mutually exclusive", i+1)
		}
	}
	return nil
}
