package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ezdbgen/internal/report"
)

// Scenario defines one end-to-end generation run and its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Server Server `yaml:"server"`

	// Masks are passed to the run unchanged; empty selects every
	// non-reserved database.
	Masks []string `yaml:"masks,omitempty"`

	Options RunOptions `yaml:"options,omitempty"`

	// Failures scripts per-stage failures.
	Failures Failures `yaml:"failures,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Server is the scripted inventory.
type Server struct {
	// Name is the sanitized server name. Defaults to DefaultServer.
	Name      string   `yaml:"name,omitempty"`
	Databases []string `yaml:"databases"`
	// Tables maps a database to its "schema.table" names. Only consulted
	// when an object-level mask narrows the database.
	Tables map[string][]string `yaml:"tables,omitempty"`
	// Unreachable makes the connectivity check fail with this message.
	Unreachable string `yaml:"unreachable,omitempty"`
}

// RunOptions mirrors the generate flags a scenario may set.
type RunOptions struct {
	// Prefix defaults to DefaultPrefix.
	Prefix      string `yaml:"prefix,omitempty"`
	GenerateAPI bool   `yaml:"generate_api,omitempty"`
	// Build defaults to true.
	Build *bool `yaml:"build,omitempty"`
	// Workers defaults to 1 so manifest order is deterministic.
	Workers int `yaml:"workers,omitempty"`
}

// Failures maps a database (generation) or unit name (compile, package) to
// the error message the scripted collaborator returns.
type Failures struct {
	Generation map[string]string `yaml:"generation,omitempty"`
	Compile    map[string]string `yaml:"compile,omitempty"`
	Package    map[string]string `yaml:"package,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Unit is the unit name (outcome).
	Unit string `yaml:"unit,omitempty"`

	// Stage is the outcome stage (outcome, outcome_count).
	Stage string `yaml:"stage,omitempty"`

	// Success is the expected outcome success; nil only checks presence.
	Success *bool `yaml:"success,omitempty"`

	// Count is the expected number of outcomes (outcome_count).
	Count int `yaml:"count,omitempty"`

	// Units is the expected manifest order (unit_order).
	Units []string `yaml:"units,omitempty"`

	// Databases is the expected selection (selected).
	Databases []string `yaml:"databases,omitempty"`

	// Status is the expected run status (status).
	Status string `yaml:"status,omitempty"`

	// Contains is a substring of the abort error (aborted).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertOutcome      = "outcome"
	AssertOutcomeCount = "outcome_count"
	AssertUnitOrder    = "unit_order"
	AssertSelected     = "selected"
	AssertStatus       = "status"
	AssertAborted      = "aborted"
)

// Scenario defaults.
const (
	DefaultServer = "db01"
	DefaultPrefix = "Contoso"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	scenario.applyDefaults()
	return &scenario, nil
}

func (s *Scenario) applyDefaults() {
	if s.Server.Name == "" {
		s.Server.Name = DefaultServer
	}
	if s.Options.Prefix == "" {
		s.Options.Prefix = DefaultPrefix
	}
	if s.Options.Workers == 0 {
		s.Options.Workers = 1
	}
	if s.Options.Build == nil {
		build := true
		s.Options.Build = &build
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Options.Workers < 0 {
		return fmt.Errorf("options.workers must be positive")
	}

	known := make(map[string]bool, len(s.Server.Databases))
	for _, db := range s.Server.Databases {
		known[db] = true
	}
	for db, tables := range s.Server.Tables {
		if !known[db] {
			return fmt.Errorf("server.tables: unknown database %q", db)
		}
		for _, t := range tables {
			if _, _, ok := splitTable(t); !ok {
				return fmt.Errorf("server.tables[%s]: %q is not schema.table", db, t)
			}
		}
	}
	for db := range s.Failures.Generation {
		if !known[db] {
			return fmt.Errorf("failures.generation: unknown database %q", db)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutcome:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for outcome", index)
		}
		if _, err := report.ParseStage(a.Stage); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertOutcomeCount:
		if a.Stage != "" {
			if _, err := report.ParseStage(a.Stage); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertUnitOrder, AssertSelected:
		// An empty list asserts that nothing was registered or selected.
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertAborted:
		// Contains is optional; an empty value only checks that the run aborted.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func splitTable(name string) (schema, table string, ok bool) {
	schema, table, ok = strings.Cut(name, ".")
	return schema, table, ok && schema != "" && table != ""
}
