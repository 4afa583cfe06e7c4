package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reqtrack/internal/mutate"
	"github.com/roach88/reqtrack/internal/record"
)

// Scenario drives one fresh store through a list of mutations. Setup steps
// must all succeed; Flow steps are checked against their Expect clause and
// recorded in the trace; Assertions run against the store afterwards. Name
// also names the golden trace file.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Setup       []Step      `yaml:"setup,omitempty"`
	Flow        []Step      `yaml:"flow"`
	Assertions  []Assertion `yaml:"assertions,omitempty"`
}

// Step names an operation (or one of its aliases) and its payload. A flow
// step without Expect must succeed.
type Step struct {
	Op      string                 `yaml:"op"`
	Payload map[string]interface{} `yaml:"payload"`
	Expect  *ExpectClause          `yaml:"expect,omitempty"`
}

// ExpectClause describes the Result a flow step should produce. Empty
// fields are not checked, except Status which defaults to success. Data is
// matched as a subset.
type ExpectClause struct {
	Status          string                 `yaml:"status,omitempty"`
	Code            string                 `yaml:"code,omitempty"`
	Message         string                 `yaml:"message,omitempty"`
	MessageContains string                 `yaml:"message_contains,omitempty"`
	Data            map[string]interface{} `yaml:"data,omitempty"`
}

// Assertion checks the final store. Which fields apply depends on Type:
//
//	record        Family, ID, Expect (subset of the stored record)
//	record_count  Family, Count
//	valid         none; the whole store must pass validation
type Assertion struct {
	Type   string                 `yaml:"type"`
	Family string                 `yaml:"family,omitempty"`
	ID     string                 `yaml:"id,omitempty"`
	Expect map[string]interface{} `yaml:"expect,omitempty"`
	Count  int                    `yaml:"count,omitempty"`
}

const (
	AssertRecord      = "record"
	AssertRecordCount = "record_count"
	AssertValid       = "valid"
)

// LoadScenario reads path and parses it with ParseScenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML. Unknown keys are rejected so a
// misspelled section fails loudly instead of being skipped.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func (s *Scenario) check() error {
	switch {
	case s.Name == "":
		return errors.New("name is required")
	case s.Description == "":
		return errors.New("description is required")
	case len(s.Flow) == 0:
		return errors.New("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot have expect clauses", i)
		}
		if err := step.check(); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := step.check(); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if err := step.Expect.check(); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := a.check(); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func (st Step) check() error {
	if st.Op == "" {
		return errors.New("op is required")
	}
	if _, ok := mutate.Lookup(st.Op); !ok {
		return fmt.Errorf("unknown operation %q", st.Op)
	}
	return nil
}

func (e *ExpectClause) check() error {
	if e == nil {
		return nil
	}
	switch e.Status {
	case "", mutate.StatusSuccess, mutate.StatusError:
	default:
		return fmt.Errorf("expect.status must be %q or %q", mutate.StatusSuccess, mutate.StatusError)
	}
	if e.Code != "" && e.Status != mutate.StatusError {
		return fmt.Errorf("expect.code requires status %q", mutate.StatusError)
	}
	return nil
}

func (a Assertion) check() error {
	switch a.Type {
	case AssertValid:
		return nil
	case AssertRecord, AssertRecordCount:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if _, err := record.ParseFamily(a.Family); err != nil {
		return err
	}
	if a.Type == AssertRecord && a.ID == "" {
		return errors.New("record assertion requires id")
	}
	return nil
}
