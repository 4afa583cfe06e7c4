package harness

import "github.com/roach88/reqtrack/internal/record"

// StepResult records the outcome of one flow step.
type StepResult struct {
	Seq     int                    `json:"seq"`
	Op      string                 `json:"op"`
	Status  string                 `json:"status"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains the result of every flow step in order.
	Trace []StepResult `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final contents of every family file, decoded as
	// generic JSON.
	State map[record.Family][]interface{} `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepResult{},
		Errors: []string{},
		State:  make(map[record.Family][]interface{}),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a flow step result to the trace.
func (r *Result) AddStep(step StepResult) {
	step.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, step)
}
