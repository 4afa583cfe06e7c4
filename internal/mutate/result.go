package mutate

import (
	"fmt"

	"github.com/roach88/reqtrack/internal/fault"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the single JSON object printed for an operation.
type Result struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Code returns the fault code carried in Details, if any.
func (r Result) Code() fault.Code {
	if c, ok := r.Details["code"].(fault.Code); ok {
		return c
	}
	if s, ok := r.Details["code"].(string); ok {
		return fault.Code(s)
	}
	return ""
}

// Outcome is what an operation reports on success.
type Outcome struct {
	Message string
	Data    map[string]any
}

func success(o Outcome) Result {
	return Result{Status: StatusSuccess, Message: o.Message, Data: o.Data}
}

// ErrorResult converts any error into an error Result. Domain faults keep
// their message; anything else is reported as an internal failure.
func ErrorResult(err error) Result {
	fe, ok := fault.As(err)
	if !ok {
		return Result{
			Status:  StatusError,
			Message: fmt.Sprintf("Operation failed: %v", err),
			Details: map[string]any{"code": string(fault.Internal)},
		}
	}
	details := make(map[string]any, len(fe.Details)+1)
	for k, v := range fe.Details {
		details[k] = v
	}
	details["code"] = string(fe.Code)
	return Result{Status: StatusError, Message: fe.Message, Details: details}
}
