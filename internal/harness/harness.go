package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/roach88/reqtrack/internal/config"
	"github.com/roach88/reqtrack/internal/mutate"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/store"
	"github.com/roach88/reqtrack/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs operations with a deterministic clock and operation id.
type Harness struct {
	store   *store.Store
	service *mutate.Service
	clock   *testutil.DeterministicClock
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary data directory, which is removed
// before Run returns.
//
// Execution flow:
// 1. Create a store over an empty temporary root
// 2. Execute setup steps (all must succeed)
// 3. Execute flow steps, comparing each against its expect clause
// 4. Capture the final family files and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	root, err := os.MkdirTemp("", "reqtrack-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario root: %w", err)
	}
	defer os.RemoveAll(root)

	return RunIn(scenario, root)
}

// RunIn executes a scenario against the repository rooted at root. The
// directory is left in place for inspection.
func RunIn(scenario *Scenario, root string) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	st := store.New(config.Default(root), logger)
	clock := testutil.NewDeterministicClock()

	h := &Harness{
		store: st,
		service: mutate.New(st,
			mutate.WithClock(clock),
			mutate.WithOperationIDs(testutil.NewFixedIDGenerator(scenario.Name)),
			mutate.WithLogger(logger),
		),
		clock:  clock,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.captureState(result); err != nil {
		return nil, fmt.Errorf("failed to capture state: %w", err)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step) (mutate.Result, error) {
	payload := step.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return mutate.Result{}, fmt.Errorf("encode payload: %w", err)
	}
	return h.service.Execute(ctx, step.Op, data), nil
}

// executeSetup runs all setup steps. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []Step) error {
	for i, step := range setup {
		res, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if !res.OK() {
			return fmt.Errorf("setup step %d (%s): %s: %s", i, step.Op, res.Code(), res.Message)
		}
		h.logger.Info("setup step completed", "step", i, "op", step.Op)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		res, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		sr := StepResult{
			Op:      step.Op,
			Status:  res.Status,
			Code:    string(res.Code()),
			Message: res.Message,
			Data:    normalizeMap(res.Data),
		}
		result.AddStep(sr)

		for _, msg := range checkExpect(i, step, sr) {
			result.AddError(msg)
		}
	}
	return nil
}

// checkExpect compares a step result with the step's expect clause.
func checkExpect(i int, step Step, got StepResult) []string {
	want := ExpectClause{Status: mutate.StatusSuccess}
	if step.Expect != nil {
		want = *step.Expect
		if want.Status == "" {
			want.Status = mutate.StatusSuccess
		}
	}

	prefix := fmt.Sprintf("flow step %d (%s)", i, step.Op)
	var errs []string
	if got.Status != want.Status {
		errs = append(errs, fmt.Sprintf("%s: expected status %q, got %q (%s)", prefix, want.Status, got.Status, got.Message))
	}
	if want.Code != "" && got.Code != want.Code {
		errs = append(errs, fmt.Sprintf("%s: expected code %q, got %q", prefix, want.Code, got.Code))
	}
	if want.Message != "" && got.Message != want.Message {
		errs = append(errs, fmt.Sprintf("%s: expected message %q, got %q", prefix, want.Message, got.Message))
	}
	if want.MessageContains != "" && !strings.Contains(got.Message, want.MessageContains) {
		errs = append(errs, fmt.Sprintf("%s: expected message containing %q, got %q", prefix, want.MessageContains, got.Message))
	}
	if want.Data != nil && !matchSubset(got.Data, normalizeMap(want.Data)) {
		errs = append(errs, fmt.Sprintf("%s: data mismatch: expected %v, got %v", prefix, want.Data, got.Data))
	}
	return errs
}

// captureState decodes every family file into generic JSON.
func (h *Harness) captureState(result *Result) error {
	for _, f := range record.Families {
		raw, err := h.store.ReadRaw(f)
		if err != nil {
			return err
		}
		items := []interface{}{}
		if raw != nil {
			if err := json.Unmarshal(raw, &items); err != nil {
				return fmt.Errorf("decode %s: %w", f.FileName(), err)
			}
		}
		result.State[f] = items
	}
	return nil
}

// normalizeMap round-trips a value through JSON so that numbers compare
// as float64 whether they came from YAML or from an operation result.
func normalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return m
	}
	return out
}

// matchSubset reports whether every key in want is present in got with an
// equal value. Nested objects are matched recursively; lists must match
// exactly.
func matchSubset(got, want map[string]interface{}) bool {
	for k, wv := range want {
		gv, ok := got[k]
		if !ok {
			return false
		}
		wm, wIsMap := wv.(map[string]interface{})
		gm, gIsMap := gv.(map[string]interface{})
		if wIsMap && gIsMap {
			if !matchSubset(gm, wm) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(gv, wv) {
			return false
		}
	}
	return true
}
