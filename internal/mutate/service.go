package mutate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/store"
)

// Clock supplies timestamps for created_at/updated_at.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// OperationIDGenerator produces the id attached to each operation's log lines.
type OperationIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 operation ids.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string. Panics if generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Observer is notified after every executed operation.
type Observer interface {
	ObserveMutation(op, status string, code fault.Code, elapsed time.Duration)
}

// Service executes mutation operations against a store.
type Service struct {
	store    *store.Store
	clock    Clock
	opIDs    OperationIDGenerator
	logger   *slog.Logger
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

// WithOperationIDs overrides the operation id generator.
func WithOperationIDs(g OperationIDGenerator) Option { return func(s *Service) { s.opIDs = g } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithObserver registers an observer, typically the metrics collector.
func WithObserver(o Observer) Option { return func(s *Service) { s.observer = o } }

// New creates a Service.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		clock:  SystemClock{},
		opIDs:  UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tx is the working state of one operation.
type tx struct {
	snap  *store.Snapshot
	now   string
	dirty []record.Family
}

func (t *tx) touch(f record.Family) {
	for _, d := range t.dirty {
		if d == f {
			return
		}
	}
	t.dirty = append(t.dirty, f)
}

// Execute runs the named operation with a raw JSON payload and always
// returns a Result. Panics inside the operation are recovered into an
// internal-error Result.
func (s *Service) Execute(ctx context.Context, name string, payload []byte) (res Result) {
	opID := s.opIDs.Generate()
	logger := s.logger.With("operation", name, "operation_id", opID)
	start := s.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("operation panicked", "panic", r)
			res = ErrorResult(fmt.Errorf("%v", r))
		}
		code := res.Code()
		if s.observer != nil {
			s.observer.ObserveMutation(name, res.Status, code, s.clock.Now().Sub(start))
		}
		if res.OK() {
			logger.Info("operation succeeded", "message", res.Message)
		} else {
			logger.Warn("operation failed", "code", string(code), "message", res.Message)
		}
	}()

	p, err := ParsePayload(payload)
	if err != nil {
		return ErrorResult(err)
	}
	out, err := s.Apply(ctx, name, p)
	if err != nil {
		return ErrorResult(err)
	}
	return success(out)
}

// Apply runs an operation with an already-decoded payload and returns a
// Go error on failure. Nothing is written unless the operation succeeds.
func (s *Service) Apply(ctx context.Context, name string, p Payload) (Outcome, error) {
	op, ok := Lookup(name)
	if !ok {
		return Outcome{}, fault.New(fault.NotFound, "Unknown operation: %s", name)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if err := p.Require(op.Required...); err != nil {
		return Outcome{}, err
	}

	unlock, err := s.store.Lock()
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			s.logger.Warn("release lock", "error", uerr)
		}
	}()

	snap, err := s.store.LoadAll()
	if err != nil {
		return Outcome{}, err
	}

	t := &tx{snap: snap, now: s.clock.Now().UTC().Format(time.RFC3339)}
	out, err := op.run(t, p)
	if err != nil {
		return Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if err := s.store.Commit(snap, t.dirty...); err != nil {
		return Outcome{}, err
	}
	s.logger.Debug("committed", "operation", op.Name, "families", t.dirty)
	return out, nil
}
