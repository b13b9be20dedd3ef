package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vegasq/parqview/internal/metrics"
	"github.com/vegasq/parqview/table"
)

// Engine names accepted by NewEngine.
const (
	EngineSQLite = "sqlite"
	EngineNative = "native"
)

// Relation is the name under which the current dataset is queried.
const Relation = "data"

// ErrQuery is wrapped by every error returned from Runner.Run.
var ErrQuery = errors.New("query failed")

// Engine executes SQL against a single table registered as relation.
// Implementations must not modify t.
type Engine interface {
	Name() string
	Execute(ctx context.Context, t *table.Table, relation, sql string) (*table.Table, error)
}

// NewEngine returns the engine registered under name.
func NewEngine(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case EngineSQLite, "":
		return SQLiteEngine{}, nil
	case EngineNative:
		return NativeEngine{}, nil
	default:
		return nil, fmt.Errorf("unknown query engine %q (want %s or %s)", name, EngineSQLite, EngineNative)
	}
}

// Result is the outcome of a query.
type Result struct {
	Table *table.Table
	// Truncated is set when rows beyond the runner's row cap were dropped.
	Truncated bool
}

// Runner runs queries on an engine, applying the row cap and recording
// metrics.
type Runner struct {
	engine  Engine
	maxRows int
	logger  *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxRows caps the number of rows returned. Zero or less means no cap.
func WithMaxRows(n int) Option {
	return func(r *Runner) { r.maxRows = n }
}

// WithLogger sets the logger used for query outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner for engine.
func NewRunner(engine Engine, opts ...Option) *Runner {
	r := &Runner{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine returns the name of the runner's engine.
func (r *Runner) Engine() string {
	return r.engine.Name()
}

// Run executes sql against t, registered as the relation "data".
func (r *Runner) Run(ctx context.Context, t *table.Table, sql string) (*Result, error) {
	timer := metrics.NewTimer()
	result, err := r.run(ctx, t, sql)
	elapsed := timer.Stop()

	metrics.Queries.WithLabelValues(r.engine.Name(), metrics.Outcome(err)).Inc()
	metrics.QueryDuration.WithLabelValues(r.engine.Name()).Observe(elapsed.Seconds())

	if err != nil {
		r.logger.Info("query failed",
			zap.String("engine", r.engine.Name()),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, err
	}

	r.logger.Debug("query executed",
		zap.String("engine", r.engine.Name()),
		zap.Int("rows", result.Table.NumRows()),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", elapsed))
	return result, nil
}

func (r *Runner) run(ctx context.Context, t *table.Table, sql string) (*Result, error) {
	if err := checkText(sql); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	out, err := r.engine.Execute(ctx, t, Relation, sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	result := &Result{Table: out}
	if r.maxRows > 0 && out.NumRows() > r.maxRows {
		result.Table = out.Slice(0, r.maxRows)
		result.Truncated = true
	}
	return result, nil
}
