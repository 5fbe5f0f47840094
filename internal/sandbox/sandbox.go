// Package sandbox runs one learner snippet in isolation and reports how it
// exited. An Executor keeps no state between runs other than bookkeeping for
// processes that are still alive.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/config"
)

const DefaultMaxOutput = 64 << 10

// Result is what a finished run produced. A run that exits non-zero is still
// a Result; only failures of the environment come back as errors.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

func (r Result) Passed() bool { return r.ExitCode == 0 }

// Executor runs a snippet. Implementations return apperr.ErrSandboxTimeout
// when timeout elapses, ctx.Err() when the caller gives up first, and an
// apperr.ErrSandboxFailure for anything that prevented a verdict.
type Executor interface {
	Run(ctx context.Context, snippet string, timeout time.Duration) (Result, error)
}

// Shutdowner is implemented by executors that can leave work running outside
// this process (containers).
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, snippet string, timeout time.Duration) (Result, error)

func (f ExecutorFunc) Run(ctx context.Context, snippet string, timeout time.Duration) (Result, error) {
	return f(ctx, snippet, timeout)
}

// New builds the executor selected by cfg.Driver.
func New(cfg config.Sandbox, log *slog.Logger) (Executor, error) {
	switch cfg.Driver {
	case "docker", "":
		return NewDockerExecutor(cfg.Image,
			WithConstraints(ConstraintsFrom(cfg)),
			WithMaxOutput(cfg.MaxOutputBytes),
			WithDefaultTimeout(cfg.Timeout),
			WithLogger(log),
		), nil
	case "process":
		return NewProcessExecutor(cfg.Command,
			WithMaxOutput(cfg.MaxOutputBytes),
			WithDefaultTimeout(cfg.Timeout),
			WithLogger(log),
		)
	default:
		return nil, fmt.Errorf("sandbox: unknown driver %q", cfg.Driver)
	}
}

// Option configures either executor.
type Option func(*options)

type options struct {
	constraints Constraints
	maxOutput   int
	timeout     time.Duration
	log         *slog.Logger
	bin         string
}

func WithConstraints(c Constraints) Option { return func(o *options) { o.constraints = c } }
func WithMaxOutput(n int) Option           { return func(o *options) { o.maxOutput = n } }
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithBinary overrides the docker CLI path.
func WithBinary(path string) Option { return func(o *options) { o.bin = path } }

func buildOptions(opts []Option) options {
	o := options{
		constraints: DefaultConstraints(),
		maxOutput:   DefaultMaxOutput,
		timeout:     10 * time.Second,
		bin:         "docker",
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.maxOutput <= 0 {
		o.maxOutput = DefaultMaxOutput
	}
	if o.timeout <= 0 {
		o.timeout = 10 * time.Second
	}
	if o.log == nil {
		o.log = slog.New(slog.DiscardHandler)
	}
	return o
}

// classify turns the outcome of a finished command into the executor contract.
func classify(ctx, runCtx context.Context, res Result, err error) (Result, error) {
	switch {
	case ctx.Err() != nil:
		return res, ctx.Err()
	case runCtx.Err() == context.DeadlineExceeded:
		return res, apperr.ErrSandboxTimeout
	case err != nil:
		return res, fmt.Errorf("sandbox: %v: %w", err, apperr.ErrSandboxFailure)
	}
	return res, nil
}
