package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/progress"
	"github.com/mind-engage/codelab/internal/sandbox"
)

const DefaultProblems = 6

// Verdict is what a learner sees after a check. Output is the program's
// stdout when it passed and the diagnostic (stderr) when it did not.
type Verdict struct {
	Correct bool   `json:"correct"`
	Output  string `json:"output"`
}

// State is the saved edit buffer plus one score per problem.
type State struct {
	Snapshot string `json:"answers"`
	Scores   []int  `json:"scores"`
}

type Option func(*config)

type config struct {
	problems int
	timeout  time.Duration
	log      *slog.Logger
}

func WithProblems(n int) Option          { return func(c *config) { c.problems = n } }
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }
func WithLogger(l *slog.Logger) Option   { return func(c *config) { c.log = l } }

// Engine grades submissions by exit status and keeps each learner's score
// vector and edit buffer. template seeds new buffers and is what Reset
// restores; it never changes after New.
type Engine struct {
	store    progress.Store
	exec     sandbox.Executor
	template string
	cfg      config
}

func New(store progress.Store, exec sandbox.Executor, template string, opts ...Option) *Engine {
	cfg := config{
		problems: DefaultProblems,
		timeout:  10 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.problems <= 0 {
		cfg.problems = DefaultProblems
	}
	if cfg.log == nil {
		cfg.log = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: store, exec: exec, template: template, cfg: cfg}
}

func (e *Engine) Problems() int { return e.cfg.problems }

// Check runs snippet and records the verdict for problem together with the
// learner's whole edit buffer. Nothing is written unless the sandbox produced
// a verdict.
func (e *Engine) Check(ctx context.Context, learner string, problem int, snippet, snapshot string) (Verdict, error) {
	if learner == "" {
		return Verdict{}, apperr.ErrAuthRequired
	}
	if problem < 0 || problem >= e.cfg.problems {
		return Verdict{}, apperr.Validation("problem %d out of range [0, %d)", problem, e.cfg.problems)
	}

	res, err := e.exec.Run(ctx, snippet, e.cfg.timeout)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelInfo
		} else if errors.Is(err, apperr.ErrSandboxTimeout) {
			level = slog.LevelWarn
		}
		e.cfg.log.Log(ctx, level, "check aborted",
			slog.String("learner", learner),
			slog.Int("problem", problem),
			slog.Any("err", err),
		)
		return Verdict{}, fmt.Errorf("check problem %d: %w", problem, err)
	}

	v := Verdict{Correct: res.Passed(), Output: res.Stderr}
	score := 0
	if v.Correct {
		v.Output = res.Stdout
		score = 1
	}

	var outcome progress.Outcome
	err = e.store.InTx(ctx, func(tx progress.Ops) error {
		var err error
		if outcome, err = tx.UpsertScore(ctx, learner, problem, score); err != nil {
			return err
		}
		_, err = tx.PutSnapshot(ctx, learner, snapshot)
		return err
	})
	if err != nil {
		return Verdict{}, err
	}

	e.cfg.log.Info("check",
		slog.String("learner", learner),
		slog.Int("problem", problem),
		slog.Bool("correct", v.Correct),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("took", res.Duration),
		slog.String("score_row", outcome.String()),
	)
	return v, nil
}

// Reset zeroes every score and restores the template buffer.
func (e *Engine) Reset(ctx context.Context, learner string) error {
	if learner == "" {
		return apperr.ErrAuthRequired
	}
	return e.store.InTx(ctx, func(tx progress.Ops) error {
		if err := tx.ResetScores(ctx, learner, e.cfg.problems); err != nil {
			return err
		}
		_, err := tx.PutSnapshot(ctx, learner, e.template)
		return err
	})
}

// State returns the learner's buffer and scores, creating the template buffer
// and zero score rows the first time a learner is seen.
func (e *Engine) State(ctx context.Context, learner string) (State, error) {
	if learner == "" {
		return State{}, apperr.ErrAuthRequired
	}
	var st State
	err := e.store.InTx(ctx, func(tx progress.Ops) error {
		snap, err := tx.EnsureSnapshot(ctx, learner, e.template)
		if err != nil {
			return err
		}
		if err := tx.EnsureScores(ctx, learner, e.cfg.problems); err != nil {
			return err
		}
		scores, err := tx.Scores(ctx, learner)
		if err != nil {
			return err
		}
		st = State{Snapshot: snap, Scores: e.dense(scores)}
		return nil
	})
	return st, err
}

// Scores is a read-only view of the score vector; missing rows read as 0.
func (e *Engine) Scores(ctx context.Context, learner string) ([]int, error) {
	scores, err := e.store.Scores(ctx, learner)
	if err != nil {
		return nil, err
	}
	return e.dense(scores), nil
}

func (e *Engine) dense(scores map[int]int) []int {
	out := make([]int, e.cfg.problems)
	for p, v := range scores {
		if p >= 0 && p < len(out) {
			out[p] = v
		}
	}
	return out
}
