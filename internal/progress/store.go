// Package progress is the key-addressed persistence layer for per-learner
// state: scores, the saved edit buffer, quiz responses and pointer, hover
// counters and the page-time log. Every operation is a single statement or
// runs inside InTx; nothing here reads a row and writes it back.
package progress

import "context"

// Ops are the per-entity operations. Methods never validate domain ranges;
// the engines do that before calling.
type Ops interface {
	// scores
	UpsertScore(ctx context.Context, learner string, problem, score int) (Outcome, error)
	EnsureScores(ctx context.Context, learner string, n int) error
	ResetScores(ctx context.Context, learner string, n int) error
	Scores(ctx context.Context, learner string) (map[int]int, error)

	// edit buffer
	PutSnapshot(ctx context.Context, learner, snapshot string) (Outcome, error)
	EnsureSnapshot(ctx context.Context, learner, seed string) (string, error)

	// quiz
	ApplyResponse(ctx context.Context, learner string, u ResponseUpdate) (Outcome, error)
	Responses(ctx context.Context, learner string) ([]Response, error)
	SetPointer(ctx context.Context, learner string, current int) error
	Pointer(ctx context.Context, learner string) (int, error)

	// telemetry
	IncrementHover(ctx context.Context, learner, surface, item string) (int64, error)
	AppendPageTime(ctx context.Context, learner, page string, elapsedMs int64) error
	PageTimes(ctx context.Context, learner, page string) ([]int64, error)
}

// Store is Ops plus transactions. fn receives Ops bound to the transaction;
// InTx on an already transactional store joins the outer transaction.
type Store interface {
	Ops
	InTx(ctx context.Context, fn func(Ops) error) error
}
