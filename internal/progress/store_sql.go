package progress

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/db"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore works against both SQLite and Postgres; the statements only use
// $n placeholders and ON CONFLICT, which the two share.
type SQLStore struct {
	db   *sql.DB
	q    querier
	inTx bool
	now  func() time.Time
}

func NewSQLStore(h *sql.DB) *SQLStore {
	return &SQLStore{db: h, q: h, now: time.Now}
}

func (s *SQLStore) InTx(ctx context.Context, fn func(Ops) error) error {
	return s.withTx(ctx, func(t *SQLStore) error { return fn(t) })
}

// withTx runs fn against a store bound to a transaction, joining the
// current one if there is one.
func (s *SQLStore) withTx(ctx context.Context, fn func(*SQLStore) error) error {
	if s.inTx {
		return fn(s)
	}
	var fnErr error
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		fnErr = fn(&SQLStore{db: s.db, q: tx, inTx: true, now: s.now})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return apperr.Persistence("transaction", err)
	}
	return err
}

func (s *SQLStore) ts() int64 { return s.now().Unix() }

// insertOrUpdate runs ins (ON CONFLICT DO NOTHING) and falls back to upd
// when the row was already there. Both statements share one transaction.
func (s *SQLStore) insertOrUpdate(ctx context.Context, op, ins string, insArgs []any, upd string, updArgs []any) (Outcome, error) {
	var out Outcome
	err := s.withTx(ctx, func(t *SQLStore) error {
		res, err := t.q.ExecContext(ctx, ins, insArgs...)
		if err != nil {
			return apperr.Persistence(op, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			out = Created
			return nil
		}
		if _, err := t.q.ExecContext(ctx, upd, updArgs...); err != nil {
			return apperr.Persistence(op, err)
		}
		out = Updated
		return nil
	})
	if err != nil {
		return 0, err
	}
	return out, nil
}

// ---- scores ----

func (s *SQLStore) UpsertScore(ctx context.Context, learner string, problem, score int) (Outcome, error) {
	now := s.ts()
	return s.insertOrUpdate(ctx, "upsert score",
		`INSERT INTO scores (token, problem_id, score, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token, problem_id) DO NOTHING`,
		[]any{learner, problem, score, now},
		`UPDATE scores SET score = $1, updated_at = $2 WHERE token = $3 AND problem_id = $4`,
		[]any{score, now, learner, problem},
	)
}

func (s *SQLStore) EnsureScores(ctx context.Context, learner string, n int) error {
	now := s.ts()
	for p := 0; p < n; p++ {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO scores (token, problem_id, score, updated_at) VALUES ($1, $2, 0, $3)
			 ON CONFLICT (token, problem_id) DO NOTHING`,
			learner, p, now); err != nil {
			return apperr.Persistence("seed scores", err)
		}
	}
	return nil
}

func (s *SQLStore) ResetScores(ctx context.Context, learner string, n int) error {
	now := s.ts()
	for p := 0; p < n; p++ {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO scores (token, problem_id, score, updated_at) VALUES ($1, $2, 0, $3)
			 ON CONFLICT (token, problem_id) DO UPDATE SET score = 0, updated_at = EXCLUDED.updated_at`,
			learner, p, now); err != nil {
			return apperr.Persistence("reset scores", err)
		}
	}
	return nil
}

func (s *SQLStore) Scores(ctx context.Context, learner string) (map[int]int, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT problem_id, score FROM scores WHERE token = $1`, learner)
	if err != nil {
		return nil, apperr.Persistence("read scores", err)
	}
	defer rows.Close()
	out := map[int]int{}
	for rows.Next() {
		var p, v int
		if err := rows.Scan(&p, &v); err != nil {
			return nil, apperr.Persistence("read scores", err)
		}
		out[p] = v
	}
	return out, apperr.Persistence("read scores", rows.Err())
}

// ---- edit buffer ----

func (s *SQLStore) PutSnapshot(ctx context.Context, learner, snapshot string) (Outcome, error) {
	now := s.ts()
	return s.insertOrUpdate(ctx, "save edit state",
		`INSERT INTO edit_states (token, edit_state, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO NOTHING`,
		[]any{learner, snapshot, now},
		`UPDATE edit_states SET edit_state = $1, updated_at = $2 WHERE token = $3`,
		[]any{snapshot, now, learner},
	)
}

func (s *SQLStore) EnsureSnapshot(ctx context.Context, learner, seed string) (string, error) {
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO edit_states (token, edit_state, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO NOTHING`,
		learner, seed, s.ts()); err != nil {
		return "", apperr.Persistence("seed edit state", err)
	}
	var snap string
	if err := s.q.QueryRowContext(ctx, `SELECT edit_state FROM edit_states WHERE token = $1`, learner).Scan(&snap); err != nil {
		return "", apperr.Persistence("read edit state", err)
	}
	return snap, nil
}

// ---- quiz ----

func (s *SQLStore) ApplyResponse(ctx context.Context, learner string, u ResponseUpdate) (Outcome, error) {
	now := s.ts()
	if !u.Full() {
		return s.insertOrUpdate(ctx, "record response time",
			`INSERT INTO responses (token, question_id, answer, free_response, time_elapsed, hover_time, updated_at)
			 VALUES ($1, $2, $3, '', $4, $5, $6)
			 ON CONFLICT (token, question_id) DO NOTHING`,
			[]any{learner, u.QuestionID, Unanswered, u.DTime, u.DHover, now},
			`UPDATE responses SET time_elapsed = time_elapsed + $1, hover_time = hover_time + $2, updated_at = $3
			 WHERE token = $4 AND question_id = $5`,
			[]any{u.DTime, u.DHover, now, learner, u.QuestionID},
		)
	}
	return s.insertOrUpdate(ctx, "record response",
		`INSERT INTO responses (token, question_id, answer, free_response, time_elapsed, hover_time, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (token, question_id) DO NOTHING`,
		[]any{learner, u.QuestionID, *u.Answer, *u.FreeResponse, u.DTime, u.DHover, now},
		`UPDATE responses SET answer = $1, free_response = $2,
		   time_elapsed = time_elapsed + $3, hover_time = hover_time + $4, updated_at = $5
		 WHERE token = $6 AND question_id = $7`,
		[]any{*u.Answer, *u.FreeResponse, u.DTime, u.DHover, now, learner, u.QuestionID},
	)
}

func (s *SQLStore) Responses(ctx context.Context, learner string) ([]Response, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT question_id, answer, free_response, time_elapsed, hover_time
		 FROM responses WHERE token = $1 ORDER BY question_id`, learner)
	if err != nil {
		return nil, apperr.Persistence("read responses", err)
	}
	defer rows.Close()
	var out []Response
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.QuestionID, &r.Answer, &r.FreeResponse, &r.TimeElapsed, &r.HoverTime); err != nil {
			return nil, apperr.Persistence("read responses", err)
		}
		out = append(out, r)
	}
	return out, apperr.Persistence("read responses", rows.Err())
}

func (s *SQLStore) SetPointer(ctx context.Context, learner string, current int) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO quiz_progress (token, curr_ques, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET curr_ques = EXCLUDED.curr_ques, updated_at = EXCLUDED.updated_at`,
		learner, current, s.ts())
	return apperr.Persistence("advance quiz pointer", err)
}

// Pointer returns 0 for a learner that never submitted.
func (s *SQLStore) Pointer(ctx context.Context, learner string) (int, error) {
	var cur int
	err := s.q.QueryRowContext(ctx, `SELECT curr_ques FROM quiz_progress WHERE token = $1`, learner).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, apperr.Persistence("read quiz pointer", err)
	}
	return cur, nil
}

// ---- telemetry ----

func (s *SQLStore) IncrementHover(ctx context.Context, learner, surface, item string) (int64, error) {
	var n int64
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO hover_counters (token, svg_name, hover_item, hover_times) VALUES ($1, $2, $3, 1)
		 ON CONFLICT (token, svg_name, hover_item) DO UPDATE SET hover_times = hover_counters.hover_times + 1
		 RETURNING hover_times`,
		learner, surface, item).Scan(&n)
	if err != nil {
		return 0, apperr.Persistence("increment hover", err)
	}
	return n, nil
}

func (s *SQLStore) AppendPageTime(ctx context.Context, learner, page string, elapsedMs int64) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO page_time_log (token, page_item, elapsed_ms, created_at) VALUES ($1, $2, $3, $4)`,
		learner, page, elapsedMs, s.ts())
	return apperr.Persistence("append page time", err)
}

func (s *SQLStore) PageTimes(ctx context.Context, learner, page string) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT elapsed_ms FROM page_time_log WHERE token = $1 AND page_item = $2 ORDER BY id`,
		learner, page)
	if err != nil {
		return nil, apperr.Persistence("read page times", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, apperr.Persistence("read page times", err)
		}
		out = append(out, v)
	}
	return out, apperr.Persistence("read page times", rows.Err())
}
