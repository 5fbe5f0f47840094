// Package quiz records learners' answers to the question bank and reports
// their progress through it.
package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/progress"
)

// Submission is one POST of a question page. Leaving AnswerID or
// FreeResponse nil records time only.
type Submission struct {
	QuestionID   int
	AnswerID     *int
	FreeResponse *string
	DTime        int64 // ms on the question
	DHover       int64 // ms hovering visualisations
}

type Summary struct {
	Total         int      `json:"total"`
	Current       int      `json:"current"`
	Answers       []int    `json:"saved_ans_vec"`
	FreeResponses []string `json:"saved_free_res"`
	NextURL       string   `json:"url"`
}

type Engine struct {
	store progress.Store
	bank  *Bank
	log   *slog.Logger
}

func NewEngine(store progress.Store, bank *Bank, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: store, bank: bank, log: log}
}

func (e *Engine) Bank() *Bank { return e.bank }

// RecordResponse validates s against the bank, applies it and moves the
// learner's pointer to the question after s.QuestionID, all in one
// transaction. The pointer moves for timing-only submissions too.
func (e *Engine) RecordResponse(ctx context.Context, learner string, s Submission) (progress.Outcome, error) {
	if learner == "" {
		return 0, apperr.ErrAuthRequired
	}
	if s.QuestionID < 0 || s.QuestionID >= e.bank.Len() {
		return 0, apperr.Validation("question %d out of range [0, %d)", s.QuestionID, e.bank.Len())
	}
	if s.DTime < 0 || s.DHover < 0 {
		return 0, apperr.Validation("elapsed times must not be negative")
	}
	u := progress.ResponseUpdate{
		QuestionID:   s.QuestionID,
		Answer:       s.AnswerID,
		FreeResponse: s.FreeResponse,
		DTime:        s.DTime,
		DHover:       s.DHover,
	}
	if u.Full() {
		if n := e.bank.ChoiceCount(s.QuestionID); *s.AnswerID < 0 || *s.AnswerID >= n {
			return 0, apperr.Validation("answer %d out of range [0, %d) for question %d", *s.AnswerID, n, s.QuestionID)
		}
	}

	var out progress.Outcome
	err := e.store.InTx(ctx, func(tx progress.Ops) error {
		var err error
		if out, err = tx.ApplyResponse(ctx, learner, u); err != nil {
			return err
		}
		return tx.SetPointer(ctx, learner, s.QuestionID+1)
	})
	if err != nil {
		return 0, err
	}
	e.log.Debug("quiz response",
		slog.String("learner", learner),
		slog.Int("question", s.QuestionID),
		slog.Bool("full", u.Full()),
		slog.String("row", out.String()),
	)
	return out, nil
}

// Summary lists every saved answer, -2 and "" standing in for questions the
// learner has not answered.
func (e *Engine) Summary(ctx context.Context, learner string) (Summary, error) {
	if learner == "" {
		return Summary{}, apperr.ErrAuthRequired
	}
	total := e.bank.Len()
	sum := Summary{
		Total:         total,
		Answers:       make([]int, total),
		FreeResponses: make([]string, total),
	}
	for i := range sum.Answers {
		sum.Answers[i] = progress.Unanswered
	}

	cur, err := e.store.Pointer(ctx, learner)
	if err != nil {
		return Summary{}, err
	}
	rs, err := e.store.Responses(ctx, learner)
	if err != nil {
		return Summary{}, err
	}
	for _, r := range rs {
		if r.QuestionID < 0 || r.QuestionID >= total {
			continue
		}
		sum.Answers[r.QuestionID] = r.Answer
		sum.FreeResponses[r.QuestionID] = r.FreeResponse
	}
	sum.Current = cur
	sum.NextURL = fmt.Sprintf("/question/%d/", cur)
	return sum, nil
}

// Question looks up one question; it needs no learner.
func (e *Engine) Question(id int) (Question, error) {
	q, ok := e.bank.Question(id)
	if !ok {
		return Question{}, fmt.Errorf("question %d: %w", id, apperr.ErrNotFound)
	}
	return q, nil
}
