package quiz

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/db"
)

type Choice struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID                   int      `json:"qid"`
	Filename             string   `json:"filename"`
	Prompt               string   `json:"prompt"`
	Choices              []Choice `json:"choices"`
	ContainsFreeResponse bool     `json:"contains_free_response"`
}

// Bank is the read-only question set. Question ids run 0..Len()-1 and choice
// ids 0..len(Choices)-1, so range checks are all that is needed to validate
// a submission. A Bank is never modified after NewBank.
type Bank struct {
	questions []Question
}

// NewBank copies qs and checks the id layout.
func NewBank(qs []Question) (*Bank, error) {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.Choices = slices.Clone(q.Choices)
		sort.Slice(q.Choices, func(a, b int) bool { return q.Choices[a].ID < q.Choices[b].ID })
		out[i] = q
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	for i, q := range out {
		if q.ID != i {
			return nil, fmt.Errorf("question ids must be 0..%d without gaps, found %d at position %d", len(out)-1, q.ID, i)
		}
		for j, c := range q.Choices {
			if c.ID != j {
				return nil, fmt.Errorf("question %d: choice ids must be 0..%d without gaps, found %d", q.ID, len(q.Choices)-1, c.ID)
			}
		}
	}
	return &Bank{questions: out}, nil
}

func (b *Bank) Len() int { return len(b.questions) }

// Question returns a copy of question id.
func (b *Bank) Question(id int) (Question, bool) {
	if id < 0 || id >= len(b.questions) {
		return Question{}, false
	}
	q := b.questions[id]
	q.Choices = slices.Clone(q.Choices)
	return q, true
}

func (b *Bank) ChoiceCount(id int) int {
	if id < 0 || id >= len(b.questions) {
		return 0
	}
	return len(b.questions[id].Choices)
}

// Questions returns copies of every question in id order.
func (b *Bank) Questions() []Question {
	out := make([]Question, len(b.questions))
	for i := range b.questions {
		out[i], _ = b.Question(i)
	}
	return out
}

// LoadBank reads the questions and choices tables.
func LoadBank(ctx context.Context, h *sql.DB) (*Bank, error) {
	rows, err := h.QueryContext(ctx, `SELECT question_id, filename, prompt, contains_fr FROM questions ORDER BY question_id`)
	if err != nil {
		return nil, apperr.Persistence("load questions", err)
	}
	var qs []Question
	index := map[int]int{}
	for rows.Next() {
		var q Question
		var fr int
		if err := rows.Scan(&q.ID, &q.Filename, &q.Prompt, &fr); err != nil {
			rows.Close()
			return nil, apperr.Persistence("load questions", err)
		}
		q.ContainsFreeResponse = fr != 0
		index[q.ID] = len(qs)
		qs = append(qs, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("load questions", err)
	}

	crows, err := h.QueryContext(ctx, `SELECT question_id, ans_id, choice_text FROM choices ORDER BY question_id, ans_id`)
	if err != nil {
		return nil, apperr.Persistence("load choices", err)
	}
	defer crows.Close()
	for crows.Next() {
		var qid int
		var c Choice
		if err := crows.Scan(&qid, &c.ID, &c.Text); err != nil {
			return nil, apperr.Persistence("load choices", err)
		}
		if i, ok := index[qid]; ok {
			qs[i].Choices = append(qs[i].Choices, c)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, apperr.Persistence("load choices", err)
	}
	return NewBank(qs)
}

// Import replaces the reference tables with b in one transaction.
func Import(ctx context.Context, h *sql.DB, b *Bank) error {
	return db.WithTx(ctx, h, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM choices`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
			return err
		}
		for _, q := range b.questions {
			fr := 0
			if q.ContainsFreeResponse {
				fr = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO questions (question_id, filename, prompt, contains_fr) VALUES ($1, $2, $3, $4)`,
				q.ID, q.Filename, q.Prompt, fr); err != nil {
				return fmt.Errorf("insert question %d: %w", q.ID, err)
			}
			for _, c := range q.Choices {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO choices (question_id, ans_id, choice_text) VALUES ($1, $2, $3)`,
					q.ID, c.ID, c.Text); err != nil {
					return fmt.Errorf("insert choice %d/%d: %w", q.ID, c.ID, err)
				}
			}
		}
		return nil
	})
}
