package http

import (
	"net/http"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/auth"
	"github.com/mind-engage/codelab/internal/grading"
)

func currentLearner(r *http.Request) (string, error) {
	l, ok := auth.LearnerFromContext(r.Context())
	if !ok {
		return "", apperr.ErrAuthRequired
	}
	return l, nil
}

// POST /check  { "problem": 0, "to_grade": "...", "edit_state": "..." }
func CheckHandler(g *grading.Engine, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		var req struct {
			Problem   *int   `json:"problem"`
			ToGrade   string `json:"to_grade"`
			EditState string `json:"edit_state"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			ew.Write(w, r, err)
			return
		}
		if req.Problem == nil {
			ew.Write(w, r, apperr.Validation("problem is required"))
			return
		}
		v, err := g.Check(r.Context(), learner, *req.Problem, req.ToGrade, req.EditState)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// POST /reset
func ResetHandler(g *grading.Engine, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		if err := g.Reset(r.Context(), learner); err != nil {
			ew.Write(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GET /state -> { "answers": "<edit buffer>", "scores": [0,1,...] }
func StateHandler(g *grading.Engine, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		st, err := g.State(r.Context(), learner)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
