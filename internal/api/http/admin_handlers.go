package http

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/codelab/internal/accounts"
	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/grading"
	"github.com/mind-engage/codelab/internal/quiz"
	"github.com/mind-engage/codelab/internal/telemetry"
)

type learnerProgress struct {
	Token  string       `json:"token"`
	Scores []int        `json:"scores"`
	Quiz   quiz.Summary `json:"quiz"`
}

// GET /admin/learners/{token}/progress
//
// Read-only: unlike /state it never seeds rows for the learner.
func LearnerProgressHandler(s *accounts.Service, g *grading.Engine, q *quiz.Engine, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		ok, err := s.Exists(r.Context(), token)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		if !ok {
			ew.Write(w, r, fmt.Errorf("learner %q: %w", token, apperr.ErrNotFound))
			return
		}
		scores, err := g.Scores(r.Context(), token)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		sum, err := q.Summary(r.Context(), token)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, learnerProgress{Token: token, Scores: scores, Quiz: sum})
	}
}

// GET /admin/learners/{token}/pages/{page} -> { token, page, times: [ms, ...] }
func LearnerPageTimesHandler(s *accounts.Service, t *telemetry.Counters, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, page := chi.URLParam(r, "token"), chi.URLParam(r, "page")
		ok, err := s.Exists(r.Context(), token)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		if !ok {
			ew.Write(w, r, fmt.Errorf("learner %q: %w", token, apperr.ErrNotFound))
			return
		}
		times, err := t.PageTimes(r.Context(), token, page)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		if times == nil {
			times = []int64{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "page": page, "times": times})
	}
}

func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
}

// ReadyzHandler answers 503 while the database is unreachable.
func ReadyzHandler(h *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
