package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/quiz"
)

// POST /submit
//
//	{ "ques_id": 0, "ans_id": 7, "free_response": "Does not compile because ...",
//	  "time_elapsed_question": 2000, "time_elapsed_hover": 12345 }
//
// ans_id and free_response may be omitted to record time only.
func SubmitResponseHandler(q *quiz.Engine, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		var req struct {
			QuesID              *int    `json:"ques_id"`
			AnsID               *int    `json:"ans_id"`
			FreeResponse        *string `json:"free_response"`
			TimeElapsedQuestion int64   `json:"time_elapsed_question"`
			TimeElapsedHover    int64   `json:"time_elapsed_hover"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			ew.Write(w, r, err)
			return
		}
		if req.QuesID == nil {
			ew.Write(w, r, apperr.Validation("ques_id is required"))
			return
		}
		out, err := q.RecordResponse(r.Context(), learner, quiz.Submission{
			QuestionID:   *req.QuesID,
			AnswerID:     req.AnsID,
			FreeResponse: req.FreeResponse,
			DTime:        req.TimeElapsedQuestion,
			DHover:       req.TimeElapsedHover,
		})
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"outcome": out.String()})
	}
}

// GET /question/{qid}/
func QuestionHandler(q *quiz.Engine, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "qid"))
		if err != nil {
			ew.Write(w, r, apperr.Validation("question id must be a number"))
			return
		}
		question, err := q.Question(id)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, question)
	}
}

// GET /question/ -> { total, current, saved_ans_vec, saved_free_res, url }
func QuizProgressHandler(q *quiz.Engine, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		sum, err := q.Summary(r.Context(), learner)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
