package http

import (
	"net/http"

	"github.com/mind-engage/codelab/internal/accounts"
)

type credentials struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// POST /accounts/create  { "token": "...", "password": "..." }
func RegisterHandler(s *accounts.Service, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeJSON(w, r, &req); err != nil {
			ew.Write(w, r, err)
			return
		}
		tok, err := s.Register(r.Context(), req.Token, req.Password)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, tokenResponse{AccessToken: tok})
	}
}

// POST /accounts/login  { "token": "...", "password": "..." }
func LoginHandler(s *accounts.Service, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeJSON(w, r, &req); err != nil {
			ew.Write(w, r, err)
			return
		}
		tok, err := s.Login(r.Context(), req.Token, req.Password)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{AccessToken: tok})
	}
}

// POST /accounts/password  { "old_password": "...", "new_password": "..." }
func ChangePasswordHandler(s *accounts.Service, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			ew.Write(w, r, err)
			return
		}
		if err := s.ChangePassword(r.Context(), learner, req.OldPassword, req.NewPassword); err != nil {
			ew.Write(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
