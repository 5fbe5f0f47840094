// Package accounts registers learners and checks their passwords.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/rbac"
)

// Issuer mints access tokens for an authenticated learner.
type Issuer interface {
	IssueJWT(sub, role string) (string, error)
}

type Service struct {
	db     *sql.DB
	tokens Issuer
	admins map[string]struct{}
	cost   int
}

type Option func(*Service)

// WithAdmins gives the admin role to the listed learner tokens.
func WithAdmins(tokens ...string) Option {
	return func(s *Service) {
		for _, t := range tokens {
			s.admins[t] = struct{}{}
		}
	}
}

// WithCost sets the bcrypt cost; tests use bcrypt.MinCost.
func WithCost(c int) Option { return func(s *Service) { s.cost = c } }

func NewService(h *sql.DB, tokens Issuer, opts ...Option) *Service {
	s := &Service{db: h, tokens: tokens, admins: map[string]struct{}{}, cost: 12}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) roleFor(token string) string {
	if _, ok := s.admins[token]; ok {
		return rbac.RoleAdmin
	}
	return rbac.RoleLearner
}

// Register creates a learner and returns an access token for it.
func (s *Service) Register(ctx context.Context, token, password string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.Validation("token is required")
	}
	if password == "" {
		return "", apperr.Validation("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperr.Validation("password not accepted")
	}
	role := s.roleFor(token)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO learners (token, password_hash, role, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token) DO NOTHING`,
		token, string(hash), role, time.Now().Unix())
	if err != nil {
		return "", apperr.Persistence("register learner", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", apperr.ErrConflict
	}
	return s.tokens.IssueJWT(token, role)
}

// Login checks the password and returns a fresh access token.
func (s *Service) Login(ctx context.Context, token, password string) (string, error) {
	token = strings.TrimSpace(token)
	hash, role, err := s.lookup(ctx, token)
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", apperr.ErrAuthRequired
	}
	// ADMIN_TOKENS can change between restarts
	if r := s.roleFor(token); r != role {
		role = r
		if _, err := s.db.ExecContext(ctx, `UPDATE learners SET role = $1 WHERE token = $2`, role, token); err != nil {
			return "", apperr.Persistence("update role", err)
		}
	}
	return s.tokens.IssueJWT(token, role)
}

// ChangePassword replaces the password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	if newPassword == "" {
		return apperr.Validation("new password is required")
	}
	hash, _, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return apperr.ErrForbidden
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return apperr.Validation("password not accepted")
	}
	_, err = s.db.ExecContext(ctx, `UPDATE learners SET password_hash = $1 WHERE token = $2`, string(newHash), token)
	return apperr.Persistence("change password", err)
}

// Exists reports whether token belongs to a registered learner.
func (s *Service) Exists(ctx context.Context, token string) (bool, error) {
	_, _, err := s.lookup(ctx, token)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrAuthRequired):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) lookup(ctx context.Context, token string) (hash, role string, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT password_hash, role FROM learners WHERE token = $1`, token).Scan(&hash, &role)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", "", apperr.ErrAuthRequired
	case err != nil:
		return "", "", apperr.Persistence("read learner", err)
	}
	return hash, role, nil
}
