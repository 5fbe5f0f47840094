package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("ann", rbac.RoleLearner)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ann", c.Sub)
	assert.Equal(t, rbac.RoleLearner, c.Role)

	_, err = NewAuthService("other", time.Hour).Parse(tok)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)
}

func TestParseRejectsExpiredAndUnsigned(t *testing.T) {
	a := NewAuthService("secret", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Sub: "ann",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	s, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = a.Parse(s)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "ann"})
	s, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(s)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	var seen string
	h := JWTMiddleware(a, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = LearnerFromContext(r.Context())
		assert.Equal(t, rbac.RoleAdmin, rbac.RoleFromContext(r.Context()))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT("root", rbac.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root", seen)
}

func TestOptionalJWT(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	var got bool
	h := OptionalJWT(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, got = LearnerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/question/0/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, got)
}
