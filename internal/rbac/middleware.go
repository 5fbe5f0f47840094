package rbac

import (
	"net/http"
)

// Guard turns permission checks into chi middleware. deny writes the
// response for a rejected request.
type Guard struct {
	checker *Checker
	deny    func(w http.ResponseWriter, r *http.Request)
}

func NewGuard(c *Checker, deny func(w http.ResponseWriter, r *http.Request)) *Guard {
	if c == nil {
		c = NewChecker(nil)
	}
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	}
	return &Guard{checker: c, deny: deny}
}

// Require enforces a single permission.
func (g *Guard) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !g.checker.Has(role, perm) {
				g.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnerOr lets the owner of the resource through, and anyone else
// holding perm.
func (g *Guard) RequireOwnerOr(perm string, isOwner func(r *http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if isOwner(r) || g.checker.Has(role, perm) {
				next.ServeHTTP(w, r)
				return
			}
			g.deny(w, r)
		})
	}
}
