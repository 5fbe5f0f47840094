package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/codelab/internal/accounts"
	"github.com/mind-engage/codelab/internal/auth"
	"github.com/mind-engage/codelab/internal/grading"
	"github.com/mind-engage/codelab/internal/logging"
	"github.com/mind-engage/codelab/internal/quiz"
	"github.com/mind-engage/codelab/internal/rbac"
	"github.com/mind-engage/codelab/internal/telemetry"
)

type Deps struct {
	Grading   *grading.Engine
	Quiz      *quiz.Engine
	Telemetry *telemetry.Counters
	Accounts  *accounts.Service
	Auth      *auth.AuthService
	DB        *sql.DB
	Log       *slog.Logger

	CORSOrigins    []string
	Checker        *rbac.Checker // nil means rbac.RolePermissions
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	ew := NewErrorWriter(d.Log)
	guard := rbac.NewGuard(d.Checker, ew.forbidden)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(d.DB))

	// accounts (public); both spellings are in use by clients
	for _, p := range []string{"", "/"} {
		r.Post("/accounts/create"+p, RegisterHandler(d.Accounts, ew))
		r.Post("/accounts/login"+p, LoginHandler(d.Accounts, ew))
	}

	// question content is public; a valid token is still attached if sent
	r.With(auth.OptionalJWT(d.Auth)).Get("/question/{qid}/", QuestionHandler(d.Quiz, ew))

	// Protected API (JWT → learner + role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth, ew.unauthorized))

		pr.With(guard.Require("grading:check")).Post("/check", CheckHandler(d.Grading, ew))
		pr.With(guard.Require("grading:reset")).Post("/reset", ResetHandler(d.Grading, ew))
		pr.With(guard.Require("progress:view-own")).Get("/state", StateHandler(d.Grading, ew))

		pr.With(guard.Require("telemetry:record")).Post("/action/hover", HoverHandler(d.Telemetry, ew))
		pr.With(guard.Require("telemetry:record")).Post("/action/switch", PageSwitchHandler(d.Telemetry, ew))

		pr.With(guard.Require("quiz:submit")).Post("/submit", SubmitResponseHandler(d.Quiz, ew))
		pr.With(guard.Require("quiz:view-own")).Get("/question/", QuizProgressHandler(d.Quiz, ew))

		pr.With(guard.Require("account:change_password")).
			Post("/accounts/password", ChangePasswordHandler(d.Accounts, ew))

		// learners may look at their own record, admins at anyone's
		ownerOrAdmin := guard.RequireOwnerOr("progress:view-all", func(r *http.Request) bool {
			l, ok := auth.LearnerFromContext(r.Context())
			return ok && l == chi.URLParam(r, "token")
		})
		pr.With(ownerOrAdmin).Get("/admin/learners/{token}/progress",
			LearnerProgressHandler(d.Accounts, d.Grading, d.Quiz, ew))
		pr.With(ownerOrAdmin).Get("/admin/learners/{token}/pages/{page}",
			LearnerPageTimesHandler(d.Accounts, d.Telemetry, ew))
	})

	return r
}
