package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mind-engage/codelab/internal/accounts"
	api "github.com/mind-engage/codelab/internal/api/http"
	"github.com/mind-engage/codelab/internal/auth"
	"github.com/mind-engage/codelab/internal/config"
	"github.com/mind-engage/codelab/internal/db"
	"github.com/mind-engage/codelab/internal/grading"
	"github.com/mind-engage/codelab/internal/logging"
	"github.com/mind-engage/codelab/internal/progress"
	"github.com/mind-engage/codelab/internal/quiz"
	"github.com/mind-engage/codelab/internal/sandbox"
	"github.com/mind-engage/codelab/internal/storage"
	"github.com/mind-engage/codelab/internal/telemetry"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "codelab",
		Usage: "tutorial backend: sandboxed grading, quiz progress and telemetry",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-driver", Value: cfg.DBDriver, Usage: "sqlite or postgres"},
			&cli.StringFlag{Name: "db-dsn", Value: cfg.DBDSN, Usage: "data source name; empty picks the driver default"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: cfg.HTTPAddr, Usage: "listen address"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg.HTTPAddr = cmd.String("addr")
					return serve(ctx, withDB(cfg, cmd), log)
				},
			},
			{
				Name:  "migrate",
				Usage: "create or upgrade the schema",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					h, err := openDB(ctx, withDB(cfg, cmd))
					if err != nil {
						return err
					}
					log.Info("schema up to date", slog.String("driver", cmd.String("db-driver")))
					return h.Close()
				},
			},
			{
				Name:  "import-questions",
				Usage: "replace the question bank with a TOML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "copy this file into the artifact store before importing"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return importQuestions(ctx, withDB(cfg, cmd), cmd.String("file"), log)
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Error("exit", slog.Any("err", err))
		os.Exit(1)
	}
}

func withDB(cfg config.Config, cmd *cli.Command) config.Config {
	cfg.DBDriver = cmd.String("db-driver")
	cfg.DBDSN = cmd.String("db-dsn")
	return cfg
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	h, err := db.OpenAndMigrate(openCtx, driver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return h, nil
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	h, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	artifacts, err := storage.NewFSStore(cfg.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}
	template, err := storage.ReadAll(artifacts, cfg.TemplatePath)
	if err != nil {
		return fmt.Errorf("load template %s: %w", cfg.TemplatePath, err)
	}
	bank, err := quiz.LoadBank(ctx, h)
	if err != nil {
		return err
	}
	if bank.Len() == 0 {
		log.Warn("question bank is empty; run import-questions")
	}

	exec, err := sandbox.New(cfg.Sandbox, log)
	if err != nil {
		return err
	}

	store := progress.NewSQLStore(h)
	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)
	grader := grading.New(store, exec, string(template),
		grading.WithProblems(cfg.NumProblems),
		grading.WithTimeout(cfg.Sandbox.Timeout),
		grading.WithLogger(log),
	)
	quizEngine := quiz.NewEngine(store, bank, log)
	router := api.NewRouter(api.Deps{
		Grading:     grader,
		Quiz:        quizEngine,
		Telemetry:   telemetry.New(store),
		Accounts:    accounts.NewService(h, authSvc, accounts.WithAdmins(cfg.AdminTokens...)),
		Auth:        authSvc,
		DB:          h,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins(),
		// a check may spend the whole sandbox timeout before writing
		RequestTimeout: cfg.Sandbox.Timeout + 30*time.Second,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("listening",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("mode", string(cfg.Mode)),
		slog.String("db", cfg.DBDriver),
		slog.String("sandbox", cfg.Sandbox.Driver),
		slog.Int("problems", grader.Problems()),
		slog.Int("questions", quizEngine.Bank().Len()),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutCtx)
	if s, ok := exec.(sandbox.Shutdowner); ok {
		err = errors.Join(err, s.Shutdown(shutCtx))
	}
	return err
}

func importQuestions(ctx context.Context, cfg config.Config, file string, log *slog.Logger) error {
	artifacts, err := storage.NewFSStore(cfg.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		_, err = artifacts.Put(cfg.QuestionsPath, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("store %s: %w", file, err)
		}
	}
	raw, err := storage.ReadAll(artifacts, cfg.QuestionsPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", cfg.QuestionsPath, err)
	}
	bank, err := quiz.ParseTOML(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	h, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer h.Close()
	if err := quiz.Import(ctx, h, bank); err != nil {
		return err
	}
	log.Info("questions imported", slog.Int("count", bank.Len()), slog.String("from", cfg.QuestionsPath))
	return nil
}
