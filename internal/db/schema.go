package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the idempotent DDL for the driver.
func Migrate(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	default:
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS learners (
  token TEXT PRIMARY KEY,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'learner',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
  token TEXT NOT NULL,
  problem_id INTEGER NOT NULL,
  score INTEGER NOT NULL CHECK (score IN (0, 1)),
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (token, problem_id)
);

CREATE TABLE IF NOT EXISTS edit_states (
  token TEXT PRIMARY KEY,
  edit_state TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS responses (
  token TEXT NOT NULL,
  question_id INTEGER NOT NULL,
  answer INTEGER NOT NULL DEFAULT -2,
  free_response TEXT NOT NULL DEFAULT '',
  time_elapsed INTEGER NOT NULL DEFAULT 0 CHECK (time_elapsed >= 0), -- ms
  hover_time INTEGER NOT NULL DEFAULT 0 CHECK (hover_time >= 0),     -- ms
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (token, question_id)
);

CREATE TABLE IF NOT EXISTS quiz_progress (
  token TEXT PRIMARY KEY,
  curr_ques INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hover_counters (
  token TEXT NOT NULL,
  svg_name TEXT NOT NULL,
  hover_item TEXT NOT NULL,
  hover_times INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (token, svg_name, hover_item)
);

CREATE TABLE IF NOT EXISTS page_time_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  token TEXT NOT NULL,
  page_item TEXT NOT NULL,
  elapsed_ms INTEGER NOT NULL CHECK (elapsed_ms >= 0),
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS page_time_log_token_page ON page_time_log (token, page_item);

CREATE TABLE IF NOT EXISTS questions (
  question_id INTEGER PRIMARY KEY,
  filename TEXT NOT NULL,
  prompt TEXT NOT NULL,
  contains_fr INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS choices (
  question_id INTEGER NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
  ans_id INTEGER NOT NULL,
  choice_text TEXT NOT NULL,
  PRIMARY KEY (question_id, ans_id)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS learners (
  token TEXT PRIMARY KEY,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'learner',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
  token TEXT NOT NULL,
  problem_id INTEGER NOT NULL,
  score INTEGER NOT NULL CHECK (score IN (0, 1)),
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (token, problem_id)
);

CREATE TABLE IF NOT EXISTS edit_states (
  token TEXT PRIMARY KEY,
  edit_state TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS responses (
  token TEXT NOT NULL,
  question_id INTEGER NOT NULL,
  answer INTEGER NOT NULL DEFAULT -2,
  free_response TEXT NOT NULL DEFAULT '',
  time_elapsed BIGINT NOT NULL DEFAULT 0 CHECK (time_elapsed >= 0),
  hover_time BIGINT NOT NULL DEFAULT 0 CHECK (hover_time >= 0),
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (token, question_id)
);

CREATE TABLE IF NOT EXISTS quiz_progress (
  token TEXT PRIMARY KEY,
  curr_ques INTEGER NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS hover_counters (
  token TEXT NOT NULL,
  svg_name TEXT NOT NULL,
  hover_item TEXT NOT NULL,
  hover_times BIGINT NOT NULL DEFAULT 0,
  PRIMARY KEY (token, svg_name, hover_item)
);

CREATE TABLE IF NOT EXISTS page_time_log (
  id BIGSERIAL PRIMARY KEY,
  token TEXT NOT NULL,
  page_item TEXT NOT NULL,
  elapsed_ms BIGINT NOT NULL CHECK (elapsed_ms >= 0),
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS page_time_log_token_page ON page_time_log (token, page_item);

CREATE TABLE IF NOT EXISTS questions (
  question_id INTEGER PRIMARY KEY,
  filename TEXT NOT NULL,
  prompt TEXT NOT NULL,
  contains_fr INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS choices (
  question_id INTEGER NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
  ans_id INTEGER NOT NULL,
  choice_text TEXT NOT NULL,
  PRIMARY KEY (question_id, ans_id)
);
`
