// Package postgres implements the exam storage interfaces on pgx. The
// one-active-attempt-per-user invariant lives in a partial unique index and
// the submit transition in a conditional update, so every instance of the
// service shares the same atomicity guarantees.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS questions (
		question_id    text PRIMARY KEY,
		question_text  text NOT NULL,
		options        jsonb NOT NULL,
		correct_option text NOT NULL,
		subject        text NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS ix_questions_subject ON questions (subject);`,

	`CREATE TABLE IF NOT EXISTS attempts (
		attempt_id     uuid PRIMARY KEY,
		user_id        text NOT NULL,
		questions      jsonb NOT NULL,
		answers        jsonb NOT NULL DEFAULT '{}'::jsonb,
		start_time     timestamptz NOT NULL,
		end_time       timestamptz NOT NULL,
		time_remaining integer NOT NULL,
		has_submitted  boolean NOT NULL DEFAULT false,
		is_active      boolean NOT NULL DEFAULT true
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_attempts_active ON attempts (user_id) WHERE is_active;`,
	`CREATE INDEX IF NOT EXISTS ix_attempts_user ON attempts (user_id, start_time);`,

	`CREATE TABLE IF NOT EXISTS results (
		result_id       uuid PRIMARY KEY,
		user_id         text NOT NULL,
		total_questions integer NOT NULL,
		correct_answers integer NOT NULL,
		score           numeric(4, 1) NOT NULL,
		subject_scores  jsonb NOT NULL,
		create_time     timestamptz NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS ix_results_user ON results (user_id);`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id       text PRIMARY KEY,
		exam_allowed  boolean NOT NULL DEFAULT true,
		attempt_count integer NOT NULL DEFAULT 0
	);`,

	`CREATE TABLE IF NOT EXISTS sessions (
		token   text PRIMARY KEY,
		user_id text NOT NULL,
		role    text NOT NULL
	);`,
}

// Migrate applies the schema. Statements are idempotent, so running it on
// every startup is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
