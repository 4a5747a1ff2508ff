package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the tables this service reads and writes. subscriptions is
// owned by the billing sync and only created here for local setups.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS idea_analyses (
  id                   UUID         PRIMARY KEY,
  user_id              TEXT         NOT NULL,
  idea_text            TEXT         NOT NULL,
  parent_analysis_id   UUID         NULL,
  viability_score      SMALLINT     NOT NULL,
  report_json          JSONB        NOT NULL,
  recommendation_score DOUBLE PRECISION NULL,
  is_validated         BOOLEAN      NOT NULL DEFAULT FALSE,
  validated_at         TIMESTAMPTZ  NULL,
  validation_notes     TEXT         NULL,
  project_status       TEXT         NOT NULL DEFAULT 'none',
  status_updated_at    TIMESTAMPTZ  NOT NULL,
  created_at           TIMESTAMPTZ  NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON idea_analyses (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_parent ON idea_analyses (user_id, parent_analysis_id)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_status ON idea_analyses (user_id, project_status, status_updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS improvement_plans (
  id          UUID        PRIMARY KEY,
  analysis_id UUID        NOT NULL,
  user_id     TEXT        NOT NULL,
  plan_json   JSONB       NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_analysis ON improvement_plans (user_id, analysis_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
  user_id            TEXT        PRIMARY KEY,
  status             TEXT        NOT NULL,
  current_period_end TIMESTAMPTZ NULL
)`,
	`CREATE TABLE IF NOT EXISTS upstream_failures (
  id           BIGSERIAL   PRIMARY KEY,
  user_id      TEXT        NOT NULL,
  phase        TEXT        NOT NULL,
  message      TEXT        NOT NULL,
  raw_response TEXT        NOT NULL,
  archive_url  TEXT        NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_user ON upstream_failures (user_id, created_at DESC)`,
}

// Migrate applies Schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres schema %d: %w", i, err)
		}
	}
	return nil
}
