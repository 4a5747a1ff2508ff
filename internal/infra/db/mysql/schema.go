package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the tables this service reads and writes. subscriptions is
// owned by the billing sync and only created here for local setups.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS idea_analyses (
  id                   CHAR(36)     NOT NULL PRIMARY KEY,
  user_id              VARCHAR(128) NOT NULL,
  idea_text            TEXT         NOT NULL,
  parent_analysis_id   CHAR(36)     NULL,
  viability_score      TINYINT      NOT NULL,
  report_json          JSON         NOT NULL,
  recommendation_score DOUBLE       NULL,
  is_validated         BOOLEAN      NOT NULL DEFAULT FALSE,
  validated_at         DATETIME(6)  NULL,
  validation_notes     TEXT         NULL,
  project_status       VARCHAR(16)  NOT NULL DEFAULT 'none',
  status_updated_at    DATETIME(6)  NOT NULL,
  created_at           DATETIME(6)  NOT NULL,
  KEY idx_analyses_user_created (user_id, created_at),
  KEY idx_analyses_parent (user_id, parent_analysis_id),
  KEY idx_analyses_status (user_id, project_status, status_updated_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS improvement_plans (
  id          CHAR(36)     NOT NULL PRIMARY KEY,
  analysis_id CHAR(36)     NOT NULL,
  user_id     VARCHAR(128) NOT NULL,
  plan_json   JSON         NOT NULL,
  created_at  DATETIME(6)  NOT NULL,
  KEY idx_plans_analysis (user_id, analysis_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
  user_id            VARCHAR(128) NOT NULL PRIMARY KEY,
  status             VARCHAR(32)  NOT NULL,
  current_period_end DATETIME(6)  NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS upstream_failures (
  id           BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  user_id      VARCHAR(128) NOT NULL,
  phase        VARCHAR(16)  NOT NULL,
  message      TEXT         NOT NULL,
  raw_response MEDIUMTEXT   NOT NULL,
  archive_url  VARCHAR(512) NOT NULL DEFAULT '',
  created_at   DATETIME(6)  NOT NULL,
  KEY idx_failures_user (user_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies Schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql schema %d: %w", i, err)
		}
	}
	return nil
}
