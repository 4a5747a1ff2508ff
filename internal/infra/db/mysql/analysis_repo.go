package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	domain "github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/infra/db/record"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Insert stores a new analysis row
func (r *AnalysisRepository) Insert(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO idea_analyses
(id, user_id, idea_text, parent_analysis_id, viability_score, report_json,
 recommendation_score, is_validated, validated_at, validation_notes,
 project_status, status_updated_at, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);
`
	args, err := record.AnalysisArgs(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// Get by ID + owner
func (r *AnalysisRepository) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=? AND id=? LIMIT 1;`
	a, err := record.ScanAnalysis(r.db.QueryRowContext(ctx, q, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("analysis %s not found", id)
	}
	return a, err
}

// History newest first
func (r *AnalysisRepository) History(ctx context.Context, userID string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?;`
	return r.list(ctx, q, userID, limit)
}

func (r *AnalysisRepository) Children(ctx context.Context, userID string, parentID domain.AnalysisID) ([]*domain.Analysis, error) {
	const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=? AND parent_analysis_id=? ORDER BY created_at DESC, id DESC;`
	return r.list(ctx, q, userID, parentID)
}

func (r *AnalysisRepository) ListUnvalidated(ctx context.Context, userID string) ([]*domain.Analysis, error) {
	const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=? AND is_validated=FALSE ORDER BY created_at DESC, id DESC;`
	return r.list(ctx, q, userID)
}

// ListProjects returns analyses that entered the lifecycle, optionally one status only.
func (r *AnalysisRepository) ListProjects(ctx context.Context, userID string, status domain.ProjectStatus) ([]*domain.Analysis, error) {
	if status != "" {
		const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=? AND project_status=? ORDER BY status_updated_at DESC, id DESC;`
		return r.list(ctx, q, userID, status)
	}
	const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=? AND project_status<>'none' ORDER BY status_updated_at DESC, id DESC;`
	return r.list(ctx, q, userID)
}

// CountRootSince counts fresh (non-refinement) analyses created at or after since.
func (r *AnalysisRepository) CountRootSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const q = `
SELECT COUNT(*) FROM idea_analyses
WHERE user_id=? AND parent_analysis_id IS NULL AND created_at >= ?;`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID, since.UTC()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *AnalysisRepository) UpdateValidation(ctx context.Context, userID string, id domain.AnalysisID, validated bool, at *time.Time, notes *string) error {
	const q = `
UPDATE idea_analyses
SET is_validated = ?, validated_at = ?, validation_notes = ?
WHERE user_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q, validated, record.NullTime(at), record.NullString(notes), userID, id)
	return err
}

func (r *AnalysisRepository) UpdateStatus(ctx context.Context, userID string, id domain.AnalysisID, status domain.ProjectStatus, at time.Time) error {
	const q = `
UPDATE idea_analyses
SET project_status = ?, status_updated_at = ?
WHERE user_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q, status, at.UTC(), userID, id)
	return err
}

func (r *AnalysisRepository) UpdateRecommendationScore(ctx context.Context, userID string, id domain.AnalysisID, score float64) error {
	const q = `
UPDATE idea_analyses
SET recommendation_score = ?
WHERE user_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q, score, userID, id)
	return err
}

func (r *AnalysisRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := record.ScanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
