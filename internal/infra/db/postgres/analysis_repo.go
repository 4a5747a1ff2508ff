package postgres

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
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);
`
    args, err := record.AnalysisArgs(a)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx, q, args...)
    return err
}

func (r *AnalysisRepository) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
    const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=$1 AND id=$2
LIMIT 1;`
    a, err := record.ScanAnalysis(r.db.QueryRowContext(ctx, q, userID, string(id)))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, apperr.NotFound("analysis %s not found", id)
    }
    return a, err
}

// History returns analyses ordered by created_at desc
func (r *AnalysisRepository) History(ctx context.Context, userID string, limit int) ([]*domain.Analysis, error) {
    if limit <= 0 { limit = 50 }
    const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
    return r.list(ctx, q, userID, limit)
}

func (r *AnalysisRepository) Children(ctx context.Context, userID string, parentID domain.AnalysisID) ([]*domain.Analysis, error) {
    const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=$1 AND parent_analysis_id=$2
ORDER BY created_at DESC, id DESC;`
    return r.list(ctx, q, userID, string(parentID))
}

func (r *AnalysisRepository) ListUnvalidated(ctx context.Context, userID string) ([]*domain.Analysis, error) {
    const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=$1 AND NOT is_validated
ORDER BY created_at DESC, id DESC;`
    return r.list(ctx, q, userID)
}

// ListProjects returns analyses that entered the lifecycle; empty status means any.
func (r *AnalysisRepository) ListProjects(ctx context.Context, userID string, status domain.ProjectStatus) ([]*domain.Analysis, error) {
    const q = `SELECT ` + record.AnalysisColumns + `
FROM idea_analyses
WHERE user_id=$1 AND project_status<>'none' AND ($2='' OR project_status=$2)
ORDER BY status_updated_at DESC, id DESC;`
    return r.list(ctx, q, userID, string(status))
}

func (r *AnalysisRepository) CountRootSince(ctx context.Context, userID string, since time.Time) (int, error) {
    const q = `
SELECT COUNT(*) FROM idea_analyses
WHERE user_id=$1 AND parent_analysis_id IS NULL AND created_at >= $2;`
    var n int
    if err := r.db.QueryRowContext(ctx, q, userID, since.UTC()).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

func (r *AnalysisRepository) UpdateValidation(ctx context.Context, userID string, id domain.AnalysisID, validated bool, at *time.Time, notes *string) error {
    const q = `
UPDATE idea_analyses
SET is_validated=$1, validated_at=$2, validation_notes=$3
WHERE user_id=$4 AND id=$5;`
    return r.exec(ctx, q, id, validated, record.NullTime(at), record.NullString(notes), userID, string(id))
}

func (r *AnalysisRepository) UpdateStatus(ctx context.Context, userID string, id domain.AnalysisID, status domain.ProjectStatus, at time.Time) error {
    const q = `
UPDATE idea_analyses
SET project_status=$1, status_updated_at=$2
WHERE user_id=$3 AND id=$4;`
    return r.exec(ctx, q, id, string(status), at.UTC(), userID, string(id))
}

func (r *AnalysisRepository) UpdateRecommendationScore(ctx context.Context, userID string, id domain.AnalysisID, score float64) error {
    const q = `
UPDATE idea_analyses
SET recommendation_score=$1
WHERE user_id=$2 AND id=$3;`
    return r.exec(ctx, q, id, score, userID, string(id))
}

// exec runs a single-row update; postgres reports matched rows so a miss is NotFound.
func (r *AnalysisRepository) exec(ctx context.Context, q string, id domain.AnalysisID, args ...any) error {
    res, err := r.db.ExecContext(ctx, q, args...)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return apperr.NotFound("analysis %s not found", id)
    }
    return nil
}

func (r *AnalysisRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Analysis, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
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
