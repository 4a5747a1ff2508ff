package postgres

import (
    "context"
    "database/sql"
    "errors"

    "github.com/bryanwahyu/launchlens/internal/domain/apperr"
    "github.com/bryanwahyu/launchlens/internal/domain/ideas"
    domain "github.com/bryanwahyu/launchlens/internal/domain/plans"
    "github.com/bryanwahyu/launchlens/internal/infra/db/record"
)

type PlanRepository struct {
    db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
    return &PlanRepository{db: db}
}

func (r *PlanRepository) Insert(ctx context.Context, p *domain.ImprovementPlan) error {
    const q = `
INSERT INTO improvement_plans (id, analysis_id, user_id, plan_json, created_at)
VALUES ($1,$2,$3,$4,$5);`
    args, err := record.PlanArgs(p)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx, q, args...)
    return err
}

// Latest returns the newest plan for an analysis
func (r *PlanRepository) Latest(ctx context.Context, userID string, analysisID ideas.AnalysisID) (*domain.ImprovementPlan, error) {
    const q = `SELECT ` + record.PlanColumns + `
FROM improvement_plans
WHERE user_id=$1 AND analysis_id=$2
ORDER BY created_at DESC, id DESC
LIMIT 1;`
    p, err := record.ScanPlan(r.db.QueryRowContext(ctx, q, userID, string(analysisID)))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, apperr.NotFound("no improvement plan for analysis %s", analysisID)
    }
    return p, err
}
