package plans

import (
	"context"

	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
)

// Repository port for improvement plans
type Repository interface {
	Insert(ctx context.Context, p *ImprovementPlan) error
	Latest(ctx context.Context, userID string, analysisID ideas.AnalysisID) (*ImprovementPlan, error)
}
