package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/launchlens/internal/application"
	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	domain "github.com/bryanwahyu/launchlens/internal/domain/plans"
	"github.com/bryanwahyu/launchlens/internal/infra/logger"
)

// Completer returns the model's answer as a parsed JSON object.
type Completer interface {
	CompleteJSON(ctx context.Context, userID, phase string, p ai.Prompt) (map[string]any, error)
}

// Prompts builds the model request for a plan.
type Prompts interface {
	Plan(a *ideas.Analysis) ai.Prompt
}

// Service implements the improvement-plan use cases.
type Service struct {
	Repo     domain.Repository
	Analyses ideas.Repository
	AI       Completer
	Prompts  Prompts
	Clock    application.Clock
	Log      *logger.Logger
}

// Generate asks the model for a remediation plan for one owned analysis and stores it.
func (s *Service) Generate(ctx context.Context, userID string, analysisID ideas.AnalysisID) (*domain.ImprovementPlan, error) {
	a, err := s.analysis(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}

	raw, err := s.AI.CompleteJSON(ctx, userID, "plan", s.Prompts.Plan(a))
	if err != nil {
		return nil, err
	}

	p := domain.Normalize(raw, a)
	p.ID = domain.PlanID(uuid.NewString())
	p.CreatedAt = s.now()
	if err := s.Repo.Insert(ctx, &p); err != nil {
		return nil, apperr.Persistence("save improvement plan", err)
	}
	if s.Log != nil {
		s.Log.Info("improvement plan stored", "user", userID, "analysis", analysisID, "steps", len(p.ActionableSteps))
	}
	return &p, nil
}

// Latest returns the newest stored plan for an owned analysis.
func (s *Service) Latest(ctx context.Context, userID string, analysisID ideas.AnalysisID) (*domain.ImprovementPlan, error) {
	if _, err := s.analysis(ctx, userID, analysisID); err != nil {
		return nil, err
	}
	p, err := s.Repo.Latest(ctx, userID, analysisID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Persistence("load improvement plan", err)
	}
	return p, nil
}

func (s *Service) analysis(ctx context.Context, userID string, id ideas.AnalysisID) (*ideas.Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}
	if strings.TrimSpace(string(id)) == "" {
		return nil, apperr.Validation("analysis id is required")
	}
	a, err := s.Analyses.Get(ctx, userID, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Persistence("load analysis", err)
	}
	return a, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
