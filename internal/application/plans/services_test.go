package plans

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	domain "github.com/bryanwahyu/launchlens/internal/domain/plans"
)

type analysesStub struct {
	ideas.Repository
	rows map[ideas.AnalysisID]*ideas.Analysis
}

func (a analysesStub) Get(_ context.Context, userID string, id ideas.AnalysisID) (*ideas.Analysis, error) {
	row, ok := a.rows[id]
	if !ok || row.UserID != userID {
		return nil, apperr.NotFound("analysis %s not found", id)
	}
	return row, nil
}

type planRepo struct {
	saved []*domain.ImprovementPlan
	err   error
}

func (r *planRepo) Insert(_ context.Context, p *domain.ImprovementPlan) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, p)
	return nil
}

func (r *planRepo) Latest(_ context.Context, userID string, id ideas.AnalysisID) (*domain.ImprovementPlan, error) {
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].AnalysisID == id && r.saved[i].UserID == userID {
			return r.saved[i], nil
		}
	}
	return nil, apperr.NotFound("no plan for analysis %s", id)
}

type planAI struct {
	resp   map[string]any
	err    error
	prompt ai.Prompt
}

func (p *planAI) CompleteJSON(_ context.Context, _, phase string, pr ai.Prompt) (map[string]any, error) {
	p.prompt = pr
	return p.resp, p.err
}

type ideaPrompts struct{}

func (ideaPrompts) Plan(a *ideas.Analysis) ai.Prompt {
	return ai.Prompt{System: "plan", User: a.IdeaText}
}

type clock struct{}

func (clock) Now() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

func newPlanService(resp map[string]any) (*Service, *planRepo, *planAI) {
	analyses := analysesStub{rows: map[ideas.AnalysisID]*ideas.Analysis{
		"a-1": {
			ID: "a-1", UserID: "user-1", IdeaText: "Invoice reminders",
			Report: ideas.Report{Breakdown: ideas.Breakdown{
				MarketDemand:          ideas.Dimension{Score: 7},
				TechnicalFeasibility:  ideas.Dimension{Score: 8},
				Differentiation:       ideas.Dimension{Score: 2},
				MonetizationPotential: ideas.Dimension{Score: 6},
				Timing:                ideas.Dimension{Score: 5},
			}},
		},
	}}
	repo := &planRepo{}
	llm := &planAI{resp: resp}
	return &Service{Repo: repo, Analyses: analyses, AI: llm, Prompts: ideaPrompts{}, Clock: clock{}}, repo, llm
}

func TestGenerateStoresNormalizedPlan(t *testing.T) {
	svc, repo, llm := newPlanService(map[string]any{})

	p, err := svc.Generate(context.Background(), "user-1", "a-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(repo.saved) != 1 || p.ID == "" || !p.CreatedAt.Equal(clock{}.Now()) {
		t.Fatalf("plan not stored: %+v", p)
	}
	if len(p.ActionableSteps) != 1 || p.ActionableSteps[0].Category != domain.CategoryProblemSolutionFit {
		t.Fatalf("default step should target differentiation: %+v", p.ActionableSteps)
	}
	if !strings.Contains(llm.prompt.User, "Invoice reminders") {
		t.Fatalf("prompt misses the idea text")
	}

	latest, err := svc.Latest(context.Background(), "user-1", "a-1")
	if err != nil || latest.ID != p.ID {
		t.Fatalf("Latest = %v, %v", latest, err)
	}
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name     string
		user     string
		id       ideas.AnalysisID
		aiErr    error
		storeErr error
		kind     error
	}{
		{name: "missing id", user: "user-1", kind: apperr.ErrValidation},
		{name: "no user", id: "a-1", kind: apperr.ErrUnauthorized},
		{name: "foreign analysis", user: "user-2", id: "a-1", kind: apperr.ErrNotFound},
		{name: "malformed", user: "user-1", id: "a-1", aiErr: apperr.Malformed("oops", errors.New("bad")), kind: apperr.ErrMalformedUpstream},
		{name: "store down", user: "user-1", id: "a-1", storeErr: errors.New("disk full"), kind: apperr.ErrPersistence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, llm := newPlanService(map[string]any{})
			llm.err = tc.aiErr
			repo.err = tc.storeErr
			_, err := svc.Generate(context.Background(), tc.user, tc.id)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("err = %v, want %v", err, tc.kind)
			}
		})
	}
}

func TestLatestWithoutPlan(t *testing.T) {
	svc, _, _ := newPlanService(nil)
	if _, err := svc.Latest(context.Background(), "user-1", "a-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
