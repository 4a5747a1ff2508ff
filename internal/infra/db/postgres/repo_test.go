package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
)

// Runs against a real database when POSTGRES_TEST_DSN is set.
func TestRepositories(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn, true)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	user := "test-" + uuid.NewString()
	repo := NewAnalysisRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	root := &ideas.Analysis{
		ID:             ideas.AnalysisID(uuid.NewString()),
		UserID:         user,
		IdeaText:       "Invoice reminders for freelancers",
		ViabilityScore: 7,
		ProjectStatus:  ideas.StatusNone,
		CreatedAt:      now,
	}
	root.Breakdown.WeightedOverallScore = "7.4"
	root.Monetization = []string{"Subscription"}
	if err := repo.Insert(ctx, root); err != nil {
		t.Fatalf("Insert root: %v", err)
	}
	parent := root.ID
	child := &ideas.Analysis{
		ID:               ideas.AnalysisID(uuid.NewString()),
		UserID:           user,
		IdeaText:         "Invoice reminders for agencies",
		ParentAnalysisID: &parent,
		ViabilityScore:   6,
		CreatedAt:        now.Add(time.Second),
	}
	if err := repo.Insert(ctx, child); err != nil {
		t.Fatalf("Insert child: %v", err)
	}

	got, err := repo.Get(ctx, user, root.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Breakdown.WeightedOverallScore != "7.4" || len(got.Monetization) != 1 || !got.IsRoot() {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if _, err := repo.Get(ctx, "someone-else", root.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign Get err = %v", err)
	}

	n, err := repo.CountRootSince(ctx, user, ideas.MonthStart(now))
	if err != nil || n != 1 {
		t.Fatalf("CountRootSince = %d, %v", n, err)
	}
	hist, err := repo.History(ctx, user, 10)
	if err != nil || len(hist) != 2 || hist[0].ID != child.ID {
		t.Fatalf("History = %v, %v", hist, err)
	}
	kids, err := repo.Children(ctx, user, root.ID)
	if err != nil || len(kids) != 1 {
		t.Fatalf("Children = %v, %v", kids, err)
	}

	notes := "Talked to 12 freelancers"
	if err := repo.UpdateValidation(ctx, user, root.ID, true, &now, &notes); err != nil {
		t.Fatalf("UpdateValidation: %v", err)
	}
	if err := repo.UpdateStatus(ctx, user, root.ID, ideas.StatusBuilding, now); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := repo.UpdateRecommendationScore(ctx, user, child.ID, 61.5); err != nil {
		t.Fatalf("UpdateRecommendationScore: %v", err)
	}
	unval, err := repo.ListUnvalidated(ctx, user)
	if err != nil || len(unval) != 1 || unval[0].RecommendationScore == nil || *unval[0].RecommendationScore != 61.5 {
		t.Fatalf("ListUnvalidated = %v, %v", unval, err)
	}
	projects, err := repo.ListProjects(ctx, user, "")
	if err != nil || len(projects) != 1 || projects[0].ProjectStatus != ideas.StatusBuilding {
		t.Fatalf("ListProjects = %v, %v", projects, err)
	}
	if p, _ := repo.ListProjects(ctx, user, ideas.StatusLaunched); len(p) != 0 {
		t.Fatalf("status filter ignored: %v", p)
	}

	planRepo := NewPlanRepository(db)
	if _, err := planRepo.Latest(ctx, user, root.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Latest before insert err = %v", err)
	}
	plan := &plans.ImprovementPlan{
		ID:         plans.PlanID(uuid.NewString()),
		AnalysisID: root.ID,
		UserID:     user,
		Summary:    "Narrow the wedge",
		CreatedAt:  now,
	}
	if err := planRepo.Insert(ctx, plan); err != nil {
		t.Fatalf("plan Insert: %v", err)
	}
	latest, err := planRepo.Latest(ctx, user, root.ID)
	if err != nil || latest.Summary != "Narrow the wedge" {
		t.Fatalf("Latest = %+v, %v", latest, err)
	}

	subs := NewSubscriptionRepository(db)
	if active, err := subs.IsActive(ctx, user); err != nil || active {
		t.Fatalf("IsActive = %v, %v", active, err)
	}

	failures := NewFailureRepository(db)
	f := &ai.Failure{UserID: user, Phase: "analyze", Message: "malformed", RawResponse: "not json"}
	if err := failures.Record(ctx, f); err != nil || f.ID == 0 {
		t.Fatalf("Record = %d, %v", f.ID, err)
	}
	list, err := failures.ListByUser(ctx, user, 5)
	if err != nil || len(list) != 1 || list[0].RawResponse != "not json" {
		t.Fatalf("ListByUser = %v, %v", list, err)
	}
}
