package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
)

type fakeBackend struct {
	mu         sync.Mutex
	usage      ideas.Usage
	analyzeErr error
	refineErr  error
	planErr    error
	rows       []*ideas.Analysis
	archived   []*ideas.Analysis
	refines    []ideas.Refinement
	analyzed   int
	block      chan struct{}
	seq        int
}

func (f *fakeBackend) Usage(context.Context) (ideas.Usage, error) { return f.usage, nil }

func (f *fakeBackend) nextID() ideas.AnalysisID {
	f.seq++
	return ideas.AnalysisID(fmt.Sprintf("a-%d", f.seq))
}

func (f *fakeBackend) Analyze(_ context.Context, text string) (*ideas.Analysis, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzed++
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	a := &ideas.Analysis{ID: f.nextID(), IdeaText: text, ViabilityScore: 7}
	f.rows = append([]*ideas.Analysis{a}, f.rows...)
	f.usage.Used++
	return a, nil
}

func (f *fakeBackend) Refine(_ context.Context, r ideas.Refinement) (*ideas.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refines = append(f.refines, r)
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	parent := r.ParentID
	a := &ideas.Analysis{ID: f.nextID(), IdeaText: r.IdeaText, ParentAnalysisID: &parent}
	f.rows = append([]*ideas.Analysis{a}, f.rows...)
	return a, nil
}

func (f *fakeBackend) History(context.Context, int) ([]*ideas.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ideas.Analysis(nil), f.rows...), nil
}

func (f *fakeBackend) Get(_ context.Context, id ideas.AnalysisID) (*ideas.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range append(append([]*ideas.Analysis(nil), f.rows...), f.archived...) {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, apperr.NotFound("analysis %s", id)
}

func (f *fakeBackend) GeneratePlan(_ context.Context, id ideas.AnalysisID) (*plans.ImprovementPlan, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	return &plans.ImprovementPlan{ID: "p-1", AnalysisID: id}, nil
}

func (f *fakeBackend) LatestPlan(context.Context, ideas.AnalysisID) (*plans.ImprovementPlan, error) {
	return nil, apperr.NotFound("no plan")
}

func (f *fakeBackend) Recommendations(context.Context) ([]ideas.Recommendation, error) {
	return []ideas.Recommendation{{AnalysisID: "a-1", Score: 70}}, nil
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Low-cost SaaS, Freemium", []string{"Low-cost SaaS", "Freemium"}},
		{"", nil},
		{" , ,", nil},
		{"one", []string{"one"}},
		{"a,,b ,", []string{"a", "b"}},
	}
	for _, tc := range cases {
		got := SplitList(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitList(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestSubmitSuccess(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 1}}
	s := NewSession(b, nil)
	s.SetInput("  Invoice reminders  ")

	a, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	v := s.View()
	if v.State != StateReportShown || v.Current != a || v.Input != "" {
		t.Fatalf("view = %+v", v)
	}
	if a.IdeaText != "Invoice reminders" || len(v.History) != 1 {
		t.Fatalf("analysis = %+v history = %d", a, len(v.History))
	}
}

func TestSubmitEmptyInputRejectedLocally(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 1}}
	s := NewSession(b, nil)
	s.SetInput("   ")
	if _, err := s.Submit(context.Background()); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if b.analyzed != 0 || s.View().State != StateIdle || s.View().Error == "" {
		t.Fatalf("view = %+v", s.View())
	}
}

func TestSubmitLimitReachedSkipsAnalyze(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Used: 1, Limit: 1}}
	s := NewSession(b, nil)
	s.SetInput("Second idea")

	_, err := s.Submit(context.Background())
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("err = %v", err)
	}
	v := s.View()
	if !v.LimitReached || v.Error != "" {
		t.Fatalf("limit must be a dedicated signal, not an error banner: %+v", v)
	}
	if b.analyzed != 0 {
		t.Fatal("analyze called despite exhausted quota")
	}
	if v.Input != "Second idea" || v.State != StateIdle {
		t.Fatalf("input or state lost: %+v", v)
	}
}

func TestSubmitServerQuotaAlsoRaisesLimit(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 1}, analyzeErr: apperr.Quota("limit")}
	s := NewSession(b, nil)
	s.SetInput("Idea")
	s.Submit(context.Background())
	if !s.View().LimitReached {
		t.Fatal("server-side quota rejection not surfaced as limit reached")
	}
}

func TestSubmitFailureRestoresState(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 5, Subscribed: true}}
	s := NewSession(b, nil)
	s.SetInput("First")
	first, err := s.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	b.analyzeErr = errors.New("upstream: model overloaded")
	s.SetInput("Second")
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	v := s.View()
	if v.State != StateReportShown || v.Current != first {
		t.Fatalf("previous report lost: %+v", v)
	}
	if v.Error != "upstream: model overloaded" || v.Input != "Second" {
		t.Fatalf("error = %q input = %q", v.Error, v.Input)
	}
	s.DismissError()
	if s.View().Error != "" {
		t.Fatal("DismissError did not clear the banner")
	}
}

func TestRefineFlow(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 1}}
	s := NewSession(b, nil)
	ctx := context.Background()

	if err := s.StartRefine(); err == nil {
		t.Fatal("refine allowed without a report")
	}
	s.SetInput("Original")
	parent, err := s.Submit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.StartRefine(); err != nil {
		t.Fatalf("StartRefine: %v", err)
	}
	if s.View().State != StateRefining || s.View().RefineDraft.IdeaText != "Original" {
		t.Fatalf("view = %+v", s.View())
	}

	child, err := s.Refine(ctx, RefineForm{IdeaText: "Refined", Monetization: "Low-cost SaaS, Freemium"})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if child.ParentAnalysisID == nil || *child.ParentAnalysisID != parent.ID || child.IdeaText != "Refined" {
		t.Fatalf("child = %+v", child)
	}
	sent := b.refines[0]
	if !reflect.DeepEqual(sent.Monetization, []string{"Low-cost SaaS", "Freemium"}) || sent.LeanMVP != nil || sent.Audience != nil {
		t.Fatalf("refinement = %+v", sent)
	}
	v := s.View()
	if v.State != StateReportShown || v.Current != child || len(v.History) != 2 {
		t.Fatalf("view = %+v", v)
	}
}

func TestRefineFailureKeepsDraft(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 1}, refineErr: apperr.Malformed("oops", errors.New("bad json"))}
	s := NewSession(b, nil)
	s.SetInput("Original")
	parent, _ := s.Submit(context.Background())
	s.StartRefine()

	form := RefineForm{IdeaText: "Refined", AudiencePrimary: "Agencies"}
	if _, err := s.Refine(context.Background(), form); !errors.Is(err, apperr.ErrMalformedUpstream) {
		t.Fatalf("err = %v", err)
	}
	v := s.View()
	if v.State != StateReportShown || v.Current != parent || v.RefineDraft != form || v.Error == "" {
		t.Fatalf("view = %+v", v)
	}
}

func TestViewHistoryItemIsLocal(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 5, Subscribed: true}}
	s := NewSession(b, nil)
	ctx := context.Background()
	s.SetInput("One")
	first, _ := s.Submit(ctx)
	s.SetInput("Two")
	s.Submit(ctx)

	if err := s.ViewHistoryItem(first.ID); err != nil {
		t.Fatalf("ViewHistoryItem: %v", err)
	}
	if s.View().Current.ID != first.ID {
		t.Fatal("current not switched")
	}
	if err := s.ViewHistoryItem("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSingleInFlightOperation(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 5}, block: make(chan struct{})}
	s := NewSession(b, nil)
	s.SetInput("Idea")

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	for !s.View().Busy {
	}
	if s.View().State != StateAnalyzing {
		t.Fatalf("state = %s", s.View().State)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, apperr.ErrBusy) {
		t.Fatalf("second Submit err = %v", err)
	}
	if _, err := s.LoadRecommendations(context.Background()); !errors.Is(err, apperr.ErrBusy) {
		t.Fatalf("LoadRecommendations err = %v", err)
	}
	close(b.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestPlanAndRecommendations(t *testing.T) {
	b := &fakeBackend{usage: ideas.Usage{Limit: 1}}
	s := NewSession(b, nil)
	ctx := context.Background()

	if _, err := s.GeneratePlan(ctx); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("plan without report err = %v", err)
	}
	s.SetInput("Idea")
	a, _ := s.Submit(ctx)

	p, err := s.LoadPlan(ctx)
	if err != nil || p != nil {
		t.Fatalf("LoadPlan = %v, %v", p, err)
	}
	p, err = s.GeneratePlan(ctx)
	if err != nil || p.AnalysisID != a.ID || s.View().Plan != p {
		t.Fatalf("GeneratePlan = %+v, %v", p, err)
	}

	b.planErr = errors.New("model timeout")
	if _, err := s.GeneratePlan(ctx); err == nil || s.View().Error != "model timeout" {
		t.Fatalf("plan failure not surfaced: %v", s.View().Error)
	}
	if s.View().State != StateReportShown {
		t.Fatal("plan failure changed the report state")
	}

	recs, err := s.LoadRecommendations(ctx)
	if err != nil || len(recs) != 1 || len(s.View().Recommendations) != 1 {
		t.Fatalf("recs = %v, %v", recs, err)
	}
}

func TestOpenFetchesAnalysisOutsideHistory(t *testing.T) {
	old := &ideas.Analysis{ID: "old-1", IdeaText: "Older idea", ViabilityScore: 5}
	b := &fakeBackend{usage: ideas.Usage{Limit: 1}, archived: []*ideas.Analysis{old}}
	b.rows = []*ideas.Analysis{{ID: "a-9", IdeaText: "Recent idea"}}
	s := NewSession(b, nil)
	ctx := context.Background()
	if err := s.LoadHistory(ctx); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	if err := s.Open(ctx, "old-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	v := s.View()
	if v.State != StateReportShown || v.Current != old || len(v.History) != 1 {
		t.Fatalf("view = %+v", v)
	}
	if err := s.StartRefine(); err != nil {
		t.Fatalf("StartRefine on fetched analysis: %v", err)
	}
	s.CancelRefine()

	if err := s.Open(ctx, "a-9"); err != nil || s.View().Current.ID != "a-9" {
		t.Fatalf("Open history item: %v", err)
	}
	if err := s.Open(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Open missing err = %v", err)
	}
	if v := s.View(); v.Current.ID != "a-9" || v.Busy {
		t.Fatalf("failed Open changed the session: %+v", v)
	}
}
