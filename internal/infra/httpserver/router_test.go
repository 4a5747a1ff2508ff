package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	domai "github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
	"github.com/bryanwahyu/launchlens/internal/middleware"
)

const secret = "router-secret"

type stubIdeas struct {
	err        error
	lastUser   string
	lastText   string
	lastRefine ideas.Refinement
	lastStatus ideas.ProjectStatus
}

func (s *stubIdeas) analysis(id ideas.AnalysisID) *ideas.Analysis {
	return &ideas.Analysis{ID: id, UserID: s.lastUser, ViabilityScore: 7}
}

func (s *stubIdeas) Analyze(_ context.Context, userID, text string) (*ideas.Analysis, error) {
	s.lastUser, s.lastText = userID, text
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis("new"), nil
}

func (s *stubIdeas) Refine(_ context.Context, userID string, r ideas.Refinement) (*ideas.Analysis, error) {
	s.lastUser, s.lastRefine = userID, r
	if s.err != nil {
		return nil, s.err
	}
	a := s.analysis("child")
	a.ParentAnalysisID = &r.ParentID
	return a, nil
}

func (s *stubIdeas) Usage(_ context.Context, userID string) (ideas.Usage, error) {
	s.lastUser = userID
	return ideas.Usage{Used: 1, Limit: 1}, s.err
}

func (s *stubIdeas) History(_ context.Context, userID string, _ int) ([]*ideas.Analysis, error) {
	s.lastUser = userID
	return nil, s.err
}

func (s *stubIdeas) Get(_ context.Context, userID string, id ideas.AnalysisID) (*ideas.Analysis, error) {
	s.lastUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis(id), nil
}

func (s *stubIdeas) Children(context.Context, string, ideas.AnalysisID) ([]*ideas.Analysis, error) {
	return nil, s.err
}

func (s *stubIdeas) Lineage(_ context.Context, _ string, id ideas.AnalysisID) ([]*ideas.Analysis, error) {
	return []*ideas.Analysis{s.analysis(id)}, s.err
}

func (s *stubIdeas) Validate(_ context.Context, _ string, id ideas.AnalysisID, notes string) (*ideas.Analysis, error) {
	a := s.analysis(id)
	a.IsValidated = true
	a.ValidationNotes = &notes
	return a, s.err
}

func (s *stubIdeas) Unvalidate(_ context.Context, _ string, id ideas.AnalysisID) (*ideas.Analysis, error) {
	return s.analysis(id), s.err
}

func (s *stubIdeas) UpdateStatus(_ context.Context, _ string, id ideas.AnalysisID, status ideas.ProjectStatus) (*ideas.Analysis, error) {
	s.lastStatus = status
	a := s.analysis(id)
	a.ProjectStatus = status
	return a, s.err
}

func (s *stubIdeas) Projects(context.Context, string, ideas.ProjectStatus) ([]*ideas.Analysis, error) {
	return nil, s.err
}

func (s *stubIdeas) Recommendations(context.Context, string) ([]ideas.Recommendation, error) {
	return []ideas.Recommendation{{AnalysisID: "a", Score: 80.5, Reason: "Strong market demand"}}, s.err
}

type stubPlans struct{ err error }

func (s stubPlans) Generate(_ context.Context, userID string, id ideas.AnalysisID) (*plans.ImprovementPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &plans.ImprovementPlan{ID: "p", AnalysisID: id, UserID: userID, Summary: "Focus"}, nil
}

func (s stubPlans) Latest(_ context.Context, userID string, id ideas.AnalysisID) (*plans.ImprovementPlan, error) {
	return s.Generate(context.Background(), userID, id)
}

func newTestServer(t *testing.T, svc *stubIdeas, p stubPlans) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(svc, p, Options{JWTSecret: secret}))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any, auth bool) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if auth {
		tok, err := middleware.IssueToken(secret, "user-1", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAnalyzeRoute(t *testing.T) {
	svc := &stubIdeas{}
	srv := newTestServer(t, svc, stubPlans{})

	resp, body := call(t, srv, http.MethodPost, "/v1/analyses", map[string]string{"ideaText": "  Invoice bot\x00 "}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d body = %v", resp.StatusCode, body)
	}
	if svc.lastUser != "user-1" || svc.lastText != "Invoice bot" {
		t.Fatalf("service saw user=%q text=%q", svc.lastUser, svc.lastText)
	}
	if body["viabilityScore"] != float64(7) {
		t.Fatalf("body = %v", body)
	}

	resp, _ = call(t, srv, http.MethodPost, "/v1/analyses", map[string]string{"ideaText": "x"}, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", resp.StatusCode)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		kind    string
		upgrade bool
		raw     string
	}{
		{"validation", apperr.Validation("idea text is required"), http.StatusBadRequest, "validation_error", false, ""},
		{"quota", apperr.Quota("limit reached"), http.StatusPaymentRequired, "quota_exceeded", true, ""},
		{"malformed", apperr.Malformed("not json", errors.New("bad")), http.StatusBadGateway, "malformed_upstream_response", false, "not json"},
		{"busy", apperr.Busy("already running"), http.StatusConflict, "busy", false, ""},
		{"not found", apperr.NotFound("missing"), http.StatusNotFound, "not_found", false, ""},
		{"persistence", apperr.Persistence("save analysis", errors.New("db down")), http.StatusInternalServerError, "persistence_error", false, ""},
		{"provider rate limit", domai.ErrQuotaExceeded, http.StatusTooManyRequests, "upstream_rate_limited", false, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &stubIdeas{err: tc.err}, stubPlans{})
			resp, body := call(t, srv, http.MethodPost, "/v1/analyses", map[string]string{"ideaText": "x"}, true)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if body["kind"] != tc.kind {
				t.Fatalf("kind = %v, want %s", body["kind"], tc.kind)
			}
			if up, _ := body["upgradeRequired"].(bool); up != tc.upgrade {
				t.Fatalf("upgradeRequired = %v", body["upgradeRequired"])
			}
			if raw, _ := body["raw"].(string); raw != tc.raw {
				t.Fatalf("raw = %q", raw)
			}
			if msg, _ := body["error"].(string); msg == "" {
				t.Fatal("error message missing")
			}
		})
	}
}

func TestAnalysisIDValidated(t *testing.T) {
	srv := newTestServer(t, &stubIdeas{}, stubPlans{})
	resp, body := call(t, srv, http.MethodGet, "/v1/analyses/not-a-uuid", nil, true)
	if resp.StatusCode != http.StatusBadRequest || body["kind"] != "validation_error" {
		t.Fatalf("status = %d body = %v", resp.StatusCode, body)
	}
}

func TestRefineRoute(t *testing.T) {
	svc := &stubIdeas{}
	srv := newTestServer(t, svc, stubPlans{})
	id := uuid.NewString()

	resp, body := call(t, srv, http.MethodPost, "/v1/analyses/"+id+"/refine", map[string]any{
		"ideaText":     "Sharper idea",
		"audience":     map[string]string{"primary": " Freelancers "},
		"monetization": []string{"Freemium", " "},
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d body = %v", resp.StatusCode, body)
	}
	r := svc.lastRefine
	if string(r.ParentID) != id || r.Audience.Primary != "Freelancers" || len(r.Monetization) != 1 || r.LeanMVP != nil {
		t.Fatalf("refinement = %+v", r)
	}
	if body["parentAnalysisId"] != id {
		t.Fatalf("body = %v", body)
	}
}

func TestLifecycleRoutes(t *testing.T) {
	svc := &stubIdeas{}
	srv := newTestServer(t, svc, stubPlans{})
	id := uuid.NewString()

	resp, body := call(t, srv, http.MethodPost, "/v1/analyses/"+id+"/validate", map[string]string{"notes": "done"}, true)
	if resp.StatusCode != http.StatusOK || body["isValidated"] != true {
		t.Fatalf("validate: %d %v", resp.StatusCode, body)
	}
	resp, _ = call(t, srv, http.MethodDelete, "/v1/analyses/"+id+"/validate", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unvalidate: %d", resp.StatusCode)
	}
	resp, body = call(t, srv, http.MethodPut, "/v1/analyses/"+id+"/status", map[string]string{"status": "building"}, true)
	if resp.StatusCode != http.StatusOK || svc.lastStatus != ideas.StatusBuilding || body["projectStatus"] != "building" {
		t.Fatalf("status: %d %v", resp.StatusCode, body)
	}
	resp, body = call(t, srv, http.MethodPost, "/v1/analyses/"+id+"/plan", nil, true)
	if resp.StatusCode != http.StatusCreated || body["analysisId"] != id {
		t.Fatalf("plan: %d %v", resp.StatusCode, body)
	}
}

func TestDashboardAndUsage(t *testing.T) {
	srv := newTestServer(t, &stubIdeas{}, stubPlans{})

	resp, body := call(t, srv, http.MethodGet, "/v1/usage", nil, true)
	if resp.StatusCode != http.StatusOK || body["limitReached"] != true || body["used"] != float64(1) {
		t.Fatalf("usage: %d %v", resp.StatusCode, body)
	}

	resp, body = call(t, srv, http.MethodGet, "/v1/dashboard", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	history, ok := body["history"].([]any)
	if !ok || len(history) != 0 {
		t.Fatalf("history should be an empty array: %v", body["history"])
	}
	if recs := body["recommendations"].([]any); len(recs) != 1 {
		t.Fatalf("recommendations = %v", recs)
	}
}

func TestPublicEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubIdeas{}, stubPlans{})
	for _, path := range []string{"/health", "/readyz", "/metrics", "/healthz"} {
		resp, _ := call(t, srv, http.MethodGet, path, nil, false)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestPersistenceErrorBodyIsDescriptive(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:3306: connection refused")
	srv := newTestServer(t, &stubIdeas{err: apperr.Persistence("save analysis", cause)}, stubPlans{})
	resp, body := call(t, srv, http.MethodPost, "/v1/analyses", map[string]string{"ideaText": "x"}, true)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	msg, _ := body["error"].(string)
	if msg != "could not save analysis, storage is temporarily unavailable; please retry" {
		t.Fatalf("error = %q", msg)
	}
	if strings.Contains(msg, "10.0.0.5") {
		t.Fatalf("cause leaked to client: %q", msg)
	}
}
