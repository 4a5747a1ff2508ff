package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	domai "github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
	"github.com/bryanwahyu/launchlens/internal/infra/logger"
	"github.com/bryanwahyu/launchlens/internal/middleware"
)

// IdeasService is the analysis use-case surface the router needs.
type IdeasService interface {
	Analyze(ctx context.Context, userID, ideaText string) (*ideas.Analysis, error)
	Refine(ctx context.Context, userID string, r ideas.Refinement) (*ideas.Analysis, error)
	Usage(ctx context.Context, userID string) (ideas.Usage, error)
	History(ctx context.Context, userID string, limit int) ([]*ideas.Analysis, error)
	Get(ctx context.Context, userID string, id ideas.AnalysisID) (*ideas.Analysis, error)
	Children(ctx context.Context, userID string, id ideas.AnalysisID) ([]*ideas.Analysis, error)
	Lineage(ctx context.Context, userID string, id ideas.AnalysisID) ([]*ideas.Analysis, error)
	Validate(ctx context.Context, userID string, id ideas.AnalysisID, notes string) (*ideas.Analysis, error)
	Unvalidate(ctx context.Context, userID string, id ideas.AnalysisID) (*ideas.Analysis, error)
	UpdateStatus(ctx context.Context, userID string, id ideas.AnalysisID, status ideas.ProjectStatus) (*ideas.Analysis, error)
	Projects(ctx context.Context, userID string, status ideas.ProjectStatus) ([]*ideas.Analysis, error)
	Recommendations(ctx context.Context, userID string) ([]ideas.Recommendation, error)
}

type PlansService interface {
	Generate(ctx context.Context, userID string, analysisID ideas.AnalysisID) (*plans.ImprovementPlan, error)
	Latest(ctx context.Context, userID string, analysisID ideas.AnalysisID) (*plans.ImprovementPlan, error)
}

// Options for NewRouter. Zero values disable the optional pieces.
type Options struct {
	JWTSecret       string
	AllowedOrigins  []string
	RateLimit       int
	RateLimitRefill int
	Health          map[string]middleware.HealthChecker
	Failures        domai.FailureLog
	Log             *logger.Logger
}

type Router struct {
	ideasSvc IdeasService
	plansSvc PlansService
	failures domai.FailureLog
	log      *logger.Logger
}

func NewRouter(ideasSvc IdeasService, plansSvc PlansService, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	r := &Router{ideasSvc: ideasSvc, plansSvc: plansSvc, failures: opts.Failures, log: log}
	mux := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.Health))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.JWTAuth(opts.JWTSecret))
		if opts.RateLimit > 0 {
			rt.Use(middleware.RateLimitMiddleware(opts.RateLimit, opts.RateLimitRefill))
		}

		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Get("/analyses", r.wrap(r.handleHistory))
		rt.Route("/analyses/{id}", func(a chi.Router) {
			a.Get("/", r.wrap(r.handleGet))
			a.Get("/children", r.wrap(r.handleChildren))
			a.Get("/lineage", r.wrap(r.handleLineage))
			a.Post("/refine", r.wrap(r.handleRefine))
			a.Post("/validate", r.wrap(r.handleValidate))
			a.Delete("/validate", r.wrap(r.handleUnvalidate))
			a.Put("/status", r.wrap(r.handleStatus))
			a.Post("/plan", r.wrap(r.handleGeneratePlan))
			a.Get("/plan", r.wrap(r.handleLatestPlan))
		})
		rt.Get("/projects", r.wrap(r.handleProjects))
		rt.Get("/usage", r.wrap(r.handleUsage))
		rt.Get("/recommendations", r.wrap(r.handleRecommendations))
		rt.Get("/dashboard", r.wrap(r.handleDashboard))
		rt.Get("/diagnostics/failures", r.wrap(r.handleFailures))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error           string `json:"error"`
	Kind            string `json:"kind"`
	UpgradeRequired bool   `json:"upgradeRequired,omitempty"`
	Raw             string `json:"raw,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, body := r.classify(err)
		if status >= http.StatusInternalServerError {
			r.log.Error("request failed", "path", req.URL.Path, "user", middleware.GetUserFromContext(req.Context()), "kind", body.Kind, "error", err)
		}
		writeJSON(w, status, body)
	}
}

func (r *Router) classify(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error(), Kind: apperr.KindName(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		body.Error = ae.Message
		if ae.Err != nil && errors.Is(err, apperr.ErrMalformedUpstream) {
			body.Error = ae.Message + ": " + ae.Err.Error()
		}
	}

	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, body
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, body
	case errors.Is(err, apperr.ErrQuotaExceeded):
		middleware.IncrementQuota()
		body.UpgradeRequired = true
		return http.StatusPaymentRequired, body
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, apperr.ErrBusy):
		middleware.IncrementBusy()
		return http.StatusConflict, body
	case errors.Is(err, domai.ErrQuotaExceeded):
		body.Kind = "upstream_rate_limited"
		return http.StatusTooManyRequests, body
	case errors.Is(err, apperr.ErrMalformedUpstream):
		middleware.IncrementMalformed()
		body.Raw = apperr.RawText(err)
		return http.StatusBadGateway, body
	}
	return http.StatusInternalServerError, body
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, req.Body, 1<<20)).Decode(v); err != nil {
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}

func user(req *http.Request) string {
	return middleware.GetUserFromContext(req.Context())
}

func analysisID(req *http.Request) (ideas.AnalysisID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return "", apperr.Validation("%v", err)
	}
	return ideas.AnalysisID(id), nil
}

// POST /v1/analyses
// Body: {"ideaText": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		IdeaText string `json:"ideaText"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	a, err := r.ideasSvc.Analyze(req.Context(), user(req), middleware.SanitizeString(body.IdeaText))
	if err != nil {
		return err
	}
	middleware.IncrementAnalyses()
	return writeJSON(w, http.StatusCreated, a)
}

// POST /v1/analyses/{id}/refine
func (r *Router) handleRefine(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	var body ideas.Refinement
	if err := decode(req, &body); err != nil {
		return err
	}
	body.ParentID = id
	body.IdeaText = middleware.SanitizeString(body.IdeaText)
	body.ProblemFit = middleware.SanitizeString(body.ProblemFit)
	if body.Audience != nil {
		body.Audience.Primary = middleware.SanitizeString(body.Audience.Primary)
		body.Audience.Secondary = middleware.SanitizeString(body.Audience.Secondary)
	}
	body.LeanMVP = middleware.SanitizeList(body.LeanMVP)
	body.Distribution = middleware.SanitizeList(body.Distribution)
	body.Monetization = middleware.SanitizeList(body.Monetization)

	a, err := r.ideasSvc.Refine(req.Context(), user(req), body)
	if err != nil {
		return err
	}
	middleware.IncrementRefinements()
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/analyses?limit=50
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.ideasSvc.History(req.Context(), user(req), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, nonNil(list))
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, err := r.ideasSvc.Get(req.Context(), user(req), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/analyses/{id}/children
func (r *Router) handleChildren(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	list, err := r.ideasSvc.Children(req.Context(), user(req), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, nonNil(list))
}

// GET /v1/analyses/{id}/lineage
func (r *Router) handleLineage(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	list, err := r.ideasSvc.Lineage(req.Context(), user(req), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, nonNil(list))
}

// POST /v1/analyses/{id}/validate
// Body: {"notes": "..."} (optional)
func (r *Router) handleValidate(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if req.ContentLength != 0 {
		if err := decode(req, &body); err != nil {
			return err
		}
	}
	if err := middleware.ValidateNotes(body.Notes); err != nil {
		return apperr.Validation("%v", err)
	}
	a, err := r.ideasSvc.Validate(req.Context(), user(req), id, middleware.SanitizeString(body.Notes))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// DELETE /v1/analyses/{id}/validate
func (r *Router) handleUnvalidate(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, err := r.ideasSvc.Unvalidate(req.Context(), user(req), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// PUT /v1/analyses/{id}/status
// Body: {"status": "building"}
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	var body struct {
		Status ideas.ProjectStatus `json:"status"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	a, err := r.ideasSvc.UpdateStatus(req.Context(), user(req), id, body.Status)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/projects?status=building
func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) error {
	status := ideas.ProjectStatus(req.URL.Query().Get("status"))
	list, err := r.ideasSvc.Projects(req.Context(), user(req), status)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, nonNil(list))
}

// POST /v1/analyses/{id}/plan
func (r *Router) handleGeneratePlan(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	p, err := r.plansSvc.Generate(req.Context(), user(req), id)
	if err != nil {
		return err
	}
	middleware.IncrementPlans()
	return writeJSON(w, http.StatusCreated, p)
}

// GET /v1/analyses/{id}/plan
func (r *Router) handleLatestPlan(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	p, err := r.plansSvc.Latest(req.Context(), user(req), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// GET /v1/usage
func (r *Router) handleUsage(w http.ResponseWriter, req *http.Request) error {
	u, err := r.ideasSvc.Usage(req.Context(), user(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, usageBody(u))
}

// GET /v1/recommendations
func (r *Router) handleRecommendations(w http.ResponseWriter, req *http.Request) error {
	recs, err := r.ideasSvc.Recommendations(req.Context(), user(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"recommendations": nonNil(recs)})
}

// Dashboard bundles what the client loads after every submission.
type Dashboard struct {
	Usage           UsageResponse          `json:"usage"`
	History         []*ideas.Analysis      `json:"history"`
	Recommendations []ideas.Recommendation `json:"recommendations"`
}

// GET /v1/dashboard
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) error {
	uid := user(req)
	var d Dashboard
	g, ctx := errgroup.WithContext(req.Context())
	g.Go(func() error {
		u, err := r.ideasSvc.Usage(ctx, uid)
		d.Usage = usageBody(u)
		return err
	})
	g.Go(func() error {
		list, err := r.ideasSvc.History(ctx, uid, middleware.ValidateLimit(0))
		d.History = nonNil(list)
		return err
	})
	g.Go(func() error {
		recs, err := r.ideasSvc.Recommendations(ctx, uid)
		d.Recommendations = nonNil(recs)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, d)
}

// GET /v1/diagnostics/failures?limit=20
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	if r.failures == nil {
		return writeJSON(w, http.StatusOK, []*domai.Failure{})
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.failures.ListByUser(req.Context(), user(req), middleware.ValidateLimit(limit))
	if err != nil {
		return apperr.Persistence("load upstream failures", err)
	}
	return writeJSON(w, http.StatusOK, nonNil(list))
}

// UsageResponse adds the derived limitReached flag to ideas.Usage.
type UsageResponse struct {
	ideas.Usage
	LimitReached bool `json:"limitReached"`
}

func usageBody(u ideas.Usage) UsageResponse {
	return UsageResponse{Usage: u, LimitReached: u.LimitReached()}
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
