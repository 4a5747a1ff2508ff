package ideas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bryanwahyu/launchlens/internal/application"
	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	domain "github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/infra/logger"
)

const (
	MaxIdeaLength      = 5000
	DefaultFreeMonthly = 1
	DefaultHistory     = 50
	DefaultCallTimeout = 90 * time.Second
	maxLineageDepth    = 64
)

// Completer returns the model's answer as a parsed JSON object.
type Completer interface {
	CompleteJSON(ctx context.Context, userID, phase string, p ai.Prompt) (map[string]any, error)
}

// Prompts builds the model requests for analyses.
type Prompts interface {
	Analysis(ideaText string) ai.Prompt
	Refinement(parent *domain.Analysis, r domain.Refinement) ai.Prompt
}

// Service implements the analysis use cases.
// Service is safe for concurrent use.
type Service struct {
	Repo        domain.Repository
	Subs        domain.Subscriptions
	Locker      domain.Locker
	AI          Completer
	Prompts     Prompts
	Normalizer  *domain.Normalizer
	Clock       application.Clock
	Log         *logger.Logger
	FreeMonthly int
	// CallTimeout bounds the model call made while the per-user lock is held.
	// It must stay below the lock TTL.
	CallTimeout time.Duration
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) log() *logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}

func (s *Service) freeMonthly() int {
	if s.FreeMonthly <= 0 {
		return DefaultFreeMonthly
	}
	return s.FreeMonthly
}

//
// ==== USE CASES ====
//

// Analyze runs a fresh (root) analysis. It counts against the free tier.
func (s *Service) Analyze(ctx context.Context, userID, ideaText string) (*domain.Analysis, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	text, err := SanitizeIdea(ideaText)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	usage, err := s.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if usage.LimitReached() {
		s.log().Info("free tier exhausted", "user", userID, "used", usage.Used, "limit", usage.Limit)
		return nil, apperr.Quota("You've used your free analysis for this month. Upgrade to run unlimited analyses.")
	}

	raw, err := s.complete(ctx, userID, "analyze", s.Prompts.Analysis(text))
	if err != nil {
		return nil, err
	}
	return s.store(ctx, userID, text, nil, raw)
}

// Refine re-analyses an edited version of an owned analysis. Refinements are not metered.
func (s *Service) Refine(ctx context.Context, userID string, r domain.Refinement) (*domain.Analysis, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(r.ParentID)) == "" {
		return nil, apperr.Validation("parent analysis id is required")
	}
	text, err := SanitizeIdea(r.IdeaText)
	if err != nil {
		return nil, err
	}
	r.IdeaText = text

	parent, err := s.Get(ctx, userID, r.ParentID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	raw, err := s.complete(ctx, userID, "refine", s.Prompts.Refinement(parent, r))
	if err != nil {
		return nil, err
	}
	parentID := parent.ID
	return s.store(ctx, userID, text, &parentID, raw)
}

// complete runs the model call under CallTimeout so it ends before the lock can expire.
func (s *Service) complete(ctx context.Context, userID, phase string, p ai.Prompt) (map[string]any, error) {
	timeout := s.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	raw, err := s.AI.CompleteJSON(ctx, userID, phase, p)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.log().Warn("model call timed out", "user", userID, "phase", phase, "timeout", timeout)
		return nil, fmt.Errorf("%s: model call exceeded %s: %w", phase, timeout, err)
	}
	return raw, err
}

func (s *Service) store(ctx context.Context, userID, text string, parentID *domain.AnalysisID, raw map[string]any) (*domain.Analysis, error) {
	report, viability := s.Normalizer.Normalize(raw)
	now := s.now()
	a := &domain.Analysis{
		ID:               domain.AnalysisID(uuid.NewString()),
		UserID:           userID,
		IdeaText:         text,
		ParentAnalysisID: parentID,
		ViabilityScore:   viability,
		Report:           report,
		ProjectStatus:    domain.StatusNone,
		StatusUpdatedAt:  now,
		CreatedAt:        now,
	}
	if err := s.Repo.Insert(ctx, a); err != nil {
		return nil, apperr.Persistence("save analysis", err)
	}
	s.log().Info("analysis stored", "user", userID, "id", a.ID, "root", a.IsRoot(), "viability", viability)
	return a, nil
}

// acquire takes the per-user in-flight guard. Without a Locker it is a no-op.
func (s *Service) acquire(ctx context.Context, userID string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	unlock, ok, err := s.Locker.TryLock(ctx, "analysis:"+userID)
	if err != nil {
		return nil, apperr.Persistence("acquire analysis lock", err)
	}
	if !ok {
		return nil, apperr.Busy("An analysis is already running for this account.")
	}
	return unlock, nil
}

// Usage derives the user's free-tier window for the current UTC month.
func (s *Service) Usage(ctx context.Context, userID string) (domain.Usage, error) {
	if err := requireUser(userID); err != nil {
		return domain.Usage{}, err
	}
	start := domain.MonthStart(s.now())
	u := domain.Usage{Limit: s.freeMonthly(), WindowStart: start}

	if s.Subs != nil {
		active, err := s.Subs.IsActive(ctx, userID)
		if err != nil {
			return domain.Usage{}, apperr.Persistence("load subscription", err)
		}
		u.Subscribed = active
	}
	used, err := s.Repo.CountRootSince(ctx, userID, start)
	if err != nil {
		return domain.Usage{}, apperr.Persistence("count analyses", err)
	}
	u.Used = used
	return u, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]*domain.Analysis, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistory
	}
	list, err := s.Repo.History(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Persistence("load history", err)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(id)) == "" {
		return nil, apperr.Validation("analysis id is required")
	}
	a, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, storeErr("load analysis", err)
	}
	return a, nil
}

// Children lists the direct refinements of an owned analysis.
func (s *Service) Children(ctx context.Context, userID string, id domain.AnalysisID) ([]*domain.Analysis, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	list, err := s.Repo.Children(ctx, userID, id)
	if err != nil {
		return nil, apperr.Persistence("load refinements", err)
	}
	return list, nil
}

// Lineage returns the chain from the root analysis down to id.
func (s *Service) Lineage(ctx context.Context, userID string, id domain.AnalysisID) ([]*domain.Analysis, error) {
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	chain := []*domain.Analysis{cur}
	seen := map[domain.AnalysisID]bool{cur.ID: true}
	for cur.ParentAnalysisID != nil && len(chain) < maxLineageDepth {
		pid := *cur.ParentAnalysisID
		if seen[pid] {
			break
		}
		parent, err := s.Get(ctx, userID, pid)
		if errors.Is(err, apperr.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		seen[pid] = true
		chain = append(chain, parent)
		cur = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Validate marks an analysis as validated. A project that has not started
// moves to the validated status.
func (s *Service) Validate(ctx context.Context, userID string, id domain.AnalysisID, notes string) (*domain.Analysis, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var n *string
	if t := strings.TrimSpace(notes); t != "" {
		n = &t
	}
	if err := s.Repo.UpdateValidation(ctx, userID, id, true, &now, n); err != nil {
		return nil, storeErr("validate analysis", err)
	}
	a.IsValidated, a.ValidatedAt, a.ValidationNotes = true, &now, n

	if a.ProjectStatus == domain.StatusNone {
		if err := s.Repo.UpdateStatus(ctx, userID, id, domain.StatusValidated, now); err != nil {
			return nil, storeErr("update project status", err)
		}
		a.ProjectStatus, a.StatusUpdatedAt = domain.StatusValidated, now
	}
	return a, nil
}

// Unvalidate clears the validation flag and its timestamp; notes are kept.
func (s *Service) Unvalidate(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateValidation(ctx, userID, id, false, nil, a.ValidationNotes); err != nil {
		return nil, storeErr("unvalidate analysis", err)
	}
	a.IsValidated, a.ValidatedAt = false, nil
	return a, nil
}

// UpdateStatus moves a project through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, userID string, id domain.AnalysisID, status domain.ProjectStatus) (*domain.Analysis, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown project status %q", status)
	}
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.Repo.UpdateStatus(ctx, userID, id, status, now); err != nil {
		return nil, storeErr("update project status", err)
	}
	a.ProjectStatus, a.StatusUpdatedAt = status, now

	if status == domain.StatusValidated && !a.IsValidated {
		if err := s.Repo.UpdateValidation(ctx, userID, id, true, &now, a.ValidationNotes); err != nil {
			return nil, storeErr("validate analysis", err)
		}
		a.IsValidated, a.ValidatedAt = true, &now
	}
	return a, nil
}

// Projects lists analyses that entered the lifecycle, optionally filtered by status.
func (s *Service) Projects(ctx context.Context, userID string, status domain.ProjectStatus) ([]*domain.Analysis, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown project status %q", status)
	}
	list, err := s.Repo.ListProjects(ctx, userID, status)
	if err != nil {
		return nil, apperr.Persistence("load projects", err)
	}
	return list, nil
}

// Recommendations ranks the user's unvalidated analyses and stores each
// returned score.
func (s *Service) Recommendations(ctx context.Context, userID string) ([]domain.Recommendation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	list, err := s.Repo.ListUnvalidated(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("load unvalidated analyses", err)
	}
	recs := domain.Rank(list, domain.RecommendationLimit)
	for _, r := range recs {
		if err := s.Repo.UpdateRecommendationScore(ctx, userID, r.AnalysisID, r.Score); err != nil {
			return nil, apperr.Persistence("save recommendation score", err)
		}
	}
	return recs, nil
}

// SanitizeIdea trims the idea text and enforces its length bounds.
func SanitizeIdea(s string) (string, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
	if s == "" {
		return "", apperr.Validation("idea text is required")
	}
	if utf8.RuneCountInString(s) > MaxIdeaLength {
		return "", apperr.Validation("idea text must be at most %d characters", MaxIdeaLength)
	}
	return s, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Unauthorized("missing user identity")
	}
	return nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return apperr.Persistence(op, err)
}
