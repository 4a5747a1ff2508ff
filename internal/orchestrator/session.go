// Package orchestrator drives the client side of the submit, analyze, display
// and refine loop against a Backend.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
	"github.com/bryanwahyu/launchlens/internal/infra/logger"
)

// State of the session.
type State string

const (
	StateIdle        State = "idle"
	StateAnalyzing   State = "analyzing"
	StateReportShown State = "report_shown"
	StateRefining    State = "refining"
)

const historyLimit = 50

// Backend is the server surface the session talks to. Identity is the backend's concern.
type Backend interface {
	Usage(ctx context.Context) (ideas.Usage, error)
	Analyze(ctx context.Context, ideaText string) (*ideas.Analysis, error)
	Refine(ctx context.Context, r ideas.Refinement) (*ideas.Analysis, error)
	History(ctx context.Context, limit int) ([]*ideas.Analysis, error)
	Get(ctx context.Context, id ideas.AnalysisID) (*ideas.Analysis, error)
	GeneratePlan(ctx context.Context, id ideas.AnalysisID) (*plans.ImprovementPlan, error)
	LatestPlan(ctx context.Context, id ideas.AnalysisID) (*plans.ImprovementPlan, error)
	Recommendations(ctx context.Context) ([]ideas.Recommendation, error)
}

// RefineForm holds the refine inputs as typed by the user. List fields are
// comma-separated.
type RefineForm struct {
	IdeaText          string
	ProblemFit        string
	AudiencePrimary   string
	AudienceSecondary string
	LeanMVP           string
	Distribution      string
	Monetization      string
}

// View is a point-in-time copy of the session for rendering.
type View struct {
	State           State
	Input           string
	Current         *ideas.Analysis
	History         []*ideas.Analysis
	Plan            *plans.ImprovementPlan
	Recommendations []ideas.Recommendation
	Usage           *ideas.Usage
	RefineDraft     RefineForm
	Error           string
	LimitReached    bool
	Busy            bool
}

// Session is one user's orchestrator. It allows a single in-flight operation.
type Session struct {
	backend Backend
	log     *logger.Logger

	mu           sync.Mutex
	state        State
	input        string
	current      *ideas.Analysis
	history      []*ideas.Analysis
	plan         *plans.ImprovementPlan
	recs         []ideas.Recommendation
	usage        *ideas.Usage
	draft        RefineForm
	errMsg       string
	limitReached bool
	inFlight     bool
}

func NewSession(backend Backend, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{backend: backend, log: log, state: StateIdle}
}

// SetInput stores the idea text being typed.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// begin claims the single in-flight slot.
func (s *Session) begin() error {
	if s.inFlight {
		return apperr.Busy("another operation is in progress")
	}
	s.inFlight = true
	return nil
}

// fail records err for display. Quota errors raise the limit flag instead of a banner.
func (s *Session) fail(err error) error {
	if errors.Is(err, apperr.ErrQuotaExceeded) {
		s.limitReached = true
		return err
	}
	s.errMsg = err.Error()
	return err
}

// Submit analyzes the current input as a new root idea.
func (s *Session) Submit(ctx context.Context) (*ideas.Analysis, error) {
	s.mu.Lock()
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	text := strings.TrimSpace(s.input)
	if text == "" {
		s.inFlight = false
		err := s.fail(apperr.Validation("Please describe your idea first."))
		s.mu.Unlock()
		return nil, err
	}
	origin := s.state
	if origin == StateRefining {
		origin = StateReportShown
	}
	s.errMsg = ""
	s.state = StateAnalyzing
	s.mu.Unlock()

	a, err := s.submit(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.state = origin
		return nil, s.fail(err)
	}
	s.current = a
	s.plan = nil
	s.draft = RefineForm{}
	s.input = ""
	s.state = StateReportShown
	s.prepend(a)
	return a, nil
}

func (s *Session) submit(ctx context.Context, text string) (*ideas.Analysis, error) {
	usage, err := s.backend.Usage(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.usage = &usage
	s.mu.Unlock()
	if usage.LimitReached() {
		return nil, apperr.Quota("You've used your free analysis for this month. Upgrade to continue.")
	}

	a, err := s.backend.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	s.reloadHistory(ctx)
	return a, nil
}

// StartRefine opens the refine form for the displayed report.
func (s *Session) StartRefine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return apperr.Busy("another operation is in progress")
	}
	if s.state != StateReportShown || s.current == nil {
		return apperr.Validation("open a report before refining it")
	}
	if s.draft == (RefineForm{}) {
		s.draft = draftFrom(s.current)
	}
	s.state = StateRefining
	return nil
}

// CancelRefine returns to the displayed report. The draft is kept.
func (s *Session) CancelRefine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRefining {
		s.state = StateReportShown
	}
}

// Refine submits an edited version of the displayed analysis. Refinements are not metered.
func (s *Session) Refine(ctx context.Context, form RefineForm) (*ideas.Analysis, error) {
	s.mu.Lock()
	if s.state != StateRefining || s.current == nil {
		s.mu.Unlock()
		return nil, apperr.Validation("start refining a report first")
	}
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.draft = form
	r := form.Refinement(s.current.ID)
	if r.IdeaText == "" {
		s.inFlight = false
		err := s.fail(apperr.Validation("Refined idea text cannot be empty."))
		s.mu.Unlock()
		return nil, err
	}
	s.errMsg = ""
	s.state = StateAnalyzing
	s.mu.Unlock()

	a, err := s.backend.Refine(ctx, r)
	if err == nil {
		s.reloadHistory(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.state = StateReportShown
		return nil, s.fail(err)
	}
	s.current = a
	s.plan = nil
	s.draft = RefineForm{}
	s.state = StateReportShown
	s.prepend(a)
	return a, nil
}

// ViewHistoryItem displays a previously loaded analysis without a network call.
func (s *Session) ViewHistoryItem(id ideas.AnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return apperr.Busy("another operation is in progress")
	}
	for _, a := range s.history {
		if a.ID == id {
			if s.current == nil || s.current.ID != id {
				s.plan = nil
				s.draft = RefineForm{}
			}
			s.current = a
			s.state = StateReportShown
			return nil
		}
	}
	return apperr.NotFound("analysis %s is not in the loaded history", id)
}

// Open selects id, fetching it from the backend when it is older than the
// loaded history page. The fetched analysis is shown but not added to history.
func (s *Session) Open(ctx context.Context, id ideas.AnalysisID) error {
	err := s.ViewHistoryItem(id)
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return s.run(func() error {
		a, err := s.backend.Get(ctx, id)
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current == nil || s.current.ID != a.ID {
			s.plan = nil
			s.draft = RefineForm{}
		}
		s.current = a
		s.state = StateReportShown
		return nil
	})
}

// LoadHistory fetches the user's analyses, newest first.
func (s *Session) LoadHistory(ctx context.Context) error {
	return s.run(func() error {
		list, err := s.backend.History(ctx, historyLimit)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.history = list
		s.mu.Unlock()
		return nil
	})
}

// RefreshUsage reloads the free-tier window.
func (s *Session) RefreshUsage(ctx context.Context) (ideas.Usage, error) {
	var u ideas.Usage
	err := s.run(func() error {
		var err error
		u, err = s.backend.Usage(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.usage = &u
		s.limitReached = u.LimitReached()
		s.mu.Unlock()
		return nil
	})
	return u, err
}

// GeneratePlan requests an improvement plan for the displayed analysis.
func (s *Session) GeneratePlan(ctx context.Context) (*plans.ImprovementPlan, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	var p *plans.ImprovementPlan
	err = s.run(func() error {
		var err error
		p, err = s.backend.GeneratePlan(ctx, id)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.plan = p
		s.mu.Unlock()
		return nil
	})
	return p, err
}

// LoadPlan fetches the stored plan for the displayed analysis. A missing plan is not an error.
func (s *Session) LoadPlan(ctx context.Context) (*plans.ImprovementPlan, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	var p *plans.ImprovementPlan
	err = s.run(func() error {
		var err error
		p, err = s.backend.LatestPlan(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			p, err = nil, nil
		}
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.plan = p
		s.mu.Unlock()
		return nil
	})
	return p, err
}

// LoadRecommendations fetches the ranked "validate next" list.
func (s *Session) LoadRecommendations(ctx context.Context) ([]ideas.Recommendation, error) {
	var recs []ideas.Recommendation
	err := s.run(func() error {
		var err error
		recs, err = s.backend.Recommendations(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.recs = recs
		s.mu.Unlock()
		return nil
	})
	return recs, err
}

// DismissError clears the error banner.
func (s *Session) DismissError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// DismissLimitReached hides the upgrade prompt.
func (s *Session) DismissLimitReached() {
	s.mu.Lock()
	s.limitReached = false
	s.mu.Unlock()
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		State:           s.state,
		Input:           s.input,
		Current:         s.current,
		History:         append([]*ideas.Analysis(nil), s.history...),
		Plan:            s.plan,
		Recommendations: append([]ideas.Recommendation(nil), s.recs...),
		RefineDraft:     s.draft,
		Error:           s.errMsg,
		LimitReached:    s.limitReached,
		Busy:            s.inFlight,
	}
	if s.usage != nil {
		u := *s.usage
		v.Usage = &u
	}
	return v
}

// run executes a side operation that does not change the report state.
func (s *Session) run(op func() error) error {
	s.mu.Lock()
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.errMsg = ""
	s.mu.Unlock()

	err := op()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Session) currentID() (ideas.AnalysisID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", apperr.Validation("no analysis selected")
	}
	return s.current.ID, nil
}

// reloadHistory refreshes history after a write. Failures keep the local list.
func (s *Session) reloadHistory(ctx context.Context) {
	list, err := s.backend.History(ctx, historyLimit)
	if err != nil {
		s.log.Warn("reload history failed", "error", err)
		return
	}
	s.mu.Lock()
	s.history = list
	s.mu.Unlock()
}

// prepend adds a to the front of history unless the reload already has it.
func (s *Session) prepend(a *ideas.Analysis) {
	for _, h := range s.history {
		if h.ID == a.ID {
			return
		}
	}
	s.history = append([]*ideas.Analysis{a}, s.history...)
}

// Refinement converts the form into a request for parent.
func (f RefineForm) Refinement(parent ideas.AnalysisID) ideas.Refinement {
	r := ideas.Refinement{
		ParentID:     parent,
		IdeaText:     strings.TrimSpace(f.IdeaText),
		ProblemFit:   strings.TrimSpace(f.ProblemFit),
		LeanMVP:      SplitList(f.LeanMVP),
		Distribution: SplitList(f.Distribution),
		Monetization: SplitList(f.Monetization),
	}
	primary, secondary := strings.TrimSpace(f.AudiencePrimary), strings.TrimSpace(f.AudienceSecondary)
	if primary != "" || secondary != "" {
		r.Audience = &ideas.Audience{Primary: primary, Secondary: secondary}
	}
	return r
}

func draftFrom(a *ideas.Analysis) RefineForm {
	return RefineForm{
		IdeaText:          a.IdeaText,
		ProblemFit:        a.ProblemFit,
		AudiencePrimary:   a.Audience.Primary,
		AudienceSecondary: a.Audience.Secondary,
		LeanMVP:           strings.Join(a.LeanMVP, ", "),
		Distribution:      strings.Join(a.Distribution, ", "),
		Monetization:      strings.Join(a.Monetization, ", "),
	}
}

// SplitList splits comma-separated text into trimmed items. Empty input yields nil.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
