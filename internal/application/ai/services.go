package ai

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanwahyu/launchlens/internal/application"
	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/infra/logger"
)

// Service runs one completion and turns its text into a JSON object. Raw output is
// archived when an archive is configured and malformed output is recorded.
type Service struct {
	client   ai.Client
	archive  ai.ResponseArchive
	failures ai.FailureLog
	clock    application.Clock
	log      *logger.Logger
}

func NewService(client ai.Client, archive ai.ResponseArchive, failures ai.FailureLog, clock application.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{client: client, archive: archive, failures: failures, clock: clock, log: log}
}

// CompleteJSON calls the model and parses its answer. phase names the use-case
// (analyze, refine, plan) for diagnostics.
func (s *Service) CompleteJSON(ctx context.Context, userID, phase string, p ai.Prompt) (map[string]any, error) {
	start := s.clock.Now()
	raw, err := s.client.Complete(ctx, p)
	if err != nil {
		s.log.Warn("completion failed", "user", userID, "phase", phase, "error", err)
		return nil, err
	}
	s.log.Debug("completion received", "user", userID, "phase", phase, "bytes", len(raw), "duration", s.clock.Now().Sub(start))

	archiveURL := s.archiveRaw(ctx, userID, phase, raw)

	obj, err := ideas.ParseObject(raw)
	if err != nil {
		s.recordFailure(ctx, userID, phase, raw, archiveURL, err)
		return nil, err
	}
	return obj, nil
}

func (s *Service) archiveRaw(ctx context.Context, userID, phase, raw string) string {
	if s.archive == nil {
		return ""
	}
	key := fmt.Sprintf("%s/%s/%s-%s.json", userID, phase, s.clock.Now().UTC().Format("20060102T150405"), uuid.NewString())
	url, err := s.archive.Archive(ctx, key, []byte(raw))
	if err != nil {
		// archive is diagnostics only
		s.log.Warn("archive raw response failed", "user", userID, "phase", phase, "error", err)
		return ""
	}
	return url
}

func (s *Service) recordFailure(ctx context.Context, userID, phase, raw, archiveURL string, cause error) {
	s.log.Error("malformed upstream response", "user", userID, "phase", phase, "error", cause, "raw_len", len(raw))
	if s.failures == nil {
		return
	}
	f := &ai.Failure{
		UserID:      userID,
		Phase:       phase,
		Message:     apperr.KindName(cause) + ": " + cause.Error(),
		RawResponse: raw,
		ArchiveURL:  archiveURL,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.failures.Record(ctx, f); err != nil {
		s.log.Warn("record upstream failure", "user", userID, "phase", phase, "error", err)
	}
}
