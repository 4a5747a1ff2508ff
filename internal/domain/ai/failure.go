package ai

import (
	"context"
	"time"
)

// Failure is a persisted record of an upstream response that could not be used.
type Failure struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Phase       string    `json:"phase"` // analyze | refine | plan
	Message     string    `json:"message"`
	RawResponse string    `json:"raw_response"`
	ArchiveURL  string    `json:"archive_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FailureLog defines persistence for upstream failures
type FailureLog interface {
	Record(ctx context.Context, f *Failure) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Failure, error)
}

// ResponseArchive keeps raw completion text for diagnostics and returns its location.
type ResponseArchive interface {
	Archive(ctx context.Context, key string, raw []byte) (string, error)
}
