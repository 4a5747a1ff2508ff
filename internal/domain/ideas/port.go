package ideas

import (
	"context"
	"time"
)

// Repository persists analyses.
type Repository interface {
	Insert(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, userID string, id AnalysisID) (*Analysis, error)
	History(ctx context.Context, userID string, limit int) ([]*Analysis, error)
	Children(ctx context.Context, userID string, parentID AnalysisID) ([]*Analysis, error)
	ListUnvalidated(ctx context.Context, userID string) ([]*Analysis, error)
	ListProjects(ctx context.Context, userID string, status ProjectStatus) ([]*Analysis, error)
	CountRootSince(ctx context.Context, userID string, since time.Time) (int, error)

	UpdateValidation(ctx context.Context, userID string, id AnalysisID, validated bool, at *time.Time, notes *string) error
	UpdateStatus(ctx context.Context, userID string, id AnalysisID, status ProjectStatus, at time.Time) error
	UpdateRecommendationScore(ctx context.Context, userID string, id AnalysisID, score float64) error
}

// Subscriptions answers the billing provider's "has active paid subscription" fact.
type Subscriptions interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// Locker guards one in-flight analysis per user.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}
