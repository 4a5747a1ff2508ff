package mysql

import (
	"context"
	"database/sql"
	"time"
)

// SubscriptionRepository reads rows written by the billing sync.
type SubscriptionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, now: time.Now}
}

// IsActive implements ideas.Subscriptions.
func (r *SubscriptionRepository) IsActive(ctx context.Context, userID string) (bool, error) {
	const q = `
SELECT COUNT(*) FROM subscriptions
WHERE user_id = ?
  AND status IN ('active','trialing')
  AND (current_period_end IS NULL OR current_period_end > ?);`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID, r.now().UTC()).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
