package postgres

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

func (r *SubscriptionRepository) IsActive(ctx context.Context, userID string) (bool, error) {
    const q = `
SELECT EXISTS (
  SELECT 1 FROM subscriptions
  WHERE user_id=$1
    AND status IN ('active','trialing')
    AND (current_period_end IS NULL OR current_period_end > $2)
);`
    var ok bool
    if err := r.db.QueryRowContext(ctx, q, userID, r.now().UTC()).Scan(&ok); err != nil {
        return false, err
    }
    return ok, nil
}
