package mysql

import (
    "context"
    "database/sql"
    "time"

    domain "github.com/bryanwahyu/launchlens/internal/domain/ai"
)

type FailureRepository struct {
    db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

// Record implements ai.FailureLog.
func (r *FailureRepository) Record(ctx context.Context, f *domain.Failure) error {
    const q = `
INSERT INTO upstream_failures
  (user_id, phase, message, raw_response, archive_url, created_at)
VALUES (?,?,?,?,?,?)
`
    created := f.CreatedAt
    if created.IsZero() {
        created = time.Now()
    }
    res, err := r.db.ExecContext(ctx, q,
        stringOrDash(f.UserID), stringOrDash(f.Phase), stringOrDash(f.Message),
        truncateRaw(f.RawResponse), f.ArchiveURL, created.UTC())
    if err != nil {
        return err
    }
    if id, err := res.LastInsertId(); err == nil {
        f.ID = id
    }
    return nil
}

func (r *FailureRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Failure, error) {
    if limit <= 0 { limit = 20 }
    const q = `
SELECT id, user_id, phase, message, raw_response, archive_url, created_at
FROM upstream_failures
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
    rows, err := r.db.QueryContext(ctx, q, userID, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*domain.Failure
    for rows.Next() {
        var f domain.Failure
        if err := rows.Scan(&f.ID, &f.UserID, &f.Phase, &f.Message, &f.RawResponse, &f.ArchiveURL, &f.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, &f)
    }
    return out, rows.Err()
}
