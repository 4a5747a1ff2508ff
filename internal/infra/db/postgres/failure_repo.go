package postgres

import (
    "context"
    "database/sql"
    "strings"
    "time"

    domain "github.com/bryanwahyu/launchlens/internal/domain/ai"
)

const maxRawResponse = 64 << 10

type FailureRepository struct {
    db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Record(ctx context.Context, f *domain.Failure) error {
    const q = `
INSERT INTO upstream_failures
  (user_id, phase, message, raw_response, archive_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id;`
    created := f.CreatedAt
    if created.IsZero() {
        created = time.Now()
    }
    raw := f.RawResponse
    if len(raw) > maxRawResponse {
        raw = raw[:maxRawResponse]
    }
    // postgres text rejects NUL bytes and a cut rune
    raw = strings.ToValidUTF8(strings.ReplaceAll(raw, "\x00", ""), "")
    return r.db.QueryRowContext(ctx, q,
        stringOrDash(f.UserID), stringOrDash(f.Phase), stringOrDash(f.Message),
        raw, f.ArchiveURL, created.UTC(),
    ).Scan(&f.ID)
}

func (r *FailureRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Failure, error) {
    if limit <= 0 { limit = 20 }
    const q = `
SELECT id, user_id, phase, message, raw_response, archive_url, created_at
FROM upstream_failures
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
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

func stringOrDash(s string) string {
    if strings.TrimSpace(s) == "" {
        return "-"
    }
    return s
}
