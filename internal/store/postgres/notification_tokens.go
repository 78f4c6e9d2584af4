package postgres

import (
	"context"
	"fmt"
	"time"

	"qonnectme/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationTokensStore keeps FCM registration tokens. A token belongs to
// one user at a time; re-registering moves it to the new owner.
type NotificationTokensStore struct {
	pool *pgxpool.Pool
}

func NewNotificationTokensStore(pool *pgxpool.Pool) *NotificationTokensStore {
	return &NotificationTokensStore{pool: pool}
}

const tokenColumns = `t.user_id, t.token, t.platform, t.created_at, t.updated_at`

func scanToken(row pgx.Row) (domain.NotificationToken, error) {
	var (
		t     domain.NotificationToken
		owner pgtype.UUID
	)
	if err := row.Scan(&owner, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.NotificationToken{}, err
	}
	t.UserID = uuidOrEmpty(owner)
	return t, nil
}

func (s *NotificationTokensStore) UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error) {
	const q = `
		INSERT INTO notification_tokens AS t (user_id, token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token)
		DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at
		RETURNING ` + tokenColumns

	t, err := scanToken(s.pool.QueryRow(ctx, q, userID, token, platform, when))
	if err != nil {
		return domain.NotificationToken{}, fmt.Errorf("upsert notification token: %w", err)
	}
	return t, nil
}

// DeleteToken is idempotent: removing an unknown token is not an error.
func (s *NotificationTokensStore) DeleteToken(ctx context.Context, userID, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM notification_tokens WHERE user_id = $1 AND token = $2`, userID, token); err != nil {
		return fmt.Errorf("delete notification token: %w", err)
	}
	return nil
}

func (s *NotificationTokensStore) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	const q = `SELECT ` + tokenColumns + ` FROM notification_tokens t WHERE t.user_id = $1 ORDER BY t.updated_at DESC`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.NotificationToken, error) {
		return scanToken(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	return out, nil
}
