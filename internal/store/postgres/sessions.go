package postgres

import (
	"context"
	"fmt"
	"time"

	"qonnectme/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionsStore backs cookie sessions. Lookups only see live sessions:
// unrevoked and not yet expired.
type SessionsStore struct {
	pool *pgxpool.Pool
}

func NewSessionsStore(pool *pgxpool.Pool) *SessionsStore {
	return &SessionsStore{pool: pool}
}

func (s *SessionsStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	var id pgtype.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (user_id, expires_at, ip, user_agent) VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, expiresAt, nullIfEmpty(ip), nullIfEmpty(userAgent),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return uuidOrEmpty(id), nil
}

func (s *SessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	const q = `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > now()
	`
	var (
		sess        domain.Session
		id, ownerID pgtype.UUID
	)
	if err := s.pool.QueryRow(ctx, q, sessionID).Scan(&id, &ownerID, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		return domain.Session{}, notFound(err, "get session")
	}
	sess.ID = uuidOrEmpty(id)
	sess.UserID = uuidOrEmpty(ownerID)
	return sess, nil
}

func (s *SessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	return s.revoke(ctx, "id", sessionID, when)
}

// RevokeUserSessions signs the user out everywhere.
func (s *SessionsStore) RevokeUserSessions(ctx context.Context, userID string, when time.Time) error {
	return s.revoke(ctx, "user_id", userID, when)
}

func (s *SessionsStore) revoke(ctx context.Context, column, value string, when time.Time) error {
	q := `UPDATE sessions SET revoked_at = $2 WHERE ` + column + ` = $1 AND revoked_at IS NULL`
	if _, err := s.pool.Exec(ctx, q, value, when); err != nil {
		return fmt.Errorf("revoke sessions by %s: %w", column, err)
	}
	return nil
}

// PurgeSessions deletes sessions that expired or were revoked before cutoff
// and returns how many rows went.
func (s *SessionsStore) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1 OR revoked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return ct.RowsAffected(), nil
}
