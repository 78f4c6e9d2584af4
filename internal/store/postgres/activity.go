package postgres

import (
	"context"
	"fmt"

	"qonnectme/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityStore struct {
	pool *pgxpool.Pool
}

func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

func (s *ActivityStore) InsertActivity(ctx context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error) {
	const q = `
		INSERT INTO activities (kind, actor_id, target_id, content, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var idUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q, string(rec.Kind), rec.ActorID, nullIfEmpty(rec.TargetID), rec.Content, rec.ImageURL, rec.CreatedAt).Scan(&idUUID)
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("insert activity: %w", err)
	}
	rec.ID = uuidOrEmpty(idUUID)
	return rec, nil
}

// ListFeed returns the user's own items, items by accepted friends, and
// items targeted at the user, newest first. Friend requests only show up
// for their target.
func (s *ActivityStore) ListFeed(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	const q = `
		WITH friends AS (
			SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END AS id
			FROM friendships
			WHERE status = 'accepted' AND (requester_id = $1 OR addressee_id = $1)
		)
		SELECT a.id, a.kind, a.actor_id, a.target_id, a.content, a.image_url, a.created_at
		FROM activities a
		WHERE a.target_id = $1
		   OR (a.kind <> 'friend_request' AND (a.actor_id = $1 OR a.actor_id IN (SELECT id FROM friends)))
		ORDER BY a.created_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityRecord
	for rows.Next() {
		var (
			rec                           domain.ActivityRecord
			kind                          string
			idUUID, actorUUID, targetUUID pgtype.UUID
		)
		if err := rows.Scan(&idUUID, &kind, &actorUUID, &targetUUID, &rec.Content, &rec.ImageURL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		rec.ID = uuidOrEmpty(idUUID)
		rec.Kind = domain.ActivityKind(kind)
		rec.ActorID = uuidOrEmpty(actorUUID)
		rec.TargetID = uuidOrEmpty(targetUUID)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return out, nil
}
