package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qonnectme/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FriendshipsStore struct {
	pool *pgxpool.Pool
}

func NewFriendshipsStore(pool *pgxpool.Pool) *FriendshipsStore {
	return &FriendshipsStore{pool: pool}
}

// CreateRequest opens a pending request. A pair that was declined earlier
// is reopened in the new direction; any other existing pair is
// domain.ErrFriendshipExists.
func (s *FriendshipsStore) CreateRequest(ctx context.Context, requesterID, addresseeID string) (string, time.Time, error) {
	const q = `
		INSERT INTO friendships (requester_id, addressee_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT ((LEAST(requester_id, addressee_id)), (GREATEST(requester_id, addressee_id)))
		DO UPDATE SET
			requester_id = EXCLUDED.requester_id,
			addressee_id = EXCLUDED.addressee_id,
			status = 'pending',
			created_at = now(),
			responded_at = NULL
		WHERE friendships.status = 'declined'
		RETURNING id, created_at
	`

	var (
		idUUID    pgtype.UUID
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx, q, requesterID, addresseeID).Scan(&idUUID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// The upsert guard skipped a live pair.
		return "", time.Time{}, domain.ErrFriendshipExists
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create friend request: %w", err)
	}

	return uuidOrEmpty(idUUID), createdAt, nil
}

func (s *FriendshipsStore) Accept(ctx context.Context, requestID, addresseeID string, when time.Time) (domain.Friendship, error) {
	const q = `
		UPDATE friendships
		SET status = 'accepted', responded_at = $3
		WHERE id = $1 AND addressee_id = $2 AND status = 'pending'
		RETURNING id, requester_id, addressee_id
	`
	var idUUID, requesterUUID, addresseeUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q, requestID, addresseeID, when).Scan(&idUUID, &requesterUUID, &addresseeUUID)
	if err != nil {
		return domain.Friendship{}, notFound(err, "accept friend request")
	}
	return domain.Friendship{
		ID:          uuidOrEmpty(idUUID),
		RequesterID: uuidOrEmpty(requesterUUID),
		AddresseeID: uuidOrEmpty(addresseeUUID),
	}, nil
}

func (s *FriendshipsStore) Decline(ctx context.Context, requestID, addresseeID string, when time.Time) error {
	const q = `
		UPDATE friendships
		SET status = 'declined', responded_at = $3
		WHERE id = $1 AND addressee_id = $2 AND status = 'pending'
	`
	return s.execOne(ctx, "decline friend request", q, requestID, addresseeID, when)
}

// Cancel withdraws a pending request the requester sent.
func (s *FriendshipsStore) Cancel(ctx context.Context, requestID, requesterID string, _ time.Time) error {
	const q = `
		DELETE FROM friendships
		WHERE id = $1 AND requester_id = $2 AND status = 'pending'
	`
	return s.execOne(ctx, "cancel friend request", q, requestID, requesterID)
}

// execOne runs a statement that must touch a row; none is ErrNotFound.
func (s *FriendshipsStore) execOne(ctx context.Context, op, q string, args ...any) error {
	ct, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListLinks loads every live link of userID in one pass: accepted friends
// ordered by when they accepted, then pending requests newest first.
func (s *FriendshipsStore) ListLinks(ctx context.Context, userID string) (domain.FriendLinks, error) {
	const q = `
		SELECT f.id, f.requester_id = $1 AS outgoing,
		       CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END AS other_id,
		       f.status, f.created_at
		FROM friendships f
		WHERE (f.requester_id = $1 OR f.addressee_id = $1) AND f.status IN ('accepted', 'pending')
		ORDER BY f.status, COALESCE(f.responded_at, f.created_at) DESC
	`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return domain.FriendLinks{}, fmt.Errorf("list friend links: %w", err)
	}
	defer rows.Close()

	var links domain.FriendLinks
	for rows.Next() {
		var (
			id, other pgtype.UUID
			outgoing  bool
			status    string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &outgoing, &other, &status, &createdAt); err != nil {
			return domain.FriendLinks{}, fmt.Errorf("scan friend link: %w", err)
		}
		if status == "accepted" {
			links.FriendIDs = append(links.FriendIDs, uuidOrEmpty(other))
			continue
		}
		link := domain.FriendRequestLink{ID: uuidOrEmpty(id), UserID: uuidOrEmpty(other), CreatedAt: createdAt}
		if outgoing {
			links.Outgoing = append(links.Outgoing, link)
		} else {
			links.Incoming = append(links.Incoming, link)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.FriendLinks{}, fmt.Errorf("list friend links: %w", err)
	}
	return links, nil
}
