package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qonnectme/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfilesStore keeps profiles in the profiles table and username claims
// in usernames, mirroring the users/{uid} and usernames/{name} documents
// of the Firestore backend.
type ProfilesStore struct {
	pool *pgxpool.Pool
}

func NewProfilesStore(pool *pgxpool.Pool) *ProfilesStore {
	return &ProfilesStore{pool: pool}
}

const profileColumns = `p.user_id, p.username, p.name, p.bio, p.avatar_url, p.updated_at`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		p      domain.Profile
		idUUID pgtype.UUID
	)
	if err := row.Scan(&idUUID, &p.Username, &p.Name, &p.Bio, &p.AvatarURL, &p.UpdatedAt); err != nil {
		return domain.Profile{}, err
	}
	p.UserID = uuidOrEmpty(idUUID)
	return p, nil
}

func (s *ProfilesStore) CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := claimUsername(ctx, tx, p.Username, p.UserID); err != nil {
		return domain.Profile{}, err
	}

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	const q = `
		INSERT INTO profiles AS p (user_id, username, name, bio, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + profileColumns
	created, err := scanProfile(tx.QueryRow(ctx, q, p.UserID, p.Username, p.Name, p.Bio, p.AvatarURL, p.UpdatedAt))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Profile{}, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func claimUsername(ctx context.Context, tx pgx.Tx, username, userID string) error {
	const q = `INSERT INTO usernames (name, user_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, q, domain.UsernameKey(username), userID); err != nil {
		if c, ok := uniqueViolation(err); ok && c == "usernames_pkey" {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("claim username: %w", err)
	}
	return nil
}

func (s *ProfilesStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM profiles p WHERE p.user_id = $1`
	p, err := scanProfile(s.pool.QueryRow(ctx, q, userID))
	if err != nil {
		return domain.Profile{}, notFound(err, "get profile")
	}
	return p, nil
}

func (s *ProfilesStore) GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error) {
	const q = `
		SELECT ` + profileColumns + `
		FROM usernames n
		JOIN profiles p ON p.user_id = n.user_id
		WHERE n.name = $1
	`
	p, err := scanProfile(s.pool.QueryRow(ctx, q, domain.UsernameKey(username)))
	if err != nil {
		return domain.Profile{}, notFound(err, "get profile by username")
	}
	return p, nil
}

func (s *ProfilesStore) GetProfiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	const q = `SELECT ` + profileColumns + ` FROM profiles p WHERE p.user_id::text = ANY($1::text[])`
	rows, err := s.pool.Query(ctx, q, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	return out, nil
}

// UpdateProfile overwrites the non-nil fields. A username change moves the
// claim inside the same transaction.
func (s *ProfilesStore) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate, when time.Time) (domain.Profile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const current = `SELECT ` + profileColumns + ` FROM profiles p WHERE p.user_id = $1 FOR UPDATE`
	p, err := scanProfile(tx.QueryRow(ctx, current, userID))
	if err != nil {
		return domain.Profile{}, notFound(err, "load profile")
	}

	if upd.Username != nil && domain.UsernameKey(*upd.Username) != domain.UsernameKey(p.Username) {
		if _, err := tx.Exec(ctx, `DELETE FROM usernames WHERE user_id = $1`, userID); err != nil {
			return domain.Profile{}, fmt.Errorf("release username: %w", err)
		}
		if err := claimUsername(ctx, tx, *upd.Username, userID); err != nil {
			return domain.Profile{}, err
		}
	}

	const q = `
		UPDATE profiles AS p
		SET username = COALESCE($2, p.username),
		    name = COALESCE($3, p.name),
		    bio = COALESCE($4, p.bio),
		    avatar_url = COALESCE($5, p.avatar_url),
		    updated_at = $6
		WHERE p.user_id = $1
		RETURNING ` + profileColumns
	updated, err := scanProfile(tx.QueryRow(ctx, q, userID, upd.Username, upd.Name, upd.Bio, upd.AvatarURL, when))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Profile{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (s *ProfilesStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM usernames WHERE name = $1)`, domain.UsernameKey(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("username exists: %w", err)
	}
	return exists, nil
}

func (s *ProfilesStore) SearchProfiles(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.Profile, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.Profile{}, nil
	}

	like := "%" + q + "%"
	const query = `
		SELECT ` + profileColumns + `
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE u.status = 'active'
		  AND ($3 = '' OR p.user_id::text <> $3)
		  AND (p.username ILIKE $1 OR p.name ILIKE $1)
		ORDER BY p.username ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, like, limit, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}

	return out, nil
}

// DeleteProfile removes the profile and releases its username claim.
func (s *ProfilesStore) DeleteProfile(ctx context.Context, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM usernames WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("release username: %w", err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}
