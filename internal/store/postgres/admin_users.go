package postgres

import (
	"context"
	"fmt"
	"strings"

	"qonnectme/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminUsersStore backs the admin user list. Search is a case-insensitive
// substring match on the account id, the email and the claimed username.
type AdminUsersStore struct {
	*UsersStore
}

func NewAdminUsersStore(pool *pgxpool.Pool) *AdminUsersStore {
	return &AdminUsersStore{UsersStore: NewUsersStore(pool)}
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return limit, max(offset, 0)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *AdminUsersStore) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.pageUsers(ctx, "", limit, offset)
}

func (s *AdminUsersStore) SearchUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.User{}, nil
	}
	return s.pageUsers(ctx, "%"+likeEscaper.Replace(query)+"%", limit, offset)
}

// pageUsers lists newest accounts first; an empty pattern matches all.
func (s *AdminUsersStore) pageUsers(ctx context.Context, pattern string, limit, offset int) ([]domain.User, error) {
	limit, offset = clampPage(limit, offset)
	const q = `
		SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN usernames n ON n.user_id = u.id
		WHERE $1 = '' OR u.id::text ILIKE $1 OR u.email ILIKE $1 OR n.name ILIKE $1
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, q, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("page users: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, fmt.Errorf("page users: %w", err)
	}
	if out == nil {
		out = []domain.User{}
	}
	return out, nil
}

func (s *AdminUsersStore) SetUserStatus(ctx context.Context, userID string, status domain.UserStatus) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`, userID, string(status))
	if err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
