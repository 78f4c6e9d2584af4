package postgres

import (
	"context"
	"fmt"
	"time"

	"qonnectme/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

const userColumns = `u.id, u.email, u.status, u.created_at, u.updated_at, u.last_login_at`

func scanUser(row pgx.Row, extra ...any) (domain.User, error) {
	var (
		u           domain.User
		idUUID      pgtype.UUID
		emailText   pgtype.Text
		lastLoginTS pgtype.Timestamptz
	)
	dest := append([]any{&idUUID, &emailText, &u.Status, &u.CreatedAt, &u.UpdatedAt, &lastLoginTS}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.Email = textOrEmpty(emailText)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func scanUserWithPassword(row pgx.Row) (domain.UserWithPassword, error) {
	var hash pgtype.Text
	u, err := scanUser(row, &hash)
	if err != nil {
		return domain.UserWithPassword{}, err
	}
	return domain.UserWithPassword{User: u, PasswordHash: textOrEmpty(hash)}, nil
}

func (s *UsersStore) CreateUser(ctx context.Context, email, passwordHash string) (domain.User, error) {
	const q = `
		INSERT INTO users AS u (email, password_hash)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, nullIfEmpty(email), nullIfEmpty(passwordHash)))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return domain.User{}, notFound(err, "get user by id")
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `SELECT ` + userColumns + `, u.password_hash FROM users u WHERE u.email = $1`

	u, err := scanUserWithPassword(s.pool.QueryRow(ctx, q, email))
	if err != nil {
		return domain.UserWithPassword{}, notFound(err, "get user by email")
	}
	return u, nil
}

func (s *UsersStore) GetUserWithPasswordByID(ctx context.Context, id string) (domain.UserWithPassword, error) {
	const q = `SELECT ` + userColumns + `, u.password_hash FROM users u WHERE u.id = $1`

	u, err := scanUserWithPassword(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return domain.UserWithPassword{}, notFound(err, "get user with password")
	}
	return u, nil
}

func (s *UsersStore) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM external_accounts ea
		JOIN users u ON u.id = ea.user_id
		WHERE ea.provider = $1 AND ea.provider_id = $2
	`

	u, err := scanUser(s.pool.QueryRow(ctx, q, provider, providerID))
	if err != nil {
		return domain.User{}, notFound(err, "get user by external account")
	}
	return u, nil
}

// CreateUserWithExternalAccount inserts a password-less user and its
// linked account in one transaction.
func (s *UsersStore) CreateUserWithExternalAccount(ctx context.Context, provider, providerID, email string) (domain.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertUser = `
		INSERT INTO users AS u (email)
		VALUES ($1)
		RETURNING ` + userColumns

	u, err := scanUser(tx.QueryRow(ctx, insertUser, nullIfEmpty(email)))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}

	if err := insertExternalAccount(ctx, tx, u.ID, provider, providerID, email); err != nil {
		return domain.User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.User{}, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

func (s *UsersStore) LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) error {
	return insertExternalAccount(ctx, s.pool, userID, provider, providerID, email)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertExternalAccount(ctx context.Context, db execer, userID, provider, providerID, email string) error {
	const q = `
		INSERT INTO external_accounts (user_id, provider, provider_id, email)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := db.Exec(ctx, q, userID, provider, providerID, nullIfEmpty(email)); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrExternalAccountExists
		}
		return fmt.Errorf("link external account: %w", err)
	}
	return nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	const q = `
		UPDATE users
		SET last_login_at = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, q, userID, when)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	ct, err := s.pool.Exec(ctx, q, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user. Sessions, profile, username claim and
// other owned rows go with it through ON DELETE CASCADE.
func (s *UsersStore) DeleteUser(ctx context.Context, userID string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapUserWriteError(err error) error {
	if c, ok := uniqueViolation(err); ok && c == "users_email_uq" {
		return domain.ErrEmailTaken
	}
	return fmt.Errorf("create user: %w", err)
}
