package postgres

import (
	"context"
	"errors"
	"fmt"

	"qonnectme/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartStore struct {
	pool *pgxpool.Pool
}

func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

func (s *CartStore) ListCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	const q = `
		SELECT ` + productColumns + `, c.quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at ASC
	`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	var out []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		p, err := scanProduct(cartRow{rows, &item.Quantity})
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.Product = p
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	return out, nil
}

// cartRow appends the quantity column to a product scan.
type cartRow struct {
	pgx.Row
	quantity *int
}

func (r cartRow) Scan(dest ...any) error {
	return r.Row.Scan(append(dest, r.quantity)...)
}

// AddCartItem adjusts a line by delta. Lines that drop to zero are removed.
func (s *CartStore) AddCartItem(ctx context.Context, userID, productID string, delta int) (int, error) {
	if !validProductID(productID) {
		return 0, domain.ErrNotFound
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current int
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM cart_items
		WHERE user_id = $1 AND product_id = $2
		FOR UPDATE
	`, userID, productID).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("load cart item: %w", err)
	}

	qty := current + delta
	if qty <= 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
			return 0, fmt.Errorf("remove cart item: %w", err)
		}
		qty = 0
	} else {
		const upsert = `
			INSERT INTO cart_items (user_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = EXCLUDED.quantity
		`
		if _, err := tx.Exec(ctx, upsert, userID, productID, qty); err != nil {
			return 0, fmt.Errorf("add cart item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return qty, nil
}

func (s *CartStore) SetCartItem(ctx context.Context, userID, productID string, quantity int) error {
	if !validProductID(productID) {
		return domain.ErrNotFound
	}
	const q = `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`
	if _, err := s.pool.Exec(ctx, q, userID, productID, quantity); err != nil {
		return fmt.Errorf("set cart item: %w", err)
	}
	return nil
}

func (s *CartStore) RemoveCartItem(ctx context.Context, userID, productID string) error {
	if !validProductID(productID) {
		return domain.ErrNotFound
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

// validProductID keeps ids Postgres would reject as a uuid out of queries.
func validProductID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
