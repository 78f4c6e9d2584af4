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

type ProductsStore struct {
	pool *pgxpool.Pool
}

func NewProductsStore(pool *pgxpool.Pool) *ProductsStore {
	return &ProductsStore{pool: pool}
}

const productColumns = `p.id, p.name, p.description, p.price_cents, p.image_url, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p      domain.Product
		idUUID pgtype.UUID
	)
	if err := row.Scan(&idUUID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	p.ID = uuidOrEmpty(idUUID)
	return p, nil
}

func (s *ProductsStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products p ORDER BY p.created_at ASC, p.name ASC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// GetProduct treats ids that are not UUIDs as unknown products.
func (s *ProductsStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if !validProductID(id) {
		return domain.Product{}, domain.ErrNotFound
	}
	const q = `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`
	p, err := scanProduct(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return domain.Product{}, notFound(err, "get product")
	}
	return p, nil
}

func (s *ProductsStore) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	const q = `
		INSERT INTO products AS p (name, description, price_cents, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + productColumns
	created, err := scanProduct(s.pool.QueryRow(ctx, q, p.Name, p.Description, p.PriceCents, p.ImageURL, p.CreatedAt))
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (s *ProductsStore) UpdateProduct(ctx context.Context, id string, in domain.ProductInput, when time.Time) (domain.Product, error) {
	if !validProductID(id) {
		return domain.Product{}, domain.ErrNotFound
	}
	const q = `
		UPDATE products AS p
		SET name = COALESCE($2, p.name),
		    description = COALESCE($3, p.description),
		    price_cents = COALESCE($4, p.price_cents),
		    image_url = COALESCE($5, p.image_url),
		    updated_at = $6
		WHERE p.id = $1
		RETURNING ` + productColumns
	p, err := scanProduct(s.pool.QueryRow(ctx, q, id, in.Name, in.Description, in.PriceCents, in.ImageURL, when))
	if err != nil {
		return domain.Product{}, notFound(err, "update product")
	}
	return p, nil
}

func (s *ProductsStore) DeleteProduct(ctx context.Context, id string) error {
	if !validProductID(id) {
		return domain.ErrNotFound
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
