package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/product/entity"
)

const productColumns = `id, name, description, price, created_by, created_at, updated_at`

// Repo is the repository implementation for products backed by PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// EnsureTable creates the products table and its ordering index.
func (r *Repo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS products (
		id varchar(32) PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		created_by varchar(32) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `
	CREATE INDEX IF NOT EXISTS idx_products_created_at ON products (created_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return err
	}
	return nil
}

// Create inserts p and fills in the timestamps assigned by the database.
func (r *Repo) Create(ctx context.Context, p *entity.Product) error {
	const q = `INSERT INTO products (id, name, description, price, created_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, p.ID, p.Name, p.Description, p.Price, p.CreatedBy)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID returns the product or sql.ErrNoRows.
func (r *Repo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	var p entity.Product
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every product, newest first.
func (r *Repo) List(ctx context.Context) ([]entity.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`
	products := []entity.Product{}
	if err := r.db.SelectContext(ctx, &products, q); err != nil {
		return nil, err
	}
	return products, nil
}

// Update applies the non-nil fields of patch and returns the stored row.
// A missing product is sql.ErrNoRows.
func (r *Repo) Update(ctx context.Context, id string, patch entity.Patch) (*entity.Product, error) {
	q := `UPDATE products SET
		name = COALESCE($2, name),
		description = COALESCE($3, description),
		price = COALESCE($4, price),
		updated_at = NOW()
	WHERE id=$1 RETURNING ` + productColumns
	var p entity.Product
	if err := r.db.GetContext(ctx, &p, q, id, patch.Name, patch.Description, patch.Price); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a product by id and reports whether a row was removed.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
