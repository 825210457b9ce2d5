package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("product not found")

	// ErrInsufficientStock means a decrement would take quantity below
	// zero. The row is left untouched.
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, category, description, price_cents, quantity,
	seller_name, seller_email, image, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.PriceCents,
		&p.Quantity, &p.Seller.Name, &p.Seller.Email, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) Create(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, category, description, price_cents, quantity,
		                     seller_name, seller_email, image)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Category, p.Description, p.PriceCents, p.Quantity,
		p.Seller.Name, p.Seller.Email, p.Image,
	)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListBySeller(ctx context.Context, email string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products
		WHERE seller_email=$1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock takes n units off the product's quantity in a single
// guarded UPDATE, so concurrent decrements cannot lose updates or drive
// the quantity negative. Returns the remaining quantity.
func (r *Repo) DecrementStock(ctx context.Context, id string, n int) (int, error) {
	var remaining int
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity`, id, n).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		// row missing or guard failed; tell them apart
		var exists bool
		if err2 := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err2 != nil {
			return 0, err2
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}
