package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("order not found")

	// ErrDuplicateTransaction signals the unique index on transaction_id
	// rejected an insert. Callers treat it as "already reconciled", not
	// as a failure.
	ErrDuplicateTransaction = errors.New("transaction already has an order")
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, product_id, transaction_id, buyer, seller_name, seller_email,
	name, category, quantity, price_cents, status, image, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ProductID, &o.TransactionID, &o.Buyer,
		&o.Seller.Name, &o.Seller.Email, &o.Name, &o.Category,
		&o.Quantity, &o.PriceCents, &o.Status, &o.Image, &o.CreatedAt)
	return o, err
}

// InsertUnique inserts the order unless an order for the same
// transaction id already exists. The unique index is the only gate;
// there is deliberately no read-before-write here.
func (r *Repo) InsertUnique(ctx context.Context, o Order) error {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, product_id, transaction_id, buyer, seller_name, seller_email,
		                   name, category, quantity, price_cents, status, image)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (transaction_id) DO NOTHING`,
		o.ID, o.ProductID, o.TransactionID, o.Buyer, o.Seller.Name, o.Seller.Email,
		o.Name, o.Category, o.Quantity, o.PriceCents, o.Status, o.Image,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}

func (r *Repo) FindByTransactionID(ctx context.Context, txID string) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE transaction_id=$1`, txID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *Repo) FindByBuyer(ctx context.Context, email string) ([]Order, error) {
	return r.findBy(ctx, `buyer=$1`, email)
}

func (r *Repo) FindBySeller(ctx context.Context, email string) ([]Order, error) {
	return r.findBy(ctx, `seller_email=$1`, email)
}

func (r *Repo) findBy(ctx context.Context, where string, arg any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
