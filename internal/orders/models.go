package orders

import (
	"time"

	"github.com/Sakib8git/Plant-net-server/internal/catalog"
)

// Order is created exactly once per transaction id and never mutated by
// the reconciliation path. Name/category/price/image are snapshots of
// the product at first reconcile, not live references.
type Order struct {
	ID            string         `json:"id"`
	ProductID     string         `json:"product_id"`
	TransactionID string         `json:"transaction_id"`
	Buyer         string         `json:"buyer"`
	Seller        catalog.Seller `json:"seller"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	Quantity      int            `json:"quantity"`
	PriceCents    int64          `json:"price_cents"`
	Status        string         `json:"status"`
	Image         string         `json:"image"`
	CreatedAt     time.Time      `json:"created_at"`
}

const StatusPending = "pending"
