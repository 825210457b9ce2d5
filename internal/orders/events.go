package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderReconciled = "OrderReconciled"
	EventStockDepleted   = "StockDepleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "plantnet-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderReconciledPayload struct {
	OrderID       string `json:"order_id"`
	ProductID     string `json:"product_id"`
	TransactionID string `json:"transaction_id"`
	Buyer         string `json:"buyer"`
	SellerEmail   string `json:"seller_email"`
	PriceCents    int64  `json:"price_cents"`
}

type StockDepletedPayload struct {
	ProductID   string `json:"product_id"`
	SellerEmail string `json:"seller_email"`
}
