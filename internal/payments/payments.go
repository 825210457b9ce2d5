package payments

import (
	"context"
	"errors"
)

// Session statuses as reported by the processor.
const (
	StatusComplete = "complete"
	StatusOpen     = "open"
	StatusExpired  = "expired"
)

var (
	// ErrUpstream covers rejected requests, non-2xx responses and
	// transport failures (including timeouts). Not retried here.
	ErrUpstream = errors.New("payment processor request failed")

	// ErrSessionNotFound means the processor has no record of the id.
	ErrSessionNotFound = errors.New("payment session not found")
)

// Session is the processor-side record of an attempted payment. Once the
// buyer pays, Status becomes "complete" and PaymentIntent carries the
// transaction id used as the idempotency key downstream.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

type CreateParams struct {
	Name          string
	Description   string
	Image         string
	UnitAmount    int64 // minor units
	Quantity      int
	CustomerEmail string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

type Client interface {
	CreateSession(ctx context.Context, p CreateParams) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
}
