package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/Sakib8git/Plant-net-server/internal/catalog"
	"github.com/Sakib8git/Plant-net-server/internal/orders"
	"github.com/Sakib8git/Plant-net-server/internal/payments"
)

var (
	ErrInvalidCart = errors.New("invalid cart")

	// ErrMalformedSession: the session exists but its metadata does not
	// carry the product id and buyer email we stored at checkout.
	ErrMalformedSession = errors.New("session metadata incomplete")

	// ErrPaymentIncomplete: the session is not in a terminal "complete"
	// state yet. Safe for the caller to retry later.
	ErrPaymentIncomplete = errors.New("payment not complete")
)

// Session metadata keys. These are the only durable link between the
// cart at checkout time and the order at reconcile time.
const (
	metaProductID = "productId"
	metaCustomer  = "customer"
)

type ProductStore interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	DecrementStock(ctx context.Context, id string, n int) (int, error)
}

type OrderStore interface {
	InsertUnique(ctx context.Context, o orders.Order) error
	FindByTransactionID(ctx context.Context, txID string) (orders.Order, error)
}

type Service struct {
	Payments     payments.Client
	Products     ProductStore
	Orders       OrderStore
	ClientDomain string
}

type Cart struct {
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	BuyerEmail  string  `json:"buyerEmail"`
}

// InitiateSession asks the processor for a checkout session and returns
// the redirect URL. No local state is written; the session metadata is
// the only record until reconciliation.
func (s *Service) InitiateSession(ctx context.Context, cart Cart) (string, error) {
	switch {
	case cart.ProductID == "":
		return "", fmt.Errorf("%w: missing product id", ErrInvalidCart)
	case cart.Price <= 0:
		return "", fmt.Errorf("%w: price must be positive", ErrInvalidCart)
	case cart.Quantity <= 0:
		return "", fmt.Errorf("%w: quantity must be positive", ErrInvalidCart)
	case cart.BuyerEmail == "":
		return "", fmt.Errorf("%w: missing buyer email", ErrInvalidCart)
	}

	sess, err := s.Payments.CreateSession(ctx, payments.CreateParams{
		Name:          cart.Name,
		Description:   cart.Description,
		Image:         cart.Image,
		UnitAmount:    int64(math.Round(cart.Price * 100)),
		Quantity:      cart.Quantity,
		CustomerEmail: cart.BuyerEmail,
		Metadata: map[string]string{
			metaProductID: cart.ProductID,
			metaCustomer:  cart.BuyerEmail,
		},
		SuccessURL: s.ClientDomain + "/paymentSuccess?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.ClientDomain + "/plant/" + cart.ProductID,
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

type Result struct {
	TransactionID string
	OrderID       string
	Created       bool

	// set only when Created
	ProductID   string
	Buyer       string
	SellerEmail string
	PriceCents  int64
	StockLeft   int
}

// Reconcile converts a completed payment session into exactly one
// persisted order and one stock decrement. Calling it again for the
// same session (or any session bearing the same transaction id) returns
// the already-stored order. The orders table's unique index on
// transaction_id is the gate; the decrement runs only after a
// first-time insert, so it fires once per transaction no matter how
// many calls race.
func (s *Service) Reconcile(ctx context.Context, sessionID string) (Result, error) {
	sess, err := s.Payments.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	productID := sess.Metadata[metaProductID]
	buyer := sess.Metadata[metaCustomer]
	if productID == "" || buyer == "" {
		return Result{}, ErrMalformedSession
	}

	if existing, err := s.Orders.FindByTransactionID(ctx, sess.PaymentIntent); err == nil {
		return Result{TransactionID: existing.TransactionID, OrderID: existing.ID}, nil
	} else if !errors.Is(err, orders.ErrNotFound) {
		return Result{}, err
	}

	if sess.Status != payments.StatusComplete {
		return Result{}, ErrPaymentIncomplete
	}

	p, err := s.Products.Get(ctx, productID)
	if err != nil {
		return Result{}, err
	}

	o := orders.Order{
		ID:            uuid.NewString(),
		ProductID:     productID,
		TransactionID: sess.PaymentIntent,
		Buyer:         buyer,
		Seller:        p.Seller,
		Name:          p.Name,
		Category:      p.Category,
		Quantity:      1,
		PriceCents:    sess.AmountTotal,
		Status:        orders.StatusPending,
		Image:         p.Image,
	}
	if err := s.Orders.InsertUnique(ctx, o); err != nil {
		if errors.Is(err, orders.ErrDuplicateTransaction) {
			// lost the race; whoever won already decremented
			existing, err := s.Orders.FindByTransactionID(ctx, sess.PaymentIntent)
			if err != nil {
				return Result{}, err
			}
			return Result{TransactionID: existing.TransactionID, OrderID: existing.ID}, nil
		}
		return Result{}, err
	}

	left, err := s.Products.DecrementStock(ctx, productID, 1)
	if err != nil {
		// order is in; a failing decrement here is a data-integrity
		// fault, never silently clamped
		return Result{}, fmt.Errorf("decrement stock for order %s: %w", o.ID, err)
	}

	return Result{
		TransactionID: o.TransactionID,
		OrderID:       o.ID,
		Created:       true,
		ProductID:     o.ProductID,
		Buyer:         o.Buyer,
		SellerEmail:   o.Seller.Email,
		PriceCents:    o.PriceCents,
		StockLeft:     left,
	}, nil
}
