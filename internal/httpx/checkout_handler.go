package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Sakib8git/Plant-net-server/internal/catalog"
	"github.com/Sakib8git/Plant-net-server/internal/checkout"
	kafkax "github.com/Sakib8git/Plant-net-server/internal/kafka"
	"github.com/Sakib8git/Plant-net-server/internal/orders"
	"github.com/Sakib8git/Plant-net-server/internal/payments"
	"github.com/Sakib8git/Plant-net-server/internal/redisx"
)

type CheckoutHandler struct {
	Checkout      *checkout.Service
	ProducerOrder *kafkax.Producer // order.reconciled
	ProducerStock *kafkax.Producer // stock.depleted
	Redis         *redis.Client
	Service       string
}

type CreateSessionResp struct {
	URL string `json:"url"`
}

type ReconcileReq struct {
	SessionID string `json:"sessionId"`
}

type ReconcileResp struct {
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/create-checkout-session", h.createCheckoutSession)
	r.Post("/paymentSuccess", h.paymentSuccess)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *CheckoutHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var cart checkout.Cart
	if err := json.NewDecoder(r.Body).Decode(&cart); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	url, err := h.Checkout.InitiateSession(ctx, cart)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInvalidCart):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, payments.ErrUpstream):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, CreateSessionResp{URL: url})
}

func (h *CheckoutHandler) paymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req ReconcileReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing sessionId"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	// Fast-path for repeat confirmations (back button, client retry).
	// Redis is advisory; on a miss we go to the processor and the DB.
	cacheKey := fmt.Sprintf(redisx.KeyReconSession, req.SessionID)
	if s, err := h.Redis.Get(ctx, cacheKey).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	res, err := h.Checkout.Reconcile(ctx, req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrSessionNotFound), errors.Is(err, catalog.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, checkout.ErrMalformedSession):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, checkout.ErrPaymentIncomplete):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, payments.ErrUpstream):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	resp := ReconcileResp{TransactionID: res.TransactionID, OrderID: res.OrderID}
	b, _ := json.Marshal(resp)
	_ = h.Redis.Set(ctx, cacheKey, b, redisx.TTLReconSession).Err()

	if res.Created {
		h.publishReconciled(r, res)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *CheckoutHandler) publishReconciled(r *http.Request, res checkout.Result) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderReconciled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.OrderID,
	}
	ev.Payload = kafkax.MustMarshal(orders.OrderReconciledPayload{
		OrderID:       res.OrderID,
		ProductID:     res.ProductID,
		TransactionID: res.TransactionID,
		Buyer:         res.Buyer,
		SellerEmail:   res.SellerEmail,
		PriceCents:    res.PriceCents,
	})
	h.ProducerOrder.Publish(orders.PartitionKey(res.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderReconciled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	if res.StockLeft == 0 {
		dep := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventStockDepleted,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: res.OrderID,
		}
		dep.Payload = kafkax.MustMarshal(orders.StockDepletedPayload{
			ProductID:   res.ProductID,
			SellerEmail: res.SellerEmail,
		})
		h.ProducerStock.Publish(orders.PartitionKey(res.OrderID), kafkax.MustMarshal(dep),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockDepleted)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
}
