package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Sakib8git/Plant-net-server/internal/orders"
	"github.com/Sakib8git/Plant-net-server/internal/redisx"
)

// Service consumes order.reconciled events and keeps the cached order
// listings honest: after a new order, the buyer's and seller's cached
// lists are stale and get dropped.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) HandleOrderReconciled(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderReconciled {
		return nil
	}

	// dedup on event_id; delivery is at-least-once
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	var p orders.OrderReconciledPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}

	_ = s.Redis.Del(ctx,
		fmt.Sprintf(redisx.KeyBuyerOrders, p.Buyer),
		fmt.Sprintf(redisx.KeySellerOrders, p.SellerEmail),
	).Err()

	log.Printf("order reconciled: order=%s product=%s tx=%s buyer=%s", p.OrderID, p.ProductID, p.TransactionID, p.Buyer)
	return nil
}

// HandleStockDepleted logs sell-outs so sellers can be alerted.
func (s *Service) HandleStockDepleted(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventStockDepleted {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	var p orders.StockDepletedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}
	log.Printf("stock depleted: product=%s seller=%s", p.ProductID, p.SellerEmail)
	return nil
}
