package redisx

import "time"

const (
	// Reconcile fast-path: recon:session:{session_id} -> order_id.
	// Postgres stays the source of truth; this only short-circuits repeat
	// confirmation calls from the success page.
	KeyReconSession = "recon:session:%s"

	// Cached order list per buyer: orders:buyer:{email} -> json array
	KeyBuyerOrders = "orders:buyer:%s"

	// Cached order list per seller: orders:seller:{email} -> json array
	KeySellerOrders = "orders:seller:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLReconSession = 24 * time.Hour
	TTLOrderList    = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
