package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sakib8git/Plant-net-server/internal/catalog"
	"github.com/Sakib8git/Plant-net-server/internal/orders"
	"github.com/Sakib8git/Plant-net-server/internal/payments"
)

type fakePayments struct {
	sessions  map[string]payments.Session
	created   []payments.CreateParams
	createErr error
}

func (f *fakePayments) CreateSession(_ context.Context, p payments.CreateParams) (payments.Session, error) {
	if f.createErr != nil {
		return payments.Session{}, f.createErr
	}
	f.created = append(f.created, p)
	return payments.Session{ID: "cs_test_1", URL: "https://checkout.example.com/c/cs_test_1"}, nil
}

func (f *fakePayments) GetSession(_ context.Context, id string) (payments.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return payments.Session{}, payments.ErrSessionNotFound
	}
	return s, nil
}

type fakeProducts struct {
	mu    sync.Mutex
	items map[string]catalog.Product
}

func (f *fakeProducts) Get(_ context.Context, id string) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id string, n int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	if p.Quantity < n {
		return 0, catalog.ErrInsufficientStock
	}
	p.Quantity -= n
	f.items[id] = p
	return p.Quantity, nil
}

type fakeOrders struct {
	mu   sync.Mutex
	byTx map[string]orders.Order

	// hideNext makes FindByTransactionID miss that many times even when
	// the order exists, forcing the insert-conflict path.
	hideNext int
}

func (f *fakeOrders) InsertUnique(_ context.Context, o orders.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byTx[o.TransactionID]; ok {
		return orders.ErrDuplicateTransaction
	}
	f.byTx[o.TransactionID] = o
	return nil
}

func (f *fakeOrders) FindByTransactionID(_ context.Context, txID string) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideNext > 0 {
		f.hideNext--
		return orders.Order{}, orders.ErrNotFound
	}
	o, ok := f.byTx[txID]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func fern(qty int) catalog.Product {
	return catalog.Product{
		ID:         "plant-1",
		Name:       "Boston Fern",
		Category:   "fern",
		PriceCents: 1999,
		Quantity:   qty,
		Seller:     catalog.Seller{Name: "Green Roots", Email: "seller@example.com"},
		Image:      "https://img.example.com/fern.jpg",
	}
}

func completeSession(id, txID string) payments.Session {
	return payments.Session{
		ID:            id,
		Status:        payments.StatusComplete,
		PaymentIntent: txID,
		AmountTotal:   1999,
		Metadata:      map[string]string{"productId": "plant-1", "customer": "buyer@example.com"},
	}
}

func newService(qty int, sessions ...payments.Session) (*Service, *fakePayments, *fakeProducts, *fakeOrders) {
	fp := &fakePayments{sessions: map[string]payments.Session{}}
	for _, s := range sessions {
		fp.sessions[s.ID] = s
	}
	products := &fakeProducts{items: map[string]catalog.Product{"plant-1": fern(qty)}}
	store := &fakeOrders{byTx: map[string]orders.Order{}}
	svc := &Service{
		Payments:     fp,
		Products:     products,
		Orders:       store,
		ClientDomain: "http://localhost:5173",
	}
	return svc, fp, products, store
}

func TestInitiateSession(t *testing.T) {
	svc, fp, _, _ := newService(3)

	url, err := svc.InitiateSession(context.Background(), Cart{
		ProductID:  "plant-1",
		Name:       "Boston Fern",
		Image:      "https://img.example.com/fern.jpg",
		Price:      19.99,
		Quantity:   1,
		BuyerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/c/cs_test_1", url)

	require.Len(t, fp.created, 1)
	p := fp.created[0]
	assert.Equal(t, int64(1999), p.UnitAmount)
	assert.Equal(t, "buyer@example.com", p.CustomerEmail)
	assert.Equal(t, "plant-1", p.Metadata["productId"])
	assert.Equal(t, "buyer@example.com", p.Metadata["customer"])
	assert.Contains(t, p.SuccessURL, "session_id={CHECKOUT_SESSION_ID}")
}

func TestInitiateSessionValidation(t *testing.T) {
	svc, fp, _, _ := newService(3)
	base := Cart{ProductID: "plant-1", Price: 19.99, Quantity: 1, BuyerEmail: "buyer@example.com"}

	for name, mutate := range map[string]func(*Cart){
		"missing product": func(c *Cart) { c.ProductID = "" },
		"zero price":      func(c *Cart) { c.Price = 0 },
		"negative price":  func(c *Cart) { c.Price = -5 },
		"zero quantity":   func(c *Cart) { c.Quantity = 0 },
		"missing email":   func(c *Cart) { c.BuyerEmail = "" },
	} {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			_, err := svc.InitiateSession(context.Background(), c)
			assert.ErrorIs(t, err, ErrInvalidCart)
		})
	}
	assert.Empty(t, fp.created, "no session may be created for an invalid cart")
}

func TestInitiateSessionUpstreamError(t *testing.T) {
	svc, fp, _, _ := newService(3)
	fp.createErr = fmt.Errorf("%w: amount too small", payments.ErrUpstream)

	_, err := svc.InitiateSession(context.Background(), Cart{
		ProductID: "plant-1", Price: 19.99, Quantity: 1, BuyerEmail: "buyer@example.com",
	})
	assert.ErrorIs(t, err, payments.ErrUpstream)
}

func TestReconcileCreatesOrderAndDecrements(t *testing.T) {
	svc, _, products, store := newService(3, completeSession("cs_1", "tx_1"))

	res, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "tx_1", res.TransactionID)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, 2, res.StockLeft)

	o := store.byTx["tx_1"]
	assert.Equal(t, "plant-1", o.ProductID)
	assert.Equal(t, "buyer@example.com", o.Buyer)
	assert.Equal(t, "seller@example.com", o.Seller.Email)
	assert.Equal(t, "Boston Fern", o.Name)
	assert.Equal(t, "fern", o.Category)
	assert.Equal(t, 1, o.Quantity)
	assert.Equal(t, int64(1999), o.PriceCents)
	assert.Equal(t, orders.StatusPending, o.Status)

	assert.Equal(t, 2, products.items["plant-1"].Quantity)
}

func TestReconcileIdempotentSequential(t *testing.T) {
	svc, _, products, store := newService(3, completeSession("cs_1", "tx_1"))

	first, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)

	second, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	assert.Len(t, store.byTx, 1)
	assert.Equal(t, 2, products.items["plant-1"].Quantity, "stock decremented once, not twice")
}

func TestReconcileIdempotentConcurrent(t *testing.T) {
	svc, _, products, store := newService(3, completeSession("cs_1", "tx_1"))

	const n = 8
	results := make([]Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Reconcile(context.Background(), "cs_1")
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tx_1", results[i].TransactionID)
		assert.Equal(t, results[0].OrderID, results[i].OrderID)
		if results[i].Created {
			created++
		}
	}
	assert.Equal(t, 1, created, "exactly one call may create the order")
	assert.Len(t, store.byTx, 1)
	assert.Equal(t, 2, products.items["plant-1"].Quantity)
}

func TestReconcileInsertConflictIsSuccess(t *testing.T) {
	svc, _, products, store := newService(3, completeSession("cs_1", "tx_1"))

	existing := orders.Order{ID: "order-1", TransactionID: "tx_1", ProductID: "plant-1"}
	store.byTx["tx_1"] = existing
	store.hideNext = 1 // existence check misses; the unique insert must catch it

	res, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "order-1", res.OrderID)
	assert.Equal(t, "tx_1", res.TransactionID)
	assert.Equal(t, 3, products.items["plant-1"].Quantity, "losing the race must not decrement")
}

func TestReconcilePaymentIncomplete(t *testing.T) {
	open := payments.Session{
		ID:       "cs_open",
		Status:   payments.StatusOpen,
		Metadata: map[string]string{"productId": "plant-1", "customer": "buyer@example.com"},
	}
	svc, _, products, store := newService(3, open)

	_, err := svc.Reconcile(context.Background(), "cs_open")
	assert.ErrorIs(t, err, ErrPaymentIncomplete)
	assert.Empty(t, store.byTx)
	assert.Equal(t, 3, products.items["plant-1"].Quantity)
}

func TestReconcileExpiredSession(t *testing.T) {
	expired := payments.Session{
		ID:       "cs_exp",
		Status:   payments.StatusExpired,
		Metadata: map[string]string{"productId": "plant-1", "customer": "buyer@example.com"},
	}
	svc, _, _, store := newService(3, expired)

	_, err := svc.Reconcile(context.Background(), "cs_exp")
	assert.ErrorIs(t, err, ErrPaymentIncomplete)
	assert.Empty(t, store.byTx)
}

func TestReconcileSessionNotFound(t *testing.T) {
	svc, _, _, _ := newService(3)
	_, err := svc.Reconcile(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, payments.ErrSessionNotFound)
}

func TestReconcileMalformedSession(t *testing.T) {
	bad := payments.Session{
		ID:            "cs_bad",
		Status:        payments.StatusComplete,
		PaymentIntent: "tx_bad",
		Metadata:      map[string]string{"customer": "buyer@example.com"},
	}
	svc, _, _, store := newService(3, bad)

	_, err := svc.Reconcile(context.Background(), "cs_bad")
	assert.ErrorIs(t, err, ErrMalformedSession)
	assert.Empty(t, store.byTx)
}

func TestReconcileProductDeleted(t *testing.T) {
	sess := completeSession("cs_1", "tx_1")
	sess.Metadata["productId"] = "plant-gone"
	svc, _, _, store := newService(3, sess)

	_, err := svc.Reconcile(context.Background(), "cs_1")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Empty(t, store.byTx, "no partial write on missing product")
}

func TestReconcileOutOfStock(t *testing.T) {
	svc, _, products, _ := newService(0, completeSession("cs_1", "tx_1"))

	_, err := svc.Reconcile(context.Background(), "cs_1")
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Equal(t, 0, products.items["plant-1"].Quantity, "never negative")
}

func TestReconcileSnapshotFidelity(t *testing.T) {
	svc, _, products, store := newService(3, completeSession("cs_1", "tx_1"))

	_, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)

	// later catalog edits must not leak into the stored order
	edited := products.items["plant-1"]
	edited.Name = "Renamed Fern"
	edited.PriceCents = 2999
	edited.Category = "houseplant"
	products.items["plant-1"] = edited

	res, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.False(t, res.Created)

	o := store.byTx["tx_1"]
	assert.Equal(t, "Boston Fern", o.Name)
	assert.Equal(t, "fern", o.Category)
	assert.Equal(t, int64(1999), o.PriceCents)
}

func TestReconcileTwoSessionsSameTransaction(t *testing.T) {
	// a duplicated processor session carrying the same payment intent
	// still yields exactly one order
	s1 := completeSession("cs_1", "tx_1")
	s2 := completeSession("cs_2", "tx_1")
	svc, _, products, store := newService(3, s1, s2)

	first, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)
	second, err := svc.Reconcile(context.Background(), "cs_2")
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, store.byTx, 1)
	assert.Equal(t, 2, products.items["plant-1"].Quantity)
}
