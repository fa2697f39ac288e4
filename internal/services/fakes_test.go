package service_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	// beforeDecrement runs under the lock, standing in for a concurrent buyer.
	beforeDecrement func(p *models.Product)
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}

	return repo
}

func (r *fakeProductRepo) GetProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	product := *p

	return &product, nil
}

func (r *fakeProductRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}

	if r.beforeDecrement != nil {
		r.beforeDecrement(p)
	}

	if p.StockQuantity < int64(quantity) {
		return repository.ErrInsufficientStock
	}

	p.StockQuantity -= int64(quantity)
	p.SalesCount += int64(quantity)

	return nil
}

func (r *fakeProductRepo) IncrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}

	p.StockQuantity += int64(quantity)
	p.SalesCount -= int64(quantity)

	return nil
}

func (r *fakeProductRepo) stock(id uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.products[id].StockQuantity
}

type fakePromoRepo struct {
	mu          sync.Mutex
	promos      map[string]*models.PromoCode
	redemptions map[string]models.PromoRedemption
}

func newFakePromoRepo(promos ...*models.PromoCode) *fakePromoRepo {
	repo := &fakePromoRepo{promos: make(map[string]*models.PromoCode), redemptions: make(map[string]models.PromoRedemption)}
	for _, p := range promos {
		repo.promos[p.Code] = p
	}

	return repo
}

func redemptionKey(code string, userID uuid.UUID) string {
	return code + "/" + userID.String()
}

func (r *fakePromoRepo) GetPromoByCode(_ context.Context, code string) (*models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promos[code]
	if !ok {
		return nil, repository.ErrNotFound
	}

	promo := *p

	return &promo, nil
}

func (r *fakePromoRepo) HasRedeemed(_ context.Context, code string, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.redemptions[redemptionKey(code, userID)]

	return ok, nil
}

func (r *fakePromoRepo) Redeem(_ context.Context, redemption *models.PromoRedemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promos[redemption.PromoCode]
	if !ok || p.Exhausted() {
		return repository.ErrPromoExhausted
	}

	key := redemptionKey(redemption.PromoCode, redemption.UserID)
	if _, ok := r.redemptions[key]; ok {
		return repository.ErrPromoAlreadyRedeemed
	}

	p.UsedCount++
	r.redemptions[key] = *redemption

	return nil
}

func (r *fakePromoRepo) ReleaseRedemption(_ context.Context, code string, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := redemptionKey(code, userID)
	if _, ok := r.redemptions[key]; !ok {
		return nil
	}

	delete(r.redemptions, key)
	r.promos[code].UsedCount--

	return nil
}

func (r *fakePromoRepo) usedCount(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.promos[code].UsedCount
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
	// createErr, when set, is returned by CreateOrder instead of storing.
	createErr error
	// collisions makes the next n inserts hit an order number clash.
	collisions int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	order := *o
	order.Items = append([]models.OrderItem(nil), o.Items...)

	return &order
}

func (r *fakeOrderRepo) CreateOrder(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}

	if r.collisions > 0 {
		r.collisions--

		return repository.ErrDuplicateOrderNumber
	}

	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicateOrderNumber
		}

		if order.IdempotencyKey != "" && existing.CustomerID == order.CustomerID && existing.IdempotencyKey == order.IdempotencyKey {
			return repository.ErrDuplicateIdempotency
		}
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(order)

	return nil
}

func (r *fakeOrderRepo) find(match func(*models.Order) bool) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if match(o) {
			return cloneOrder(o), nil
		}
	}

	return nil, repository.ErrNotFound
}

func (r *fakeOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return r.find(func(o *models.Order) bool { return o.ID == id })
}

func (r *fakeOrderRepo) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	return r.find(func(o *models.Order) bool { return o.OrderNumber == orderNumber })
}

func (r *fakeOrderRepo) GetOrderByPaymentIntent(_ context.Context, intentID string) (*models.Order, error) {
	if intentID == "" {
		return nil, repository.ErrNotFound
	}

	return r.find(func(o *models.Order) bool { return o.PaymentIntentID == intentID })
}

func (r *fakeOrderRepo) GetOrderByIdempotencyKey(_ context.Context, customerID uuid.UUID, key string) (*models.Order, error) {
	return r.find(func(o *models.Order) bool { return o.CustomerID == customerID && o.IdempotencyKey == key })
}

func (r *fakeOrderRepo) ListOrdersByCustomer(_ context.Context, customerID uuid.UUID, page, size int) ([]models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var orders []models.Order

	for _, o := range r.orders {
		if o.CustomerID == customerID {
			orders = append(orders, *cloneOrder(o))
		}
	}

	total := len(orders)
	start := min((page-1)*size, total)
	end := min(start+size, total)

	return orders[start:end], total, nil
}

func (r *fakeOrderRepo) SetPaymentIntent(_ context.Context, id uuid.UUID, intentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return repository.ErrNotFound
	}

	if o.PaymentIntentID != "" && o.PaymentIntentID != intentID {
		return repository.ErrIntentAlreadySet
	}

	o.PaymentIntentID = intentID

	return nil
}

func (r *fakeOrderRepo) TransitionStatus(_ context.Context, id uuid.UUID, from []models.OrderStatus, to models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return repository.ErrNotFound
	}

	for _, status := range from {
		if o.Status == status {
			o.Status = to
			o.UpdatedAt = time.Now()

			return nil
		}
	}

	return repository.ErrStatusConflict
}

func (r *fakeOrderRepo) FulfillOrder(_ context.Context, id uuid.UUID, trackingNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return repository.ErrNotFound
	}

	if o.Status != models.OrderStatusPaid {
		return repository.ErrStatusConflict
	}

	o.Status = models.OrderStatusFulfilled
	o.TrackingNumber = trackingNumber

	return nil
}

func (r *fakeOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.orders)
}

func (r *fakeOrderRepo) status(id uuid.UUID) models.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.orders[id].Status
}

type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: make(map[string]bool)}
}

func (l *fakeLedger) MarkProcessed(_ context.Context, event *models.GatewayEvent) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[event.Key] {
		return false, nil
	}

	l.seen[event.Key] = true

	return true, nil
}

func (l *fakeLedger) Unmark(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.seen, key)

	return nil
}

type fakeLocks struct {
	mu   sync.Mutex
	held map[string]string
	next int
	err  error
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]string)}
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return "", false, l.err
	}

	if _, ok := l.held[key]; ok {
		return "", false, nil
	}

	l.next++
	token := strconv.Itoa(l.next)
	l.held[key] = token

	return token, true, nil
}

func (l *fakeLocks) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] == token {
		delete(l.held, key)
	}

	return nil
}

func (l *fakeLocks) hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.held[key] = "someone-else"
}

func (l *fakeLocks) free(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
}

type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*models.Cart
	// afterRead runs once, outside the lock, right after the next read.
	afterRead func()
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[uuid.UUID]*models.Cart)}
}

func (r *fakeCartRepo) GetCartByCustomerID(_ context.Context, customerID uuid.UUID) (*models.Cart, error) {
	r.mu.Lock()
	hook := r.afterRead
	r.afterRead = nil

	var cart models.Cart

	c, ok := r.carts[customerID]
	if ok {
		cart = *c
		cart.Items = append([]models.CartItem(nil), c.Items...)
	}
	r.mu.Unlock()

	if hook != nil {
		hook()
	}

	if !ok {
		return nil, repository.ErrNotFound
	}

	return &cart, nil
}

func (r *fakeCartRepo) UpsertCart(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *cart
	stored.Items = append([]models.CartItem(nil), cart.Items...)
	r.carts[cart.UserID] = &stored

	return nil
}

func (r *fakeCartRepo) ClearCart(_ context.Context, customerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, customerID)

	return nil
}

// recordingDispatcher keeps every emitted event in order.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Emit(_ context.Context, event events.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, event)

	return true
}

func (d *recordingDispatcher) ofType(t events.Type) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []events.Event

	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}

	return out
}

func newProduct(name string, price string, stock int64, category string) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		SKU:           "SKU-" + name,
		Status:        models.ProductStatusActive,
		Category:      &models.Category{ID: uuid.New(), Name: category},
	}
}
