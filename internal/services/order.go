package service

import (
	"context"
	stdErrors "errors"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/auth"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const orderNumberAttempts = 3

type OrderService interface {
	// CreateOrder turns the requested lines into a pending order. A request
	// repeating an idempotency key returns the original order untouched.
	CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResult, error)
	GetOrderByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) (*models.OrderHistoryResponse, error)
	FulfillOrder(ctx context.Context, actor models.Actor, id uuid.UUID, trackingNumber string) (*models.Order, error)
}

type OrderOptions struct {
	Currency string
	Pricing  config.PricingValues
	LockTTL  time.Duration
}

type orderService struct {
	orders     repository.OrderRepository
	catalog    CatalogService
	promos     PromoService
	carts      CartService
	locks      repository.LockRepository
	limiter    repository.RateLimitRepository
	authorizer auth.Authorizer
	events     events.Dispatcher
	opts       OrderOptions
	policy     *bluemonday.Policy
	newNumber  func() string
}

func NewOrderService(
	orders repository.OrderRepository,
	catalog CatalogService,
	promos PromoService,
	carts CartService,
	locks repository.LockRepository,
	limiter repository.RateLimitRepository,
	authorizer auth.Authorizer,
	dispatcher events.Dispatcher,
	opts OrderOptions,
) OrderService {
	if dispatcher == nil {
		dispatcher = events.Discard{}
	}

	opts.Currency = strings.ToLower(opts.Currency)

	return &orderService{
		orders:     orders,
		catalog:    catalog,
		promos:     promos,
		carts:      carts,
		locks:      locks,
		limiter:    limiter,
		authorizer: authorizer,
		events:     dispatcher,
		opts:       opts,
		policy:     bluemonday.StrictPolicy(),
		newNumber:  NewOrderNumber,
	}
}

// NewOrderNumber returns a sortable, unique order number.
func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

// checkoutLine is one merged request line priced from the live catalog.
type checkoutLine struct {
	req     models.OrderItemRequest
	product *models.Product
	total   decimal.Decimal
}

func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (result *models.CreateOrderResult, err error) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("customerId", userID.String()))

	defer func() {
		if err != nil {
			code := errors.ErrCodeInternal
			if appErr, ok := errors.IsAppError(err); ok {
				code = appErr.Code
			}

			metrics.CheckoutFailed(code)
		}
	}()

	if replay, err := s.findReplay(ctx, userID, req.IdempotencyKey); replay != nil || err != nil {
		return replay, err
	}

	if s.limiter != nil {
		allowed, _, retryAfter, err := s.limiter.CheckRateLimit(ctx, repository.ScopeCheckout, userID.String())
		if err != nil {
			logger.Warn("Checkout rate limit check failed", slog.String("error", err.Error()))
		} else if !allowed {
			return nil, errors.TooManyRequestsError("Too many checkout attempts").WithDetail(retryAfterDetail(retryAfter))
		}
	}

	lockKey := repository.CheckoutLockKey(userID)

	token, ok, err := s.locks.Acquire(ctx, lockKey, s.opts.LockTTL)
	if err != nil {
		return nil, errors.InternalError("Failed to lock checkout").WithError(err)
	}

	if !ok {
		return nil, errors.ConflictError("A checkout is already in progress")
	}

	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			logger.Warn("Failed to release checkout lock", slog.String("error", err.Error()))
		}
	}()

	// the previous holder of the lock may have just finished the same request
	if replay, err := s.findReplay(ctx, userID, req.IdempotencyKey); replay != nil || err != nil {
		return replay, err
	}

	lines, err := s.priceLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      userID,
		Currency:        s.opts.Currency,
		Status:          models.OrderStatusPending,
		ShippingAddress: s.sanitizeAddress(req.ShippingAddress),
		BillingAddress:  s.sanitizeAddress(req.BillingAddress),
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  req.IdempotencyKey,
	}

	promoLines := make([]models.PromoLine, 0, len(lines))
	stockLines := make([]StockLine, 0, len(lines))
	subtotal := decimal.Zero
	now := time.Now()

	for _, line := range lines {
		subtotal = subtotal.Add(line.total)

		order.Items = append(order.Items, models.OrderItem{
			ID:            uuid.New(),
			OrderID:       order.ID,
			ProductID:     line.product.ID,
			ProductName:   line.product.Name,
			ImageURL:      line.product.ImageURL,
			Category:      line.product.CategoryName(),
			SelectedSize:  line.req.SelectedSize,
			SelectedColor: line.req.SelectedColor,
			Quantity:      line.req.Quantity,
			UnitPrice:     line.product.Price,
			LineTotal:     line.total,
			CreatedAt:     now,
		})

		promoLines = append(promoLines, models.PromoLine{ProductID: line.product.ID, Category: line.product.CategoryName(), LineTotal: line.total})
		stockLines = append(stockLines, StockLine{ProductID: line.product.ID, ProductName: line.product.Name, Quantity: line.req.Quantity})
	}

	discount := decimal.Zero

	if code := models.NormalizePromoCode(req.PromoCode); code != "" {
		evaluation, err := s.promos.Evaluate(ctx, code, userID, promoLines, order.Currency)
		if err != nil {
			return nil, err
		}

		discount = evaluation.DiscountAmount
		order.PromoCode = evaluation.Code
	}

	s.applyPricing(order, subtotal, discount)

	order.OrderNumber = s.newNumber()

	if err := s.catalog.ReserveStock(ctx, stockLines); err != nil {
		return nil, err
	}

	if order.PromoCode != "" {
		if err := s.promos.Redeem(ctx, order.PromoCode, userID, order.OrderNumber); err != nil {
			s.catalog.ReleaseStock(ctx, stockLines)

			return nil, err
		}
	}

	if err := s.insertOrder(ctx, order); err != nil {
		if order.PromoCode != "" {
			if releaseErr := s.promos.Release(context.WithoutCancel(ctx), order.PromoCode, userID); releaseErr != nil {
				logger.Error("Failed to release promo redemption", slog.String("promoCode", order.PromoCode), slog.String("error", releaseErr.Error()))
			}
		}

		s.catalog.ReleaseStock(ctx, stockLines)

		if stdErrors.Is(err, repository.ErrDuplicateIdempotency) {
			replay, findErr := s.findReplay(ctx, userID, req.IdempotencyKey)
			if replay == nil && findErr == nil {
				return nil, errors.ConflictError("A checkout with this idempotency key is in progress")
			}

			return replay, findErr
		}

		return nil, err
	}

	if err := s.carts.ClearCart(ctx, userID); err != nil {
		logger.Warn("Failed to clear cart after checkout", slog.String("orderNumber", order.OrderNumber), slog.String("error", err.Error()))
	}

	s.events.Emit(ctx, events.NewOrderEvent(events.OrderCreated, order))
	metrics.OrderCreated(false)

	logger.Info("Order created",
		slog.String("orderNumber", order.OrderNumber),
		slog.String("total", order.Total.StringFixed(2)),
		slog.Int("lines", len(order.Items)))

	return &models.CreateOrderResult{Order: order}, nil
}

func (s *orderService) findReplay(ctx context.Context, userID uuid.UUID, key string) (*models.CreateOrderResult, error) {
	if key == "" {
		return nil, nil
	}

	existing, err := s.orders.GetOrderByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}

		return nil, errors.DatabaseError("Failed to check idempotency key").WithError(err)
	}

	metrics.OrderCreated(true)

	return &models.CreateOrderResult{Order: existing, Replayed: true}, nil
}

// priceLines merges duplicate lines and prices each against the live catalog.
func (s *orderService) priceLines(ctx context.Context, items []models.OrderItemRequest) ([]checkoutLine, error) {
	merged := make([]models.OrderItemRequest, 0, len(items))

	for _, item := range items {
		found := false

		for i := range merged {
			if merged[i].ProductID == item.ProductID && merged[i].Variant() == item.Variant() {
				merged[i].Quantity += item.Quantity
				found = true

				break
			}
		}

		if !found {
			merged = append(merged, item)
		}
	}

	requested := make(map[uuid.UUID]int64, len(merged))
	lines := make([]checkoutLine, 0, len(merged))

	for _, item := range merged {
		if item.Quantity < 1 {
			return nil, errors.ValidationError("Quantity must be at least 1")
		}

		product, err := s.catalog.GetActiveProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		requested[product.ID] += int64(item.Quantity)
		if requested[product.ID] > product.StockQuantity {
			return nil, errors.InsufficientStockError(product.Name).WithDetail(product.ID.String())
		}

		lines = append(lines, checkoutLine{
			req:     item,
			product: product,
			total:   product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	return lines, nil
}

// applyPricing fills in the money fields. Shipping is waived once the
// discounted subtotal reaches the threshold; a zero threshold never waives it.
func (s *orderService) applyPricing(order *models.Order, subtotal, discount decimal.Decimal) {
	pricing := s.opts.Pricing
	afterDiscount := subtotal.Sub(discount)

	shipping := pricing.ShippingFlat
	if pricing.FreeShippingThreshold.IsPositive() && afterDiscount.GreaterThanOrEqual(pricing.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := afterDiscount.Mul(pricing.TaxRate).Round(2)

	order.Subtotal = subtotal
	order.DiscountAmount = discount
	order.ShippingCost = shipping
	order.TaxAmount = tax
	order.Total = afterDiscount.Add(shipping).Add(tax)
}

// insertOrder retries on order number collisions. The promo redemption, if
// any, is re-pointed at each new number.
func (s *orderService) insertOrder(ctx context.Context, order *models.Order) error {
	for attempt := 1; ; attempt++ {
		err := s.orders.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}

		if stdErrors.Is(err, repository.ErrDuplicateIdempotency) {
			return err
		}

		if !stdErrors.Is(err, repository.ErrDuplicateOrderNumber) || attempt == orderNumberAttempts {
			return errors.DatabaseError("Failed to create order").WithError(err)
		}

		order.OrderNumber = s.newNumber()

		if order.PromoCode != "" {
			if err := s.promos.Release(ctx, order.PromoCode, order.CustomerID); err != nil {
				return err
			}

			if err := s.promos.Redeem(ctx, order.PromoCode, order.CustomerID, order.OrderNumber); err != nil {
				return err
			}
		}
	}
}

func (s *orderService) sanitizeAddress(a models.Address) models.Address {
	clean := func(v string) string {
		return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
	}

	return models.Address{
		FullName:   clean(a.FullName),
		Street:     clean(a.Street),
		City:       clean(a.City),
		State:      clean(a.State),
		PostalCode: clean(a.PostalCode),
		Country:    strings.ToUpper(clean(a.Country)),
		Phone:      clean(a.Phone),
	}
}

func (s *orderService) GetOrderByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if !auth.CanAccessOrder(s.authorizer, actor, order.CustomerID) {
		return nil, errors.AuthorizationError("You are not allowed to view this order")
	}

	return order, nil
}

func (s *orderService) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) (*models.OrderHistoryResponse, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 100 {
		size = 10
	}

	orders, total, err := s.orders.ListOrdersByCustomer(ctx, customerID, page, size)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	if orders == nil {
		orders = []models.Order{}
	}

	return &models.OrderHistoryResponse{Items: orders, Total: total, Page: page, PageSize: size}, nil
}

func (s *orderService) FulfillOrder(ctx context.Context, actor models.Actor, id uuid.UUID, trackingNumber string) (*models.Order, error) {
	if !s.authorizer.HasPermission(actor.Role, auth.ActionFulfillOrder) {
		return nil, errors.AuthorizationError("You are not allowed to fulfil orders")
	}

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if !order.Status.CanTransitionTo(models.OrderStatusFulfilled) {
		return nil, errors.InvalidTransitionError(string(order.Status), string(models.OrderStatusFulfilled))
	}

	if err := s.orders.FulfillOrder(ctx, id, trackingNumber); err != nil {
		if stdErrors.Is(err, repository.ErrStatusConflict) {
			return nil, errors.InvalidTransitionError(string(order.Status), string(models.OrderStatusFulfilled))
		}

		return nil, errors.DatabaseError("Failed to fulfil order").WithError(err)
	}

	order.Status = models.OrderStatusFulfilled
	order.TrackingNumber = trackingNumber
	order.UpdatedAt = time.Now()

	s.events.Emit(ctx, events.NewOrderEvent(events.OrderFulfilled, order).
		WithActor(actor.UserID).
		WithMetadata("tracking_number", trackingNumber))

	return order, nil
}
