package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/auth"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type PaymentService interface {
	// CreateIntent opens, or reuses, the gateway intent that pays for an order.
	CreateIntent(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.PaymentIntentResponse, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*models.ReconcileResult, error)
	HandlePaywayWebhook(ctx context.Context, payload []byte, signature string) (*models.ReconcileResult, error)
	// ReconcileWebhook applies a gateway outcome to its order at most once.
	ReconcileWebhook(ctx context.Context, event *models.GatewayEvent) (*models.ReconcileResult, error)
	// ConfirmPayment asks the gateway for the intent's status and reconciles it.
	ConfirmPayment(ctx context.Context, actor models.Actor, intentID string) (*models.ReconcileResult, error)
	GetOrderByIntent(ctx context.Context, actor models.Actor, intentID string) (*models.Order, error)
	CancelOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error)
	RefundOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error)
}

type PaymentOptions struct {
	GatewayTimeout      time.Duration
	PaywayWebhookSecret string
}

type paymentService struct {
	orders     repository.OrderRepository
	ledger     repository.PaymentEventRepository
	catalog    CatalogService
	gateway    stripe.Client
	authorizer auth.Authorizer
	events     events.Dispatcher
	validator  *validator.Validate
	opts       PaymentOptions
}

func NewPaymentService(
	orders repository.OrderRepository,
	ledger repository.PaymentEventRepository,
	catalog CatalogService,
	gateway stripe.Client,
	authorizer auth.Authorizer,
	dispatcher events.Dispatcher,
	opts PaymentOptions,
) PaymentService {
	if dispatcher == nil {
		dispatcher = events.Discard{}
	}

	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 10 * time.Second
	}

	return &paymentService{
		orders:     orders,
		ledger:     ledger,
		catalog:    catalog,
		gateway:    gateway,
		authorizer: authorizer,
		events:     dispatcher,
		validator:  validator.New(),
		opts:       opts,
	}
}

// CreateIntent implements PaymentService.
func (s *paymentService) CreateIntent(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.PaymentIntentResponse, error) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("orderId", orderID.String()))

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != actor.UserID && !s.authorizer.HasPermission(actor.Role, auth.ActionPayAnyOrder) {
		return nil, errors.AuthorizationError("You are not allowed to pay for this order")
	}

	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusProcessing {
		return nil, errors.InvalidTransitionError(string(order.Status), string(models.OrderStatusProcessing))
	}

	if order.PaymentIntentID != "" {
		return s.existingIntent(ctx, order)
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	intent, err := s.gateway.CreatePaymentIntent(gctx, &stripe.IntentParams{
		Amount:         stripe.ToMinorUnits(order.Total),
		Currency:       order.Currency,
		Description:    "Order " + order.OrderNumber,
		IdempotencyKey: "order-" + order.ID.String(),
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"customer_id":  order.CustomerID.String(),
		},
	})
	if err != nil {
		return nil, gatewayError("Failed to create payment intent", err)
	}

	if err := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		if !stdErrors.Is(err, repository.ErrIntentAlreadySet) {
			return nil, errors.DatabaseError("Failed to link payment intent").WithError(err)
		}

		// a concurrent request linked first; serve whatever it stored
		current, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}

		if current.PaymentIntentID != intent.ID {
			return s.existingIntent(ctx, current)
		}
	}

	if err := s.orders.TransitionStatus(ctx, order.ID, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusProcessing); err != nil {
		if !stdErrors.Is(err, repository.ErrStatusConflict) {
			return nil, errors.DatabaseError("Failed to update order status").WithError(err)
		}
	} else {
		order.Status = models.OrderStatusProcessing
	}

	logger.Info("Payment intent created", slog.String("intentId", intent.ID), slog.String("orderNumber", order.OrderNumber))

	return &models.PaymentIntentResponse{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          order.Total,
		Currency:        order.Currency,
		Status:          order.Status,
	}, nil
}

func (s *paymentService) existingIntent(ctx context.Context, order *models.Order) (*models.PaymentIntentResponse, error) {
	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	details, err := s.gateway.GetTransactionDetails(gctx, order.PaymentIntentID)
	if err != nil {
		return nil, gatewayError("Failed to fetch payment intent", err)
	}

	return &models.PaymentIntentResponse{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		PaymentIntentID: details.IntentID,
		ClientSecret:    details.ClientSecret,
		Amount:          order.Total,
		Currency:        order.Currency,
		Status:          order.Status,
		Reused:          true,
	}, nil
}

// HandleStripeWebhook implements PaymentService.
func (s *paymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*models.ReconcileResult, error) {
	event, err := s.gateway.VerifyWebhookSignature(payload, signature)
	if err != nil {
		return nil, errors.BadRequestError("Webhook signature verification failed").WithError(err)
	}

	gatewayEvent, ok, err := stripe.ParseEvent(event)
	if err != nil {
		return nil, errors.BadRequestError("Malformed webhook event").WithError(err)
	}

	if !ok {
		middleware.LoggerFromContext(ctx).Debug("Ignoring webhook event", slog.String("type", string(event.Type)))

		return &models.ReconcileResult{Outcome: models.ReconcileIgnored}, nil
	}

	return s.ReconcileWebhook(ctx, gatewayEvent)
}

// HandlePaywayWebhook implements PaymentService. The signature header is the
// hex HMAC-SHA256 of the raw body under the shared secret.
func (s *paymentService) HandlePaywayWebhook(ctx context.Context, payload []byte, signature string) (*models.ReconcileResult, error) {
	if s.opts.PaywayWebhookSecret == "" {
		return nil, errors.UnauthorizedError("Webhook secret not configured")
	}

	if !VerifyHMAC(payload, signature, s.opts.PaywayWebhookSecret) {
		return nil, errors.UnauthorizedError("Webhook signature verification failed")
	}

	var req models.PaywayWebhookRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.BadRequestError("Malformed webhook payload").WithError(err)
	}

	if err := utils.ValidateStruct(s.validator, &req); err != nil {
		return nil, errors.ValidationError("Invalid webhook payload").WithError(err)
	}

	return s.ReconcileWebhook(ctx, &models.GatewayEvent{
		Key:         req.TransactionID + ":" + req.Status,
		IntentID:    req.TransactionID,
		OrderNumber: req.OrderID,
		Status:      models.GatewayStatus(req.Status),
		Source:      models.EventSourcePayway,
	})
}

// VerifyHMAC compares signature against hex(HMAC-SHA256(secret, payload)) in
// constant time.
func VerifyHMAC(payload []byte, signature, secret string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil || len(expected) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hmac.Equal(mac.Sum(nil), expected)
}

// gatewaySources lists the states a gateway outcome may move an order out of.
// Gateway cancellations never touch paid orders.
func gatewaySources(target models.OrderStatus) []models.OrderStatus {
	if target == models.OrderStatusRefunded {
		return []models.OrderStatus{models.OrderStatusPaid}
	}

	return []models.OrderStatus{models.OrderStatusPending, models.OrderStatusProcessing}
}

// ReconcileWebhook implements PaymentService.
func (s *paymentService) ReconcileWebhook(ctx context.Context, event *models.GatewayEvent) (result *models.ReconcileResult, err error) {
	logger := middleware.LoggerFromContext(ctx).With(
		slog.String("source", event.Source),
		slog.String("eventKey", event.Key),
		slog.String("intentId", event.IntentID),
		slog.String("gatewayStatus", string(event.Status)))

	defer func() {
		if result != nil {
			metrics.PaymentReconciled(event.Source, string(result.Outcome))
		}
	}()

	target, ok := event.Status.TargetStatus()
	if !ok {
		return &models.ReconcileResult{Outcome: models.ReconcileIgnored}, nil
	}

	fresh, err := s.ledger.MarkProcessed(ctx, event)
	if err != nil {
		return nil, errors.DatabaseError("Failed to record webhook event").WithError(err)
	}

	if !fresh {
		logger.Info("Duplicate gateway event acknowledged")

		return &models.ReconcileResult{Outcome: models.ReconcileDuplicate}, nil
	}

	order, err := s.orderForEvent(ctx, event)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			logger.Warn("Gateway event for unknown payment intent")

			return &models.ReconcileResult{Outcome: models.ReconcileUnknown}, nil
		}

		s.forget(ctx, event.Key)

		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if err := s.orders.TransitionStatus(ctx, order.ID, gatewaySources(target), target); err != nil {
		if stdErrors.Is(err, repository.ErrStatusConflict) {
			current := order.Status
			if latest, err := s.orders.GetOrderByID(ctx, order.ID); err == nil {
				current = latest.Status
			}

			if target == models.OrderStatusPaid && (current == models.OrderStatusFailed || current == models.OrderStatusCancelled) {
				return s.reverseLatePayment(ctx, logger, event, order, current)
			}

			logger.Warn("Gateway event does not apply to order state",
				slog.String("orderNumber", order.OrderNumber),
				slog.String("orderStatus", string(current)),
				slog.String("target", string(target)))

			return &models.ReconcileResult{Outcome: models.ReconcileIgnored, OrderID: order.ID, Status: current}, nil
		}

		s.forget(ctx, event.Key)

		return nil, errors.DatabaseError("Failed to update order status").WithError(err)
	}

	order.Status = target

	if target == models.OrderStatusFailed || target == models.OrderStatusCancelled {
		s.catalog.ReleaseStock(ctx, orderStockLines(order))
	}

	// a declined Stripe intent stays confirmable; close it with the order
	if target == models.OrderStatusFailed && event.Source != models.EventSourcePayway {
		gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
		if err := s.gateway.CancelPaymentIntent(gctx, event.IntentID); err != nil {
			logger.Warn("Failed to cancel declined payment intent", slog.String("error", err.Error()))
		}
		cancel()
	}

	if eventType, ok := events.TypeForStatus(target); ok {
		s.events.Emit(ctx, events.NewOrderEvent(eventType, order).WithMetadata("gateway_event", event.Key))
	}

	logger.Info("Order reconciled", slog.String("orderNumber", order.OrderNumber), slog.String("status", string(target)))

	return &models.ReconcileResult{Outcome: models.ReconcileApplied, OrderID: order.ID, Status: target}, nil
}

// orderForEvent finds the order by intent, falling back to the order number a
// generic gateway may send along.
func (s *paymentService) orderForEvent(ctx context.Context, event *models.GatewayEvent) (*models.Order, error) {
	order, err := s.orders.GetOrderByPaymentIntent(ctx, event.IntentID)
	if err == nil || !stdErrors.Is(err, repository.ErrNotFound) || event.OrderNumber == "" {
		return order, err
	}

	order, err = s.orders.GetOrderByNumber(ctx, event.OrderNumber)
	if err != nil {
		return nil, err
	}

	if order.PaymentIntentID != "" && order.PaymentIntentID != event.IntentID {
		return nil, repository.ErrNotFound
	}

	return order, nil
}

// reverseLatePayment refunds a payment captured after its order was closed.
// The order keeps its terminal status.
func (s *paymentService) reverseLatePayment(ctx context.Context, logger *slog.Logger, event *models.GatewayEvent, order *models.Order, current models.OrderStatus) (*models.ReconcileResult, error) {
	logger = logger.With(slog.String("orderNumber", order.OrderNumber), slog.String("orderStatus", string(current)))

	if event.Source == models.EventSourcePayway {
		logger.Error("Payment captured for a closed order, refund it manually at the gateway")

		return &models.ReconcileResult{Outcome: models.ReconcileIgnored, OrderID: order.ID, Status: current}, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	if _, err := s.gateway.RefundPayment(gctx, event.IntentID, 0); err != nil {
		s.forget(ctx, event.Key)

		return nil, gatewayError("Failed to refund payment for a closed order", err)
	}

	logger.Warn("Refunded payment captured for a closed order")

	return &models.ReconcileResult{Outcome: models.ReconcileReversed, OrderID: order.ID, Status: current}, nil
}

// forget drops a ledger entry whose side effects failed so the gateway's
// retry is applied.
func (s *paymentService) forget(ctx context.Context, key string) {
	if err := s.ledger.Unmark(context.WithoutCancel(ctx), key); err != nil {
		middleware.LoggerFromContext(ctx).Error("Failed to unmark webhook event", slog.String("eventKey", key), slog.String("error", err.Error()))
	}
}

// ConfirmPayment implements PaymentService.
func (s *paymentService) ConfirmPayment(ctx context.Context, actor models.Actor, intentID string) (*models.ReconcileResult, error) {
	order, err := s.GetOrderByIntent(ctx, actor, intentID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusProcessing {
		return &models.ReconcileResult{Outcome: models.ReconcileIgnored, OrderID: order.ID, Status: order.Status}, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	details, err := s.gateway.GetTransactionDetails(gctx, intentID)
	if err != nil {
		return nil, gatewayError("Failed to fetch payment status", err)
	}

	if _, ok := details.Status.TargetStatus(); !ok {
		return &models.ReconcileResult{Outcome: models.ReconcileIgnored, OrderID: order.ID, Status: order.Status}, nil
	}

	return s.ReconcileWebhook(ctx, &models.GatewayEvent{
		Key:      "client:" + intentID + ":" + string(details.Status),
		IntentID: intentID,
		Status:   details.Status,
		Source:   models.EventSourceClient,
	})
}

// GetOrderByIntent implements PaymentService.
func (s *paymentService) GetOrderByIntent(ctx context.Context, actor models.Actor, intentID string) (*models.Order, error) {
	order, err := s.orders.GetOrderByPaymentIntent(ctx, intentID)
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

// CancelOrder implements PaymentService. Customers may cancel unpaid orders
// once the gateway intent is void; staff holding orders:cancel_paid may cancel
// paid ones, refunding first.
func (s *paymentService) CancelOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("orderId", orderID.String()))

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != actor.UserID && !s.authorizer.HasPermission(actor.Role, auth.ActionCancelAnyOrder) {
		return nil, errors.AuthorizationError("You are not allowed to cancel this order")
	}

	var from []models.OrderStatus

	switch order.Status {
	case models.OrderStatusPending, models.OrderStatusProcessing:
		if err := s.voidIntent(ctx, order); err != nil {
			return nil, err
		}

		from = []models.OrderStatus{models.OrderStatusPending, models.OrderStatusProcessing}
	case models.OrderStatusPaid:
		if !s.authorizer.HasPermission(actor.Role, auth.ActionCancelPaid) {
			return nil, errors.InvalidTransitionError(string(order.Status), string(models.OrderStatusCancelled))
		}

		if err := s.refund(ctx, order); err != nil {
			return nil, err
		}

		from = []models.OrderStatus{models.OrderStatusPaid}
	default:
		return nil, errors.InvalidTransitionError(string(order.Status), string(models.OrderStatusCancelled))
	}

	if err := s.orders.TransitionStatus(ctx, order.ID, from, models.OrderStatusCancelled); err != nil {
		if stdErrors.Is(err, repository.ErrStatusConflict) {
			return s.settleLostCancel(ctx, order)
		}

		return nil, errors.DatabaseError("Failed to cancel order").WithError(err)
	}

	order.Status = models.OrderStatusCancelled
	order.UpdatedAt = time.Now()

	s.catalog.ReleaseStock(ctx, orderStockLines(order))

	event := events.NewOrderEvent(events.OrderCancelled, order).WithActor(actor.UserID)
	if reason != "" {
		event = event.WithMetadata("reason", reason)
	}

	s.events.Emit(ctx, event)

	logger.Info("Order cancelled", slog.String("orderNumber", order.OrderNumber), slog.String("by", actor.UserID.String()))

	return order, nil
}

// voidIntent cancels the order's intent at the gateway so it can no longer be
// charged. An intent that already captured the payment is reconciled to paid
// and the cancellation is refused.
func (s *paymentService) voidIntent(ctx context.Context, order *models.Order) error {
	if order.PaymentIntentID == "" {
		return nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	cancelErr := s.gateway.CancelPaymentIntent(gctx, order.PaymentIntentID)
	if cancelErr == nil {
		return nil
	}

	if stripe.IsUnavailable(cancelErr) {
		return gatewayError("Failed to cancel payment intent", cancelErr)
	}

	details, err := s.gateway.GetTransactionDetails(gctx, order.PaymentIntentID)
	if err != nil {
		return gatewayError("Failed to cancel payment intent", cancelErr)
	}

	switch details.Status {
	case models.GatewayStatusCancelled:
		return nil
	case models.GatewayStatusCompleted:
		if _, err := s.ReconcileWebhook(ctx, &models.GatewayEvent{
			Key:      "client:" + order.PaymentIntentID + ":" + string(details.Status),
			IntentID: order.PaymentIntentID,
			Status:   details.Status,
			Source:   models.EventSourceClient,
		}); err != nil {
			return err
		}

		return errors.ConflictError("Order has already been paid")
	}

	return gatewayError("Failed to cancel payment intent", cancelErr)
}

// settleLostCancel handles a cancellation whose guarded transition lost to a
// gateway event delivered while the gateway call was in flight.
func (s *paymentService) settleLostCancel(ctx context.Context, order *models.Order) (*models.Order, error) {
	latest, err := s.loadOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case latest.Status == models.OrderStatusCancelled:
		return latest, nil
	case latest.Status == models.OrderStatusRefunded && order.Status == models.OrderStatusPaid:
		// the refund webhook leaves stock alone
		s.catalog.ReleaseStock(ctx, orderStockLines(latest))

		middleware.LoggerFromContext(ctx).Info("Refunded order restocked on cancellation", slog.String("orderNumber", latest.OrderNumber))

		return latest, nil
	}

	return nil, errors.InvalidTransitionError(string(latest.Status), string(models.OrderStatusCancelled))
}

// RefundOrder implements PaymentService. Refunded goods are not restocked.
func (s *paymentService) RefundOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	if !s.authorizer.HasPermission(actor.Role, auth.ActionRefundOrder) {
		return nil, errors.AuthorizationError("You are not allowed to refund orders")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(models.OrderStatusRefunded) {
		return nil, errors.InvalidTransitionError(string(order.Status), string(models.OrderStatusRefunded))
	}

	if err := s.refund(ctx, order); err != nil {
		return nil, err
	}

	if err := s.orders.TransitionStatus(ctx, order.ID, []models.OrderStatus{models.OrderStatusPaid}, models.OrderStatusRefunded); err != nil {
		if stdErrors.Is(err, repository.ErrStatusConflict) {
			// the gateway's refund event may have landed first
			if latest, err := s.loadOrder(ctx, order.ID); err == nil && latest.Status == models.OrderStatusRefunded {
				return latest, nil
			}

			return nil, errors.InvalidTransitionError(string(order.Status), string(models.OrderStatusRefunded))
		}

		return nil, errors.DatabaseError("Failed to refund order").WithError(err)
	}

	order.Status = models.OrderStatusRefunded
	order.UpdatedAt = time.Now()

	event := events.NewOrderEvent(events.OrderRefunded, order).WithActor(actor.UserID)
	if reason != "" {
		event = event.WithMetadata("reason", reason)
	}

	s.events.Emit(ctx, event)

	return order, nil
}

func (s *paymentService) refund(ctx context.Context, order *models.Order) error {
	if order.PaymentIntentID == "" {
		return errors.ConflictError("Order has no payment to refund")
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	if _, err := s.gateway.RefundPayment(gctx, order.PaymentIntentID, 0); err != nil {
		return gatewayError("Failed to refund payment", err)
	}

	return nil
}

func (s *paymentService) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	return order, nil
}

func orderStockLines(order *models.Order) []StockLine {
	lines := make([]StockLine, 0, len(order.Items))

	for _, item := range order.Items {
		lines = append(lines, StockLine{ProductID: item.ProductID, ProductName: item.ProductName, Quantity: item.Quantity})
	}

	return lines
}

func gatewayError(message string, err error) *errors.AppError {
	if stripe.IsUnavailable(err) {
		return errors.GatewayUnavailableError(message).WithError(err)
	}

	return errors.GatewayError(message).WithError(err)
}
