package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

const (
	StripeSignatureHeader = "Stripe-Signature"
	PaywaySignatureHeader = "X-Webhook-Signature"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	validator      *validator.Validate
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, validator: validator.New()}
}

// CreatePaymentIntent godoc
//	@Summary		Open a payment intent for an order
//	@Description	Creates the gateway intent for a pending order, or returns the one already attached to it.
//	@Tags			Payments
//	@Produce		json
//	@Param			id	path		string						true	"Order ID (UUID)"	Format(uuid)
//	@Success		200	{object}	models.PaymentIntentResponse	"Intent and client secret"
//	@Failure		400	{object}	response.ErrorResponse		"Invalid order ID format"
//	@Failure		401	{object}	response.ErrorResponse		"Authentication required"
//	@Failure		403	{object}	response.ErrorResponse		"User does not own this order"
//	@Failure		404	{object}	response.ErrorResponse		"Order not found"
//	@Failure		409	{object}	response.ErrorResponse		"Order is not awaiting payment"
//	@Failure		502	{object}	response.ErrorResponse		"Gateway rejected the request"
//	@Failure		503	{object}	response.ErrorResponse		"Gateway unavailable"
//	@Security		BearerAuth
//	@Router			/orders/{id}/payment-intent [post]
func (h *PaymentHandler) CreatePaymentIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		orderID, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		logger = logger.With(slog.String("userID", actor.UserID.String()), slog.String("orderId", orderID.String()))

		intent, err := h.paymentService.CreateIntent(r.Context(), actor, orderID)
		if err != nil {
			logger.Error("Failed to create payment intent", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Payment intent ready",
			slog.String("paymentIntentId", intent.PaymentIntentID),
			slog.Bool("reused", intent.Reused))
		response.Success(w, http.StatusOK, intent)
	}
}

// GetOrderByIntent godoc
//	@Summary	Get the order paid by an intent
//	@Tags		Payments
//	@Produce	json
//	@Param		id	path		string					true	"Payment intent ID"
//	@Success	200	{object}	models.Order			"Order"
//	@Failure	401	{object}	response.ErrorResponse	"Authentication required"
//	@Failure	403	{object}	response.ErrorResponse	"User does not own this order"
//	@Failure	404	{object}	response.ErrorResponse	"No order for this intent"
//	@Security	BearerAuth
//	@Router		/orders/payment-intent/{id} [get]
func (h *PaymentHandler) GetOrderByIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		intentID := r.PathValue("id")
		if intentID == "" {
			response.Error(w, errors.BadRequestError("Payment intent ID is required"))
			return
		}

		order, err := h.paymentService.GetOrderByIntent(r.Context(), actor, intentID)
		if err != nil {
			logger.Warn("Failed to get order by intent", slog.String("paymentIntentId", intentID), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

// ConfirmPayment godoc
//	@Summary		Reconcile an intent with the gateway
//	@Description	Fetches the intent's current status from the gateway and applies it to the order. Safe to call repeatedly.
//	@Tags			Payments
//	@Produce		json
//	@Param			id	path		string					true	"Payment intent ID"
//	@Success		200	{object}	models.ReconcileResult	"Reconciliation outcome"
//	@Failure		401	{object}	response.ErrorResponse	"Authentication required"
//	@Failure		403	{object}	response.ErrorResponse	"User does not own this order"
//	@Failure		404	{object}	response.ErrorResponse	"No order for this intent"
//	@Failure		503	{object}	response.ErrorResponse	"Gateway unavailable"
//	@Security		BearerAuth
//	@Router			/orders/payment-intent/{id}/confirm [post]
func (h *PaymentHandler) ConfirmPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		intentID := r.PathValue("id")
		if intentID == "" {
			response.Error(w, errors.BadRequestError("Payment intent ID is required"))
			return
		}

		result, err := h.paymentService.ConfirmPayment(r.Context(), actor, intentID)
		if err != nil {
			logger.Error("Failed to confirm payment", slog.String("paymentIntentId", intentID), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Payment confirmed",
			slog.String("paymentIntentId", intentID),
			slog.String("outcome", string(result.Outcome)),
			slog.String("status", string(result.Status)))
		response.Success(w, http.StatusOK, result)
	}
}

// CancelOrder godoc
//	@Summary		Cancel an order
//	@Description	Customers may cancel their unpaid orders. Cancelling a paid order refunds it first and needs the admin role.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Order ID (UUID)"	Format(uuid)
//	@Param			reason	body		models.CancelOrderRequest	false	"Optional reason"
//	@Success		200		{object}	models.Order				"Cancelled order"
//	@Failure		401		{object}	response.ErrorResponse		"Authentication required"
//	@Failure		403		{object}	response.ErrorResponse		"Not allowed to cancel this order"
//	@Failure		404		{object}	response.ErrorResponse		"Order not found"
//	@Failure		409		{object}	response.ErrorResponse		"Order can no longer be cancelled or was already paid"
//	@Failure		503		{object}	response.ErrorResponse		"Gateway unavailable"
//	@Security		BearerAuth
//	@Router			/orders/{id}/cancel [post]
func (h *PaymentHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		orderID, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.CancelOrderRequest
		if r.ContentLength != 0 && !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		order, err := h.paymentService.CancelOrder(r.Context(), actor, orderID, req.Reason)
		if err != nil {
			logger.Warn("Failed to cancel order", slog.String("orderId", orderID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order cancelled", slog.String("orderId", orderID.String()), slog.String("userID", actor.UserID.String()))
		response.Success(w, http.StatusOK, order)
	}
}

// RefundOrder godoc
//	@Summary	Refund a paid order
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"Order ID (UUID)"	Format(uuid)
//	@Param		reason	body		models.CancelOrderRequest	false	"Optional reason"
//	@Success	200		{object}	models.Order				"Refunded order"
//	@Failure	403		{object}	response.ErrorResponse		"Admin role required"
//	@Failure	404		{object}	response.ErrorResponse		"Order not found"
//	@Failure	409		{object}	response.ErrorResponse		"Order is not paid"
//	@Failure	502		{object}	response.ErrorResponse		"Gateway rejected the refund"
//	@Security	BearerAuth
//	@Router		/admin/orders/{id}/refund [post]
func (h *PaymentHandler) RefundOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		orderID, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.CancelOrderRequest
		if r.ContentLength != 0 && !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		order, err := h.paymentService.RefundOrder(r.Context(), actor, orderID, req.Reason)
		if err != nil {
			logger.Error("Failed to refund order", slog.String("orderId", orderID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order refunded", slog.String("orderId", orderID.String()), slog.String("adminId", actor.UserID.String()))
		response.Success(w, http.StatusOK, order)
	}
}

// HandleStripeWebhook godoc
//	@Summary		Stripe webhook
//	@Description	Receives Stripe payment events. The raw body is verified against the Stripe-Signature header.
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string					true	"Stripe signature"
//	@Success		200					{object}	models.ReconcileResult	"Event handled"
//	@Failure		400					{object}	response.ErrorResponse	"Missing or invalid signature"
//	@Router			/payments/webhook [post]
func (h *PaymentHandler) HandleStripeWebhook() http.HandlerFunc {
	return h.webhook(StripeSignatureHeader, h.paymentService.HandleStripeWebhook)
}

// HandlePaywayWebhook godoc
//	@Summary		Payway webhook
//	@Description	Receives Payway transaction updates signed with a hex HMAC-SHA256 of the raw body.
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Param			X-Webhook-Signature	header		string							true	"Hex HMAC-SHA256 of the body"
//	@Param			event				body		models.PaywayWebhookRequest		true	"Transaction update"
//	@Success		200					{object}	models.ReconcileResult			"Event handled"
//	@Failure		400					{object}	response.ErrorResponse			"Invalid payload"
//	@Failure		401					{object}	response.ErrorResponse			"Invalid signature"
//	@Router			/payway/webhook [post]
func (h *PaymentHandler) HandlePaywayWebhook() http.HandlerFunc {
	return h.webhook(PaywaySignatureHeader, h.paymentService.HandlePaywayWebhook)
}

type webhookFunc func(ctx context.Context, payload []byte, signature string) (*models.ReconcileResult, error)

func (h *PaymentHandler) webhook(header string, handle webhookFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		payload, err := io.ReadAll(io.LimitReader(r.Body, utils.MaxBodyBytes+1))
		if err != nil {
			logger.Error("Error reading webhook body", slog.String("error", err.Error()))
			response.Error(w, errors.BadRequestError("Failed to read request body"))
			return
		}

		if len(payload) > utils.MaxBodyBytes {
			response.Error(w, errors.BadRequestError("Request body too large"))
			return
		}

		signature := r.Header.Get(header)
		if signature == "" {
			logger.Warn("Webhook without signature", slog.String("header", header))
			response.Error(w, errors.BadRequestError(header+" header is required"))
			return
		}

		result, err := handle(r.Context(), payload, signature)
		if err != nil {
			logger.Error("Failed to process payment webhook", slog.String("header", header), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Payment webhook processed",
			slog.String("outcome", string(result.Outcome)),
			slog.String("orderId", result.OrderID.String()),
			slog.String("status", string(result.Status)))
		response.Success(w, http.StatusOK, result)
	}
}
