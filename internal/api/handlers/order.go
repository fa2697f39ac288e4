package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// IdempotencyKeyHeader may carry the idempotency key instead of the request body.
const IdempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: validator.New()}
}

// CreateOrder godoc
//	@Summary		Create a new order
//	@Description	Prices the requested lines server side, reserves stock and records a pending order. Repeating an idempotency key returns the original order with status 200.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			order			body		models.CreateOrderRequest	true	"Order lines, addresses and optional promo code"
//	@Param			Idempotency-Key	header		string						false	"Idempotency key, used when the body carries none"
//	@Success		201				{object}	models.CreateOrderResult	"Order created"
//	@Success		200				{object}	models.CreateOrderResult	"Order replayed for a repeated idempotency key"
//	@Failure		400				{object}	response.ErrorResponse		"Validation error or promo code rejected"
//	@Failure		401				{object}	response.ErrorResponse		"Authentication required"
//	@Failure		409				{object}	response.ErrorResponse		"Insufficient stock or concurrent checkout"
//	@Failure		429				{object}	response.ErrorResponse		"Too many orders"
//	@Failure		500				{object}	response.ErrorResponse		"Internal server error"
//	@Security		BearerAuth
//	@Router			/orders [post]
func (h *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}
		logger = logger.With(slog.String("userID", actor.UserID.String()))

		var req models.CreateOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create order input")
			return
		}

		if req.IdempotencyKey == "" {
			req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)
		}

		result, err := h.orderService.CreateOrder(r.Context(), actor.UserID, &req)
		if err != nil {
			logger.Warn("Failed to create order", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		if result.Replayed {
			logger.Info("Order replayed for idempotency key", slog.String("orderNumber", result.Order.OrderNumber))
			response.Success(w, http.StatusOK, result)
			return
		}

		logger.Info("Order created successfully",
			slog.String("orderId", result.Order.ID.String()),
			slog.String("orderNumber", result.Order.OrderNumber))
		response.Success(w, http.StatusCreated, result)
	}
}

// GetOrder godoc
//	@Summary		Get an order by ID
//	@Description	Customers see their own orders; support and admin staff see any order.
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path		string					true	"Order ID (UUID)"	Format(uuid)
//	@Success		200	{object}	models.Order			"Successfully retrieved order"
//	@Failure		400	{object}	response.ErrorResponse	"Invalid order ID format"
//	@Failure		401	{object}	response.ErrorResponse	"Authentication required"
//	@Failure		403	{object}	response.ErrorResponse	"Forbidden - User does not own this order"
//	@Failure		404	{object}	response.ErrorResponse	"Order not found"
//	@Failure		500	{object}	response.ErrorResponse	"Internal server error"
//	@Security		BearerAuth
//	@Router			/orders/{id} [get]
func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		logger = logger.With(slog.String("userID", actor.UserID.String()))

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		order, err := h.orderService.GetOrderByID(r.Context(), actor, id)
		if err != nil {
			logger.Warn("Failed to get order", slog.String("orderId", id.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

// ListOrders godoc
//	@Summary		List user's orders with pagination
//	@Description	Retrieves a paginated list of orders placed by the authenticated user, newest first.
//	@Tags			Orders
//	@Produce		json
//	@Param			page		query		int							false	"Page number for pagination (default: 1)"			minimum(1)
//	@Param			pageSize	query		int							false	"Number of items per page (default: 10, max: 100)"	minimum(1)	maximum(100)
//	@Success		200			{object}	models.OrderHistoryResponse	"Successfully retrieved list of orders"
//	@Failure		401			{object}	response.ErrorResponse		"Authentication required"
//	@Failure		500			{object}	response.ErrorResponse		"Internal server error"
//	@Security		BearerAuth
//	@Router			/orders [get]
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		page, size := utils.ParsePagination(r)

		orders, err := h.orderService.ListOrdersByCustomer(r.Context(), actor.UserID, page, size)
		if err != nil {
			logger.Error("Failed to list orders",
				slog.String("userID", actor.UserID.String()),
				slog.Int("page", page),
				slog.Int("pageSize", size),
				slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, orders)
	}
}

// FulfillOrder godoc
//	@Summary		Mark a paid order as shipped
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string						true	"Order ID (UUID)"	Format(uuid)
//	@Param			fulfillment	body		models.FulfillOrderRequest	true	"Shipment tracking number"
//	@Success		200			{object}	models.Order				"Order fulfilled"
//	@Failure		400			{object}	response.ErrorResponse		"Invalid input"
//	@Failure		403			{object}	response.ErrorResponse		"Admin role required"
//	@Failure		404			{object}	response.ErrorResponse		"Order not found"
//	@Failure		409			{object}	response.ErrorResponse		"Order is not paid"
//	@Security		BearerAuth
//	@Router			/admin/orders/{id}/fulfill [post]
func (h *OrderHandler) FulfillOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.FulfillOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		order, err := h.orderService.FulfillOrder(r.Context(), actor, id, req.TrackingNumber)
		if err != nil {
			logger.Warn("Failed to fulfill order", slog.String("orderId", id.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order fulfilled", slog.String("orderId", id.String()), slog.String("trackingNumber", req.TrackingNumber))
		response.Success(w, http.StatusOK, order)
	}
}
