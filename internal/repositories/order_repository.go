package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type OrderRepository interface {
	// CreateOrder inserts the order and its items in one transaction.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]models.Order, int, error)
	// SetPaymentIntent links an intent once; a second link yields ErrIntentAlreadySet.
	SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error
	// TransitionStatus moves the order to `to` only while its status is one of
	// `from`. ErrStatusConflict means no row matched.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []models.OrderStatus, to models.OrderStatus) error
	FulfillOrder(ctx context.Context, id uuid.UUID, trackingNumber string) error
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

const orderColumns = `id, order_number, customer_id, subtotal, discount_amount, shipping_cost, tax_amount, total, currency, status,
		shipping_address, billing_address, payment_method, payment_intent_id, promo_code, tracking_number,
		COALESCE(idempotency_key, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order    models.Order
		shipping []byte
		billing  []byte
	)

	err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerID, &order.Subtotal, &order.DiscountAmount, &order.ShippingCost,
		&order.TaxAmount, &order.Total, &order.Currency, &order.Status, &shipping, &billing, &order.PaymentMethod,
		&order.PaymentIntentID, &order.PromoCode, &order.TrackingNumber, &order.IdempotencyKey, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(shipping, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}

	if err := json.Unmarshal(billing, &order.BillingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal billing address: %w", err)
	}

	return &order, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) (err error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	billing, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal billing address: %w", err)
	}

	var idempotencyKey sql.NullString
	if order.IdempotencyKey != "" {
		idempotencyKey = sql.NullString{String: order.IdempotencyKey, Valid: true}
	}

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO orders (id, order_number, customer_id, subtotal, discount_amount, shipping_cost, tax_amount, total, currency, status,
			shipping_address, billing_address, payment_method, payment_intent_id, promo_code, tracking_number, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, '', $14, '', $15, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(dbCtx, query, order.ID, order.OrderNumber, order.CustomerID, order.Subtotal, order.DiscountAmount,
		order.ShippingCost, order.TaxAmount, order.Total, order.Currency, order.Status, shipping, billing, order.PaymentMethod,
		order.PromoCode, idempotencyKey).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "orders_order_number_key"):
			return ErrDuplicateOrderNumber
		case isUniqueViolation(err, "orders_idempotency_uidx"):
			return ErrDuplicateIdempotency
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_name, image_url, category, selected_size, selected_color,
			quantity, unit_price, line_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		_, err = tx.ExecContext(dbCtx, itemQuery, item.ID, order.ID, item.ProductID, item.ProductName, item.ImageURL, item.Category,
			item.SelectedSize, item.SelectedColor, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return fmt.Errorf("failed to insert an order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

func (r *orderRepository) getOrderWhere(ctx context.Context, where string, args ...any) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to get the order: %w", notFoundOr(err))
	}

	if order.Items, err = r.loadItems(dbCtx, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	query := `
		SELECT id, product_id, product_name, image_url, category, selected_size, selected_color, quantity, unit_price, line_total, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.DB.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}

	for rows.Next() {
		var item models.OrderItem

		err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.ImageURL, &item.Category, &item.SelectedSize,
			&item.SelectedColor, &item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item.OrderID = orderID
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.getOrderWhere(ctx, "id = $1", id)
}

func (r *orderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.getOrderWhere(ctx, "order_number = $1", orderNumber)
}

func (r *orderRepository) GetOrderByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	if intentID == "" {
		return nil, ErrNotFound
	}

	return r.getOrderWhere(ctx, "payment_intent_id = $1", intentID)
}

func (r *orderRepository) GetOrderByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (*models.Order, error) {
	return r.getOrderWhere(ctx, "customer_id = $1 AND idempotency_key = $2", customerID, key)
}

func (r *orderRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int
	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * size

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, customerID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan the orders: %w", err)
		}
		orders = append(orders, *order)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		if orders[i].Items, err = r.loadItems(dbCtx, orders[i].ID); err != nil {
			return nil, 0, err
		}
	}

	return orders, total, nil
}

func (r *orderRepository) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET payment_intent_id = $1, updated_at = NOW()
		WHERE id = $2 AND payment_intent_id = ''
	`

	result, err := r.DB.ExecContext(dbCtx, query, intentID, id)
	if err != nil {
		return fmt.Errorf("failed to set payment intent: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return ErrIntentAlreadySet
	}

	return nil
}

func (r *orderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []models.OrderStatus, to models.OrderStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	sources := make([]string, len(from))
	for i, status := range from {
		sources[i] = string(status)
	}

	query := `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`

	result, err := r.DB.ExecContext(dbCtx, query, to, id, pq.Array(sources))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return ErrStatusConflict
	}

	return nil
}

func (r *orderRepository) FulfillOrder(ctx context.Context, id uuid.UUID, trackingNumber string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET status = $1, tracking_number = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.DB.ExecContext(dbCtx, query, models.OrderStatusFulfilled, trackingNumber, id, models.OrderStatusPaid)
	if err != nil {
		return fmt.Errorf("failed to fulfill order: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return ErrStatusConflict
	}

	return nil
}
