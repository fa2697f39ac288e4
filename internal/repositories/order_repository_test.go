package repository_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRowColumns = []string{
	"id", "order_number", "customer_id", "subtotal", "discount_amount", "shipping_cost", "tax_amount", "total", "currency", "status",
	"shipping_address", "billing_address", "payment_method", "payment_intent_id", "promo_code", "tracking_number",
	"idempotency_key", "created_at", "updated_at",
}

var orderItemColumns = []string{
	"id", "product_id", "product_name", "image_url", "category", "selected_size", "selected_color", "quantity", "unit_price", "line_total", "created_at",
}

const addressJSON = `{"full_name":"Ada Buyer","street":"1 Main St","city":"Springfield","state":"IL","postal_code":"62701","country":"US"}`

func setupOrderRepoTest(t *testing.T) (repository.OrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return repository.NewOrderRepo(db), mock
}

func orderRow(orderID, customerID uuid.UUID, status models.OrderStatus, intentID string) *sqlmock.Rows {
	now := time.Now()

	return sqlmock.NewRows(orderRowColumns).AddRow(orderID.String(), "ORD-01HZX3", customerID.String(), "40.00", "4.00", "5.00", "3.60", "44.60",
		"usd", string(status), []byte(addressJSON), []byte(addressJSON), "card", intentID, "SAVE10", "", "key-1", now, now)
}

func itemRows(productID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(orderItemColumns).
		AddRow(uuid.NewString(), productID.String(), "Mug", "", "kitchen", "", "blue", 2, "20.00", "40.00", time.Now())
}

func testOrder() *models.Order {
	address := models.Address{FullName: "Ada Buyer", Street: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US"}

	return &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-01HZX3",
		CustomerID:      uuid.New(),
		Subtotal:        decimal.RequireFromString("40.00"),
		DiscountAmount:  decimal.RequireFromString("4.00"),
		ShippingCost:    decimal.RequireFromString("5.00"),
		TaxAmount:       decimal.RequireFromString("3.60"),
		Total:           decimal.RequireFromString("44.60"),
		Currency:        "usd",
		Status:          models.OrderStatusPending,
		ShippingAddress: address,
		BillingAddress:  address,
		PaymentMethod:   "card",
		PromoCode:       "SAVE10",
		IdempotencyKey:  "key-1",
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), ProductName: "Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(20), LineTotal: decimal.NewFromInt(40)},
		},
	}
}

func TestOrderRepository_CreateOrder(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := t.Context()

	t.Run("Order and items in one transaction", func(t *testing.T) {
		order := testOrder()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WithArgs(order.ID, order.OrderNumber, order.CustomerID, order.Subtotal, order.DiscountAmount, order.ShippingCost,
				order.TaxAmount, order.Total, "usd", models.OrderStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg(), "card", "SAVE10",
				sql.NullString{String: "key-1", Valid: true}).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(order.Items[0].ID, order.ID, order.Items[0].ProductID, "Mug", "", "", "", "", 2, order.Items[0].UnitPrice, order.Items[0].LineTotal).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateOrder(ctx, order)

		require.NoError(t, err)
		assert.Equal(t, order.ID, order.Items[0].OrderID)
		assert.WithinDuration(t, now, order.CreatedAt, time.Second)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate idempotency key", func(t *testing.T) {
		order := testOrder()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_idempotency_uidx"})
		mock.ExpectRollback()

		err := repo.CreateOrder(ctx, order)

		assert.ErrorIs(t, err, repository.ErrDuplicateIdempotency)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate order number", func(t *testing.T) {
		order := testOrder()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
		mock.ExpectRollback()

		err := repo.CreateOrder(ctx, order)

		assert.ErrorIs(t, err, repository.ErrDuplicateOrderNumber)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Item insert fails rolls back", func(t *testing.T) {
		order := testOrder()
		order.IdempotencyKey = ""
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WithArgs(order.ID, order.OrderNumber, order.CustomerID, order.Subtotal, order.DiscountAmount, order.ShippingCost,
				order.TaxAmount, order.Total, "usd", models.OrderStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg(), "card", "SAVE10",
				sql.NullString{}).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("foreign key violation"))
		mock.ExpectRollback()

		err := repo.CreateOrder(ctx, order)

		assert.ErrorContains(t, err, "failed to insert an order item")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_Lookups(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := t.Context()

	orderID := uuid.New()
	customerID := uuid.New()
	productID := uuid.New()

	t.Run("GetOrderByID loads items", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders WHERE id = \$1`).WithArgs(orderID).WillReturnRows(orderRow(orderID, customerID, models.OrderStatusPending, ""))
		mock.ExpectQuery(`FROM order_items WHERE order_id = \$1`).WithArgs(orderID).WillReturnRows(itemRows(productID))

		order, err := repo.GetOrderByID(ctx, orderID)

		require.NoError(t, err)
		assert.Equal(t, orderID, order.ID)
		assert.Equal(t, customerID, order.CustomerID)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.True(t, decimal.RequireFromString("44.60").Equal(order.Total))
		assert.Equal(t, "Springfield", order.ShippingAddress.City)
		assert.Equal(t, "key-1", order.IdempotencyKey)
		require.Len(t, order.Items, 1)
		assert.Equal(t, productID, order.Items[0].ProductID)
		assert.Equal(t, orderID, order.Items[0].OrderID)
		assert.Equal(t, "blue", order.Items[0].SelectedColor)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetOrderByPaymentIntent", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders WHERE payment_intent_id = \$1`).WithArgs("pi_123").
			WillReturnRows(orderRow(orderID, customerID, models.OrderStatusProcessing, "pi_123"))
		mock.ExpectQuery(`FROM order_items`).WithArgs(orderID).WillReturnRows(itemRows(productID))

		order, err := repo.GetOrderByPaymentIntent(ctx, "pi_123")

		require.NoError(t, err)
		assert.Equal(t, "pi_123", order.PaymentIntentID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty intent id never queries", func(t *testing.T) {
		order, err := repo.GetOrderByPaymentIntent(ctx, "")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetOrderByIdempotencyKey not found", func(t *testing.T) {
		mock.ExpectQuery(`WHERE customer_id = \$1 AND idempotency_key = \$2`).WithArgs(customerID, "key-9").WillReturnError(sql.ErrNoRows)

		order, err := repo.GetOrderByIdempotencyKey(ctx, customerID, "key-9")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetOrderByNumber bad address json", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(orderRowColumns).AddRow(orderID.String(), "ORD-X", customerID.String(), "1", "0", "0", "0", "1",
			"usd", "pending", []byte(`{`), []byte(addressJSON), "card", "", "", "", "", now, now)
		mock.ExpectQuery(`WHERE order_number = \$1`).WithArgs("ORD-X").WillReturnRows(rows)

		_, err := repo.GetOrderByNumber(ctx, "ORD-X")

		assert.ErrorContains(t, err, "failed to unmarshal shipping address")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_ListOrdersByCustomer(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := t.Context()

	customerID := uuid.New()
	orderID := uuid.New()

	t.Run("Second page", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE customer_id = \$1`).WithArgs(customerID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
		mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).WithArgs(customerID, 10, 10).
			WillReturnRows(orderRow(orderID, customerID, models.OrderStatusPaid, "pi_1"))
		mock.ExpectQuery(`FROM order_items`).WithArgs(orderID).WillReturnRows(itemRows(uuid.New()))

		orders, total, err := repo.ListOrdersByCustomer(ctx, customerID, 2, 10)

		require.NoError(t, err)
		assert.Equal(t, 11, total)
		require.Len(t, orders, 1)
		assert.Len(t, orders[0].Items, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Count fails", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT`).WithArgs(customerID).WillReturnError(errors.New("timeout"))

		orders, total, err := repo.ListOrdersByCustomer(ctx, customerID, 1, 10)

		assert.ErrorContains(t, err, "failed to count orders")
		assert.Nil(t, orders)
		assert.Zero(t, total)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_StatusWrites(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := t.Context()
	orderID := uuid.New()

	t.Run("SetPaymentIntent first link", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET payment_intent_id = \$1, updated_at = NOW\(\) WHERE id = \$2 AND payment_intent_id = ''`).
			WithArgs("pi_1", orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SetPaymentIntent(ctx, orderID, "pi_1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SetPaymentIntent already linked", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET payment_intent_id`).WithArgs("pi_2", orderID).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SetPaymentIntent(ctx, orderID, "pi_2"), repository.ErrIntentAlreadySet)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TransitionStatus guarded by sources", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$1, updated_at = NOW\(\) WHERE id = \$2 AND status = ANY\(\$3\)`).
			WithArgs(models.OrderStatusPaid, orderID, pq.Array([]string{"pending", "processing"})).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.TransitionStatus(ctx, orderID, []models.OrderStatus{models.OrderStatusPending, models.OrderStatusProcessing}, models.OrderStatusPaid)

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TransitionStatus lost race", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.TransitionStatus(ctx, orderID, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusCancelled)

		assert.ErrorIs(t, err, repository.ErrStatusConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FulfillOrder only from paid", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$1, tracking_number = \$2`).
			WithArgs(models.OrderStatusFulfilled, "1Z999", orderID, models.OrderStatusPaid).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.FulfillOrder(ctx, orderID, "1Z999"), repository.ErrStatusConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
