package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Address struct {
	FullName   string `json:"full_name" validate:"required,max=200"`
	Street     string `json:"street" validate:"required,max=300"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type OrderItem struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ImageURL      string          `json:"image_url,omitempty"`
	Category      string          `json:"category,omitempty"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingAddress  Address         `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	PromoCode       string          `json:"promo_code,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	IdempotencyKey  string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItemRequest never carries a price; pricing is server side.
type OrderItemRequest struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,min=1,max=1000"`
	SelectedSize  string    `json:"selected_size,omitempty" validate:"omitempty,max=50"`
	SelectedColor string    `json:"selected_color,omitempty" validate:"omitempty,max=50"`
}

func (r *OrderItemRequest) Variant() Variant {
	return Variant{Size: r.SelectedSize, Color: r.SelectedColor}
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress Address            `json:"shipping_address" validate:"required"`
	BillingAddress  Address            `json:"billing_address" validate:"required"`
	PaymentMethod   string             `json:"payment_method" validate:"required,oneof=card bank_transfer"`
	PromoCode       string             `json:"promo_code,omitempty" validate:"omitempty,max=50"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
}

type CreateOrderResult struct {
	Order    *Order `json:"order"`
	Replayed bool   `json:"replayed"`
}

type FulfillOrderRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type OrderHistoryResponse = Page[Order]

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}
