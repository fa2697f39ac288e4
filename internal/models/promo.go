package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type PromoCode struct {
	ID                   uuid.UUID                  `json:"id"`
	Code                 string                     `json:"code"`
	Description          string                     `json:"description,omitempty"`
	DiscountType         DiscountType               `json:"discount_type"`
	DiscountValue        decimal.Decimal            `json:"discount_value"`
	MinimumOrderAmount   map[string]decimal.Decimal `json:"minimum_order_amount,omitempty"`
	MaxUsage             *int                       `json:"max_usage,omitempty"`
	UsedCount            int                        `json:"used_count"`
	ValidFrom            time.Time                  `json:"valid_from"`
	ValidUntil           time.Time                  `json:"valid_until"`
	IsActive             bool                       `json:"is_active"`
	ApplicableCategories []string                   `json:"applicable_categories,omitempty"`
	ExcludedProducts     []uuid.UUID                `json:"excluded_products,omitempty"`
	CreatedAt            time.Time                  `json:"created_at"`
	UpdatedAt            time.Time                  `json:"updated_at"`
}

// Exhausted reports whether the usage cap has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUsage != nil && p.UsedCount >= *p.MaxUsage
}

// MinimumFor returns the minimum order amount for currency, if one is configured.
func (p *PromoCode) MinimumFor(currency string) (decimal.Decimal, bool) {
	minimum, ok := p.MinimumOrderAmount[strings.ToLower(currency)]

	return minimum, ok
}

func (p *PromoCode) Excludes(productID uuid.UUID) bool {
	for _, id := range p.ExcludedProducts {
		if id == productID {
			return true
		}
	}

	return false
}

// AppliesToAny reports whether any of the categories is covered. An empty
// category list covers everything.
func (p *PromoCode) AppliesToAny(categories []string) bool {
	if len(p.ApplicableCategories) == 0 {
		return true
	}

	for _, allowed := range p.ApplicableCategories {
		for _, c := range categories {
			if strings.EqualFold(allowed, c) {
				return true
			}
		}
	}

	return false
}

func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoLine is the slice of a cart or order line the evaluator needs.
type PromoLine struct {
	ProductID uuid.UUID
	Category  string
	LineTotal decimal.Decimal
}

type PromoEvaluation struct {
	Code           string          `json:"code"`
	Applicable     bool            `json:"applicable"`
	DiscountType   DiscountType    `json:"discount_type"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DiscountBase   decimal.Decimal `json:"discount_base"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PromoRedemption struct {
	PromoCode   string    `json:"promo_code"`
	UserID      uuid.UUID `json:"user_id"`
	OrderNumber string    `json:"order_number"`
	UsedAt      time.Time `json:"used_at"`
}

type ValidatePromoRequest struct {
	Code     string `json:"code" validate:"required,min=2,max=50"`
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3"`
}
