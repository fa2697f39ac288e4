package service

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type PromoService interface {
	// Evaluate computes the discount a code grants on lines. It never changes
	// usage counters.
	Evaluate(ctx context.Context, code string, userID uuid.UUID, lines []models.PromoLine, currency string) (*models.PromoEvaluation, error)
	// Redeem books one use of code by userID for an order.
	Redeem(ctx context.Context, code string, userID uuid.UUID, orderNumber string) error
	// Release undoes Redeem.
	Release(ctx context.Context, code string, userID uuid.UUID) error
}

type promoService struct {
	repo repository.PromoRepository
	now  func() time.Time
}

func NewPromoService(repo repository.PromoRepository) PromoService {
	return &promoService{repo: repo, now: time.Now}
}

// NewPromoServiceWithClock is NewPromoService with a fixed notion of "now".
func NewPromoServiceWithClock(repo repository.PromoRepository, now func() time.Time) PromoService {
	return &promoService{repo: repo, now: now}
}

func (s *promoService) Evaluate(ctx context.Context, code string, userID uuid.UUID, lines []models.PromoLine, currency string) (*models.PromoEvaluation, error) {
	code = models.NormalizePromoCode(code)

	promo, err := s.repo.GetPromoByCode(ctx, code)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.PromoNotFoundError(code)
		}

		return nil, errors.DatabaseError("Failed to load promo code").WithError(err)
	}

	if !promo.IsActive {
		return nil, errors.PromoNotFoundError(code)
	}

	now := s.now()
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return nil, errors.PromoError(errors.ErrCodePromoExpired, fmt.Sprintf("Promo code %s is not valid at this time", code))
	}

	if promo.Exhausted() {
		return nil, errors.PromoError(errors.ErrCodePromoExhausted, fmt.Sprintf("Promo code %s has reached its usage limit", code))
	}

	used, err := s.repo.HasRedeemed(ctx, code, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to check promo usage").WithError(err)
	}

	if used {
		return nil, errors.PromoError(errors.ErrCodePromoAlreadyUsed, fmt.Sprintf("Promo code %s has already been used", code))
	}

	subtotal := decimal.Zero
	categories := make([]string, 0, len(lines))

	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
		categories = append(categories, line.Category)
	}

	if minimum, ok := promo.MinimumFor(currency); ok && subtotal.LessThan(minimum) {
		return nil, errors.PromoError(errors.ErrCodePromoMinimumNotMet,
			fmt.Sprintf("Promo code %s requires a minimum order of %s %s", code, minimum.StringFixed(2), strings.ToUpper(currency)))
	}

	if !promo.AppliesToAny(categories) {
		return nil, errors.PromoError(errors.ErrCodePromoCategoryMismatch, fmt.Sprintf("Promo code %s does not apply to these products", code))
	}

	base := decimal.Zero

	for _, line := range lines {
		if !promo.Excludes(line.ProductID) {
			base = base.Add(line.LineTotal)
		}
	}

	return &models.PromoEvaluation{
		Code:           code,
		Applicable:     true,
		DiscountType:   promo.DiscountType,
		DiscountAmount: Discount(promo, base),
		DiscountBase:   base,
		Subtotal:       subtotal,
	}, nil
}

// Discount applies promo to base, rounded to cents. It never exceeds base.
func Discount(promo *models.PromoCode, base decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal

	switch promo.DiscountType {
	case models.DiscountTypePercentage:
		amount = base.Mul(promo.DiscountValue).Div(hundred)
	case models.DiscountTypeFixed:
		amount = decimal.Min(promo.DiscountValue, base)
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}

	return decimal.Min(amount, base).Round(2)
}

func (s *promoService) Redeem(ctx context.Context, code string, userID uuid.UUID, orderNumber string) error {
	code = models.NormalizePromoCode(code)

	err := s.repo.Redeem(ctx, &models.PromoRedemption{
		PromoCode:   code,
		UserID:      userID,
		OrderNumber: orderNumber,
		UsedAt:      s.now(),
	})

	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, repository.ErrPromoExhausted):
		return errors.PromoError(errors.ErrCodePromoExhausted, fmt.Sprintf("Promo code %s has reached its usage limit", code)).WithError(err)
	case stdErrors.Is(err, repository.ErrPromoAlreadyRedeemed):
		return errors.PromoError(errors.ErrCodePromoAlreadyUsed, fmt.Sprintf("Promo code %s has already been used", code)).WithError(err)
	default:
		return errors.DatabaseError("Failed to redeem promo code").WithError(err)
	}
}

func (s *promoService) Release(ctx context.Context, code string, userID uuid.UUID) error {
	if err := s.repo.ReleaseRedemption(ctx, models.NormalizePromoCode(code), userID); err != nil {
		return errors.DatabaseError("Failed to release promo redemption").WithError(err)
	}

	return nil
}
