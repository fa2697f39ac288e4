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
	"github.com/shopspring/decimal"
)

type PromoRepository interface {
	GetPromoByCode(ctx context.Context, code string) (*models.PromoCode, error)
	HasRedeemed(ctx context.Context, code string, userID uuid.UUID) (bool, error)
	// Redeem bumps used_count under the usage cap and records the user's
	// redemption in one transaction.
	Redeem(ctx context.Context, redemption *models.PromoRedemption) error
	// ReleaseRedemption undoes Redeem. It is a no-op when nothing was redeemed.
	ReleaseRedemption(ctx context.Context, code string, userID uuid.UUID) error
}

type promoRepository struct {
	DB *sql.DB
}

func NewPromoRepo(db *sql.DB) PromoRepository {
	return &promoRepository{DB: db}
}

func (r *promoRepository) GetPromoByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, code, description, discount_type, discount_value, minimum_order_amount, max_usage, used_count,
		       valid_from, valid_until, is_active, applicable_categories, excluded_products, created_at, updated_at
		FROM promo_codes
		WHERE code = $1
	`

	var (
		promo       models.PromoCode
		minimumJSON []byte
		maxUsage    sql.NullInt64
		categories  pq.StringArray
		excluded    pq.StringArray
	)

	err := r.DB.QueryRowContext(dbCtx, query, code).Scan(&promo.ID, &promo.Code, &promo.Description, &promo.DiscountType, &promo.DiscountValue,
		&minimumJSON, &maxUsage, &promo.UsedCount, &promo.ValidFrom, &promo.ValidUntil, &promo.IsActive,
		&categories, &excluded, &promo.CreatedAt, &promo.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying promo code: %w", notFoundOr(err))
	}

	if len(minimumJSON) > 0 {
		promo.MinimumOrderAmount = map[string]decimal.Decimal{}
		if err := json.Unmarshal(minimumJSON, &promo.MinimumOrderAmount); err != nil {
			return nil, fmt.Errorf("failed to unmarshal minimum order amount: %w", err)
		}
	}

	if maxUsage.Valid {
		limit := int(maxUsage.Int64)
		promo.MaxUsage = &limit
	}

	promo.ApplicableCategories = []string(categories)

	for _, raw := range excluded {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid excluded product id %q: %w", raw, err)
		}
		promo.ExcludedProducts = append(promo.ExcludedProducts, id)
	}

	return &promo, nil
}

func (r *promoRepository) HasRedeemed(ctx context.Context, code string, userID uuid.UUID) (bool, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM promo_redemptions WHERE promo_code = $1 AND user_id = $2)`

	var exists bool
	if err := r.DB.QueryRowContext(dbCtx, query, code, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("querying promo redemption: %w", err)
	}

	return exists, nil
}

func (r *promoRepository) Redeem(ctx context.Context, redemption *models.PromoRedemption) (err error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(dbCtx, `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE code = $1 AND is_active AND (max_usage IS NULL OR used_count < max_usage)
	`, redemption.PromoCode)
	if err != nil {
		return fmt.Errorf("failed to bump promo usage: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return ErrPromoExhausted
	}

	_, err = tx.ExecContext(dbCtx, `
		INSERT INTO promo_redemptions (promo_code, user_id, order_number, used_at)
		VALUES ($1, $2, $3, NOW())
	`, redemption.PromoCode, redemption.UserID, redemption.OrderNumber)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrPromoAlreadyRedeemed
		}
		return fmt.Errorf("failed to record promo redemption: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit promo redemption: %w", err)
	}

	return nil
}

func (r *promoRepository) ReleaseRedemption(ctx context.Context, code string, userID uuid.UUID) (err error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(dbCtx, `DELETE FROM promo_redemptions WHERE promo_code = $1 AND user_id = $2`, code, userID)
	if err != nil {
		return fmt.Errorf("failed to delete promo redemption: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted rows: %w", err)
	}

	if deleted > 0 {
		_, err = tx.ExecContext(dbCtx, `
			UPDATE promo_codes SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW() WHERE code = $1
		`, code)
		if err != nil {
			return fmt.Errorf("failed to release promo usage: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit promo release: %w", err)
	}

	return nil
}

