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

var promoColumns = []string{
	"id", "code", "description", "discount_type", "discount_value", "minimum_order_amount", "max_usage", "used_count",
	"valid_from", "valid_until", "is_active", "applicable_categories", "excluded_products", "created_at", "updated_at",
}

func setupPromoRepoTest(t *testing.T) (repository.PromoRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return repository.NewPromoRepo(db), mock
}

func TestPromoRepository_GetPromoByCode(t *testing.T) {
	repo, mock := setupPromoRepoTest(t)
	ctx := t.Context()

	promoID := uuid.New()
	excluded := uuid.New()
	now := time.Now()

	t.Run("Full promo", func(t *testing.T) {
		mock.ExpectQuery(`FROM promo_codes WHERE code = \$1`).
			WithArgs("SAVE10").
			WillReturnRows(sqlmock.NewRows(promoColumns).AddRow(promoID.String(), "SAVE10", "Ten off", "percentage", "10",
				[]byte(`{"usd":"50.00"}`), int64(100), 7, now.Add(-time.Hour), now.Add(time.Hour), true,
				[]byte(`{kitchen,garden}`), []byte(`{`+excluded.String()+`}`), now, now))

		promo, err := repo.GetPromoByCode(ctx, "SAVE10")

		require.NoError(t, err)
		assert.Equal(t, promoID, promo.ID)
		assert.Equal(t, models.DiscountTypePercentage, promo.DiscountType)
		assert.True(t, decimal.NewFromInt(10).Equal(promo.DiscountValue))
		assert.True(t, decimal.RequireFromString("50.00").Equal(promo.MinimumOrderAmount["usd"]))
		require.NotNil(t, promo.MaxUsage)
		assert.Equal(t, 100, *promo.MaxUsage)
		assert.Equal(t, 7, promo.UsedCount)
		assert.Equal(t, []string{"kitchen", "garden"}, promo.ApplicableCategories)
		assert.Equal(t, []uuid.UUID{excluded}, promo.ExcludedProducts)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unlimited promo without minimum", func(t *testing.T) {
		mock.ExpectQuery(`FROM promo_codes`).
			WithArgs("FREESHIP").
			WillReturnRows(sqlmock.NewRows(promoColumns).AddRow(promoID.String(), "FREESHIP", "", "fixed", "5",
				nil, nil, 0, now, now.Add(time.Hour), true, []byte(`{}`), []byte(`{}`), now, now))

		promo, err := repo.GetPromoByCode(ctx, "FREESHIP")

		require.NoError(t, err)
		assert.Nil(t, promo.MaxUsage)
		assert.Nil(t, promo.MinimumOrderAmount)
		assert.Empty(t, promo.ApplicableCategories)
		assert.Empty(t, promo.ExcludedProducts)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid excluded product", func(t *testing.T) {
		mock.ExpectQuery(`FROM promo_codes`).
			WithArgs("BROKEN").
			WillReturnRows(sqlmock.NewRows(promoColumns).AddRow(promoID.String(), "BROKEN", "", "fixed", "5",
				nil, nil, 0, now, now, true, []byte(`{}`), []byte(`{not-a-uuid}`), now, now))

		_, err := repo.GetPromoByCode(ctx, "BROKEN")

		assert.ErrorContains(t, err, "invalid excluded product id")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown code", func(t *testing.T) {
		mock.ExpectQuery(`FROM promo_codes`).WithArgs("NOPE").WillReturnError(sql.ErrNoRows)

		promo, err := repo.GetPromoByCode(ctx, "NOPE")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, promo)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPromoRepository_HasRedeemed(t *testing.T) {
	repo, mock := setupPromoRepoTest(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM promo_redemptions WHERE promo_code = \$1 AND user_id = \$2\)`).
		WithArgs("SAVE10", userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	redeemed, err := repo.HasRedeemed(t.Context(), "SAVE10", userID)

	require.NoError(t, err)
	assert.True(t, redeemed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoRepository_Redeem(t *testing.T) {
	repo, mock := setupPromoRepoTest(t)
	ctx := t.Context()

	redemption := &models.PromoRedemption{PromoCode: "SAVE10", UserID: uuid.New(), OrderNumber: "ORD-1"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE promo_codes SET used_count = used_count \+ 1`).
			WithArgs("SAVE10").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO promo_redemptions`).
			WithArgs("SAVE10", redemption.UserID, "ORD-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Redeem(ctx, redemption))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Usage cap reached", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE promo_codes`).WithArgs("SAVE10").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Redeem(ctx, redemption), repository.ErrPromoExhausted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already redeemed by user", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE promo_codes`).WithArgs("SAVE10").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO promo_redemptions`).
			WithArgs("SAVE10", redemption.UserID, "ORD-1").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "promo_redemptions_pkey"})
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Redeem(ctx, redemption), repository.ErrPromoAlreadyRedeemed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin fails", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		assert.ErrorContains(t, repo.Redeem(ctx, redemption), "failed to begin transaction")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPromoRepository_ReleaseRedemption(t *testing.T) {
	repo, mock := setupPromoRepoTest(t)
	ctx := t.Context()
	userID := uuid.New()

	t.Run("Releases usage when a redemption existed", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM promo_redemptions WHERE promo_code = \$1 AND user_id = \$2`).
			WithArgs("SAVE10", userID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE promo_codes SET used_count = GREATEST\(used_count - 1, 0\)`).
			WithArgs("SAVE10").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.ReleaseRedemption(ctx, "SAVE10", userID))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No-op without redemption", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM promo_redemptions`).WithArgs("SAVE10", userID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		require.NoError(t, repo.ReleaseRedemption(ctx, "SAVE10", userID))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
