package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/cache"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	carts    *fakeCartRepo
	products *fakeProductRepo
	locks    *fakeLocks
	service  service.CartService
}

func newCartFixture(products ...*models.Product) *cartFixture {
	f := &cartFixture{
		carts:    newFakeCartRepo(),
		products: newFakeProductRepo(products...),
		locks:    newFakeLocks(),
	}

	f.service = service.NewCartService(f.carts, service.NewCatalogService(f.products, nil), f.locks, nil, time.Second)

	return f
}

// newCachedCartFixture backs the cart service with a Redis cache on miniredis.
func newCachedCartFixture(t *testing.T, products ...*models.Product) (*cartFixture, cache.Cache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cartCache := cache.NewRedisCache(client, config.CacheConfig{DefaultTTL: time.Minute})

	f := newCartFixture(products...)
	f.service = service.NewCartService(f.carts, service.NewCatalogService(f.products, nil), f.locks, cartCache, time.Second)

	return f, cartCache
}

// assertCartConsistent checks the derived totals against the lines.
func assertCartConsistent(t *testing.T, cart *models.Cart) {
	t.Helper()

	total := decimal.Zero
	count := 0

	for _, item := range cart.Items {
		assert.GreaterOrEqual(t, item.Quantity, 1)
		assert.True(t, item.TotalPrice.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))))

		total = total.Add(item.TotalPrice)
		count += item.Quantity
	}

	assert.True(t, cart.Total.Equal(total), "cart total %s, lines sum to %s", cart.Total, total)
	assert.Equal(t, count, cart.ItemCount)
}

func TestCartService_GetCart(t *testing.T) {
	f := newCartFixture()
	userID := uuid.New()

	cart, err := f.service.GetCart(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Same product and variant merges into one line", func(t *testing.T) {
		shirt := newProduct("Shirt", "15.00", 10, "apparel")
		f := newCartFixture(shirt)
		userID := uuid.New()

		_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 2, SelectedSize: "M"})
		require.NoError(t, err)

		cart, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 1, SelectedSize: "M"})
		require.NoError(t, err)

		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity)
		assert.True(t, cart.Total.Equal(dec("45.00")))
		assertCartConsistent(t, cart)
	})

	t.Run("Success - Different variants stay separate", func(t *testing.T) {
		shirt := newProduct("Shirt", "15.00", 10, "apparel")
		f := newCartFixture(shirt)
		userID := uuid.New()

		_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 1, SelectedSize: "M"})
		require.NoError(t, err)

		cart, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 1, SelectedSize: "L"})
		require.NoError(t, err)

		assert.Len(t, cart.Items, 2)
		assertCartConsistent(t, cart)

		stored, err := f.service.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, stored.Items, 2)
	})

	t.Run("Failure - Merged quantity exceeds stock", func(t *testing.T) {
		shirt := newProduct("Shirt", "15.00", 3, "apparel")
		f := newCartFixture(shirt)
		userID := uuid.New()

		_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 2})
		require.NoError(t, err)

		cart, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 2})

		assert.Nil(t, cart)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeOutOfStock))

		stored, err := f.service.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Items[0].Quantity)
	})

	t.Run("Failure - Inactive product", func(t *testing.T) {
		shirt := newProduct("Shirt", "15.00", 3, "apparel")
		shirt.Status = models.ProductStatusInactive
		f := newCartFixture(shirt)

		_, err := f.service.AddItem(ctx, uuid.New(), &models.AddItemRequest{ProductID: shirt.ID, Quantity: 1})

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))
	})

	t.Run("Failure - Zero quantity", func(t *testing.T) {
		f := newCartFixture()

		_, err := f.service.AddItem(ctx, uuid.New(), &models.AddItemRequest{ProductID: uuid.New(), Quantity: 0})

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
	})

	t.Run("Failure - Cart locked by a concurrent update", func(t *testing.T) {
		shirt := newProduct("Shirt", "15.00", 3, "apparel")
		f := newCartFixture(shirt)
		userID := uuid.New()
		f.locks.hold(repository.CartLockKey(userID))

		_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 1})

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeConflict))
	})

	t.Run("Failure - Lock store unavailable", func(t *testing.T) {
		shirt := newProduct("Shirt", "15.00", 3, "apparel")
		f := newCartFixture(shirt)
		f.locks.err = errors.New("redis down")

		_, err := f.service.AddItem(ctx, uuid.New(), &models.AddItemRequest{ProductID: shirt.ID, Quantity: 1})

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInternal))
	})
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()

	shirt := newProduct("Shirt", "15.00", 10, "apparel")
	mug := newProduct("Mug", "8.00", 10, "kitchen")
	f := newCartFixture(shirt, mug)
	userID := uuid.New()

	_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: shirt.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)

	t.Run("Success - Update quantity", func(t *testing.T) {
		cart, err := f.service.UpdateItem(ctx, userID, &models.UpdateItemRequest{ProductID: shirt.ID, Quantity: 4})

		require.NoError(t, err)
		assert.Equal(t, 5, cart.ItemCount)
		assert.True(t, cart.Total.Equal(dec("68.00")))
		assertCartConsistent(t, cart)
	})

	t.Run("Failure - Update above stock", func(t *testing.T) {
		_, err := f.service.UpdateItem(ctx, userID, &models.UpdateItemRequest{ProductID: shirt.ID, Quantity: 11})

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeOutOfStock))
	})

	t.Run("Failure - Update a line not in the cart", func(t *testing.T) {
		_, err := f.service.UpdateItem(ctx, userID, &models.UpdateItemRequest{ProductID: shirt.ID, Quantity: 1, SelectedSize: "XL"})

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))
	})

	t.Run("Success - Zero quantity removes the line", func(t *testing.T) {
		cart, err := f.service.UpdateItem(ctx, userID, &models.UpdateItemRequest{ProductID: mug.ID, Quantity: 0})

		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, shirt.ID, cart.Items[0].ProductID)
		assertCartConsistent(t, cart)
	})

	t.Run("Success - Remove the last line", func(t *testing.T) {
		cart, err := f.service.RemoveItem(ctx, userID, &models.RemoveItemRequest{ProductID: shirt.ID})

		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())
		assert.True(t, cart.Total.IsZero())
		assert.Equal(t, 0, cart.ItemCount)
	})

	t.Run("Success - Clear", func(t *testing.T) {
		_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: mug.ID, Quantity: 2})
		require.NoError(t, err)

		require.NoError(t, f.service.ClearCart(ctx, userID))

		cart, err := f.service.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())
	})
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Waits for an in-flight update", func(t *testing.T) {
		mug := newProduct("Mug", "8.00", 10, "kitchen")
		f := newCartFixture(mug)
		userID := uuid.New()

		_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: mug.ID, Quantity: 1})
		require.NoError(t, err)

		lockKey := repository.CartLockKey(userID)
		f.locks.hold(lockKey)

		go func() {
			time.Sleep(50 * time.Millisecond)
			f.locks.free(lockKey)
		}()

		require.NoError(t, f.service.ClearCart(ctx, userID))

		_, err = f.carts.GetCartByCustomerID(ctx, userID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Failure - Lock never frees", func(t *testing.T) {
		f := newCartFixture()
		userID := uuid.New()
		f.locks.hold(repository.CartLockKey(userID))

		err := f.service.ClearCart(ctx, userID)

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeConflict))
	})

	t.Run("Failure - Lock store unavailable", func(t *testing.T) {
		f := newCartFixture()
		f.locks.err = errors.New("redis down")

		err := f.service.ClearCart(ctx, uuid.New())

		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInternal))
	})
}

func TestCartService_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Writes go through to the cache", func(t *testing.T) {
		mug := newProduct("Mug", "8.00", 10, "kitchen")
		f, cartCache := newCachedCartFixture(t, mug)
		userID := uuid.New()

		_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: mug.ID, Quantity: 3})
		require.NoError(t, err)

		var cached models.Cart
		found, err := cartCache.Get(ctx, cache.CartKey(userID), &cached)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 3, cached.ItemCount)

		require.NoError(t, f.service.ClearCart(ctx, userID))

		cart, err := f.service.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())
	})

	t.Run("Success - Slow read does not replace a newer cart", func(t *testing.T) {
		mug := newProduct("Mug", "8.00", 10, "kitchen")
		f, _ := newCachedCartFixture(t, mug)
		userID := uuid.New()

		// an update commits between the read's database fetch and its cache fill
		f.carts.afterRead = func() {
			_, err := f.service.AddItem(ctx, userID, &models.AddItemRequest{ProductID: mug.ID, Quantity: 2})
			assert.NoError(t, err)
		}

		stale, err := f.service.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.True(t, stale.IsEmpty())

		cart, err := f.service.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, cart.ItemCount)
		assertCartConsistent(t, cart)
	})
}
