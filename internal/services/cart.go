package service

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/cache"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

var errCartLockBusy = stdErrors.New("cart lock busy")

type CartService interface {
	// GetCart never fails with not found; a user without a cart gets an empty one.
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID uuid.UUID, req *models.UpdateItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, req *models.RemoveItemRequest) (*models.Cart, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	repo    repository.CartRepository
	catalog CatalogService
	locks   repository.LockRepository
	cache   cache.Cache
	lockTTL time.Duration
}

func NewCartService(repo repository.CartRepository, catalog CatalogService, locks repository.LockRepository, cartCache cache.Cache, lockTTL time.Duration) CartService {
	return &cartService{repo: repo, catalog: catalog, locks: locks, cache: cartCache, lockTTL: lockTTL}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	logger := middleware.LoggerFromContext(ctx)
	key := cache.CartKey(userID)

	if s.cache != nil {
		var cached models.Cart

		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("Cart cache read failed", slog.String("error", err.Error()))
		} else if found {
			return &cached, nil
		}
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// a write that finished after the read above already refreshed the entry
	if s.cache != nil {
		if _, err := s.cache.SetIfAbsent(ctx, key, cart, 0); err != nil {
			logger.Warn("Cart cache write failed", slog.String("error", err.Error()))
		}
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	if req.Quantity < 1 {
		return nil, errors.ValidationError("Quantity must be at least 1")
	}

	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		product, err := s.catalog.GetActiveProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}

		variant := req.Variant()
		quantity := req.Quantity

		idx := cart.FindItem(req.ProductID, variant)
		if idx >= 0 {
			quantity += cart.Items[idx].Quantity
		}

		if int64(quantity) > product.StockQuantity {
			return errors.OutOfStockError(product.Name, product.StockQuantity)
		}

		if idx >= 0 {
			refreshLine(&cart.Items[idx], product)
			cart.Items[idx].Quantity = quantity

			return nil
		}

		cart.Items = append(cart.Items, models.CartItem{
			ProductID:     product.ID,
			ProductName:   product.Name,
			ImageURL:      product.ImageURL,
			Category:      product.CategoryName(),
			Quantity:      quantity,
			SelectedSize:  variant.Size,
			SelectedColor: variant.Color,
			UnitPrice:     product.Price,
			AddedAt:       time.Now(),
		})

		return nil
	})
}

func (s *cartService) UpdateItem(ctx context.Context, userID uuid.UUID, req *models.UpdateItemRequest) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		idx := cart.FindItem(req.ProductID, req.Variant())
		if idx < 0 {
			return errors.NotFoundError("Item not found in cart")
		}

		if req.Quantity <= 0 {
			cart.RemoveAt(idx)

			return nil
		}

		product, err := s.catalog.GetActiveProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}

		if int64(req.Quantity) > product.StockQuantity {
			return errors.OutOfStockError(product.Name, product.StockQuantity)
		}

		refreshLine(&cart.Items[idx], product)
		cart.Items[idx].Quantity = req.Quantity

		return nil
	})
}

func (s *cartService) RemoveItem(ctx context.Context, userID uuid.UUID, req *models.RemoveItemRequest) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		cart.RemoveAt(cart.FindItem(req.ProductID, req.Variant()))

		return nil
	})
}

// ClearCart waits briefly for an in-flight mutation so it cannot write the
// cleared lines back.
func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxElapsedTime = s.lockTTL

	release, err := backoff.RetryWithData(func() (func(), error) {
		return s.lock(ctx, userID)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return lockError(err)
	}
	defer release()

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return errors.DatabaseError("Failed to clear cart").WithError(err)
	}

	s.store(ctx, models.NewCart(userID))

	return nil
}

// mutate runs fn against the freshly loaded cart while holding the user's
// cart lock, then recomputes totals and persists the result.
func (s *cartService) mutate(ctx context.Context, userID uuid.UUID, fn func(cart *models.Cart) error) (*models.Cart, error) {
	release, err := s.lock(ctx, userID)
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	cart.Recalculate()
	cart.UpdatedAt = time.Now()

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, errors.DatabaseError("Failed to update cart").WithError(err)
	}

	s.store(ctx, cart)

	return cart, nil
}

// lock takes the user's cart lock. A busy lock yields errCartLockBusy; lock
// store failures are permanent for retry purposes.
func (s *cartService) lock(ctx context.Context, userID uuid.UUID) (func(), error) {
	lockKey := repository.CartLockKey(userID)

	token, ok, err := s.locks.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	if !ok {
		return nil, errCartLockBusy
	}

	return func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			middleware.LoggerFromContext(ctx).Warn("Failed to release cart lock", slog.String("error", err.Error()))
		}
	}, nil
}

func lockError(err error) *errors.AppError {
	if stdErrors.Is(err, errCartLockBusy) {
		return errors.ConflictError("Cart is being updated, please retry")
	}

	return errors.InternalError("Failed to lock cart").WithError(err)
}

func (s *cartService) load(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetCartByCustomerID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return models.NewCart(userID), nil
		}

		return nil, errors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	cart.Recalculate()

	return cart, nil
}

// store writes the committed cart through to the cache. When the write fails
// the entry is dropped so readers fall back to the database.
func (s *cartService) store(ctx context.Context, cart *models.Cart) {
	if s.cache == nil {
		return
	}

	logger := middleware.LoggerFromContext(ctx)
	key := cache.CartKey(cart.UserID)

	if err := s.cache.Set(ctx, key, cart, 0); err != nil {
		logger.Warn("Cart cache write failed", slog.String("error", err.Error()))

		if err := s.cache.Delete(ctx, key); err != nil {
			logger.Warn("Cart cache invalidation failed", slog.String("error", err.Error()))
		}
	}
}

// refreshLine updates the catalog snapshot of a line.
func refreshLine(item *models.CartItem, product *models.Product) {
	item.ProductName = product.Name
	item.ImageURL = product.ImageURL
	item.Category = product.CategoryName()
	item.UnitPrice = product.Price
}
