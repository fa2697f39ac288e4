package service

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/cache"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const productCacheTTL = 30 * time.Second

// StockLine is a quantity of one product to reserve or release.
type StockLine struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
}

type CatalogService interface {
	// GetProduct serves catalog pages and may be up to productCacheTTL stale.
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// GetActiveProduct always reads the database and rejects inactive products.
	GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// ReserveStock decrements every line or none of them.
	ReserveStock(ctx context.Context, lines []StockLine) error
	ReleaseStock(ctx context.Context, lines []StockLine)
}

type catalogService struct {
	repo  repository.ProductRepository
	cache cache.Cache
	group singleflight.Group
	// maxRetries bounds retries of idempotent reads.
	maxRetries uint64
	backoff    time.Duration
}

func NewCatalogService(repo repository.ProductRepository, productCache cache.Cache) CatalogService {
	return &catalogService{repo: repo, cache: productCache, maxRetries: 3, backoff: 50 * time.Millisecond}
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	logger := middleware.LoggerFromContext(ctx)
	key := cache.Key(cache.ProductKeyPrefix, id.String())

	if s.cache != nil {
		var cached models.Product

		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("Product cache read failed", slog.String("productId", id.String()), slog.String("error", err.Error()))
		} else if found {
			return &cached, nil
		}
	}

	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, product, productCacheTTL); err != nil {
			logger.Warn("Product cache write failed", slog.String("productId", id.String()), slog.String("error", err.Error()))
		}
	}

	return product, nil
}

func (s *catalogService) GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !product.IsActive() {
		return nil, errors.NotFoundError("Product not found").WithDetail(id.String())
	}

	return product, nil
}

// load collapses concurrent reads of one product and retries transient failures.
func (s *catalogService) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	v, err, _ := s.group.Do(id.String(), func() (any, error) {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = s.backoff
		policy.MaxElapsedTime = 0

		return backoff.RetryWithData(func() (*models.Product, error) {
			product, err := s.repo.GetProductByID(ctx, id)
			if stdErrors.Is(err, repository.ErrNotFound) {
				return nil, backoff.Permanent(err)
			}

			return product, err
		}, backoff.WithContext(backoff.WithMaxRetries(policy, s.maxRetries), ctx))
	})
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Product not found").WithDetail(id.String()).WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch product").WithError(err)
	}

	// callers may mutate what they get back
	product := *v.(*models.Product)

	return &product, nil
}

func (s *catalogService) ReserveStock(ctx context.Context, lines []StockLine) error {
	reserved := make([]StockLine, 0, len(lines))

	for _, line := range mergeStockLines(lines) {
		err := s.repo.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err == nil {
			reserved = append(reserved, line)

			continue
		}

		s.ReleaseStock(ctx, reserved)

		switch {
		case stdErrors.Is(err, repository.ErrInsufficientStock):
			return errors.InsufficientStockError(line.ProductName).WithDetail(line.ProductID.String()).WithError(err)
		default:
			return errors.DatabaseError("Failed to reserve stock").WithError(err)
		}
	}

	return nil
}

// ReleaseStock is best effort; a failed line is logged for manual repair.
func (s *catalogService) ReleaseStock(ctx context.Context, lines []StockLine) {
	logger := middleware.LoggerFromContext(ctx)

	for _, line := range mergeStockLines(lines) {
		if err := s.repo.IncrementStock(context.WithoutCancel(ctx), line.ProductID, line.Quantity); err != nil {
			logger.Error("Failed to restore stock",
				slog.String("productId", line.ProductID.String()),
				slog.Int("quantity", line.Quantity),
				slog.String("error", err.Error()))

			continue
		}

		metrics.StockCompensated()
	}
}

// mergeStockLines folds variants of one product into a single row update.
func mergeStockLines(lines []StockLine) []StockLine {
	merged := make([]StockLine, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))

	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity

			continue
		}

		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	return merged
}
