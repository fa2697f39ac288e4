package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
)

// PaymentEventRepository is the ledger of gateway events already applied.
type PaymentEventRepository interface {
	// MarkProcessed records the event and reports whether it was new.
	MarkProcessed(ctx context.Context, event *models.GatewayEvent) (bool, error)
	// Unmark forgets an event so the gateway's retry can be applied again.
	Unmark(ctx context.Context, key string) error
}

type paymentEventRepository struct {
	DB *sql.DB
}

func NewPaymentEventRepo(db *sql.DB) PaymentEventRepository {
	return &paymentEventRepository{DB: db}
}

func (r *paymentEventRepository) MarkProcessed(ctx context.Context, event *models.GatewayEvent) (bool, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO processed_webhook_events (event_key, source, intent_id, status, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (event_key) DO NOTHING
	`

	result, err := r.DB.ExecContext(dbCtx, query, event.Key, event.Source, event.IntentID, event.Status)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get inserted rows: %w", err)
	}

	return inserted == 1, nil
}

func (r *paymentEventRepository) Unmark(ctx context.Context, key string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if _, err := r.DB.ExecContext(dbCtx, `DELETE FROM processed_webhook_events WHERE event_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete webhook event: %w", err)
	}

	return nil
}
