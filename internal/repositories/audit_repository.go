package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
)

type AuditRepository interface {
	CreateEntry(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error)
}

type auditRepository struct {
	DB *sql.DB
}

func NewAuditRepo(db *sql.DB) AuditRepository {
	return &auditRepository{DB: db}
}

func (r *auditRepository) CreateEntry(ctx context.Context, entry *models.AuditEntry) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`

	err = r.DB.QueryRowContext(dbCtx, query, entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, metadata).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, actor_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at
	`

	rows, err := r.DB.QueryContext(dbCtx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}

	for rows.Next() {
		var (
			entry    models.AuditEntry
			metadata []byte
		)

		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType, &entry.EntityID, &metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over the rows: %w", err)
	}

	return entries, nil
}
