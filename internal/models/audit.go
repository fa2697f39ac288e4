package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditEntry struct {
	ID         uuid.UUID         `json:"id"`
	ActorID    *uuid.UUID        `json:"actor_id,omitempty"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
