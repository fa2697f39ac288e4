package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewAuditRepo(db)
	ctx := t.Context()
	actorID := uuid.New()
	orderID := uuid.NewString()

	t.Run("CreateEntry", func(t *testing.T) {
		now := time.Now()
		entry := &models.AuditEntry{
			ID:         uuid.New(),
			ActorID:    &actorID,
			Action:     "order.paid",
			EntityType: "order",
			EntityID:   orderID,
			Metadata:   map[string]string{"source": "stripe"},
		}

		mock.ExpectQuery(`INSERT INTO audit_log`).
			WithArgs(entry.ID, sqlmock.AnyArg(), "order.paid", "order", orderID, []byte(`{"source":"stripe"}`)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

		require.NoError(t, repo.CreateEntry(ctx, entry))
		assert.WithinDuration(t, now, entry.CreatedAt, time.Second)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreateEntry error", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO audit_log`).WillReturnError(errors.New("permission denied"))

		err := repo.CreateEntry(ctx, &models.AuditEntry{ID: uuid.New(), Action: "order.created"})

		assert.ErrorContains(t, err, "failed to create audit entry")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListByEntity", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "actor_id", "action", "entity_type", "entity_id", "metadata", "created_at"}).
			AddRow(uuid.NewString(), actorID.String(), "order.created", "order", orderID, []byte(`{}`), time.Now()).
			AddRow(uuid.NewString(), nil, "order.paid", "order", orderID, []byte(`{"source":"stripe"}`), time.Now())

		mock.ExpectQuery(`FROM audit_log WHERE entity_type = \$1 AND entity_id = \$2 ORDER BY created_at`).
			WithArgs("order", orderID).
			WillReturnRows(rows)

		entries, err := repo.ListByEntity(ctx, "order", orderID)

		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.NotNil(t, entries[0].ActorID)
		assert.Equal(t, actorID, *entries[0].ActorID)
		assert.Nil(t, entries[1].ActorID)
		assert.Equal(t, "stripe", entries[1].Metadata["source"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListByEntity bad metadata", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "actor_id", "action", "entity_type", "entity_id", "metadata", "created_at"}).
			AddRow(uuid.NewString(), nil, "order.paid", "order", orderID, []byte(`{`), time.Now())
		mock.ExpectQuery(`FROM audit_log`).WithArgs("order", orderID).WillReturnRows(rows)

		_, err := repo.ListByEntity(ctx, "order", orderID)

		assert.ErrorContains(t, err, "failed to unmarshal audit metadata")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
