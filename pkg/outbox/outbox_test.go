package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/dbtest"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmitWritesEnvelopeInsideTx(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	orderID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          OrderCreatedEvent{OrderID: orderID, OrderNumber: "MUX-20260301-ABC123", Total: "20.00", ItemCount: 1},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal([]byte(rows[0].Payload), &envelope))
	require.Equal(t, CurrentVersion, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.False(t, envelope.OccurredAt.IsZero())
}

func TestEmitRolledBackWithTx(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          OrderStatusChangedEvent{From: enums.OrderStatusPending, To: enums.OrderStatusConfirmed},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitValidation(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	require.Error(t, svc.Emit(ctx, client.DB(), DomainEvent{EventType: "nope", AggregateID: uuid.New()}))
	require.Error(t, svc.Emit(ctx, client.DB(), DomainEvent{EventType: enums.EventOrderCreated}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	conn := client.DB()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          OrderCreatedEvent{},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("broker down")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 3))

	pending, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, rows[1].ID, pending[0].ID)
	require.Equal(t, 1, pending[0].AttemptCount)
	require.Equal(t, "broker down", *pending[0].LastError)

	dead, err := repo.ListDead(3, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Equal(t, rows[2].ID, dead[0].ID)
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	conn := client.DB()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, conn, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          OrderCreatedEvent{},
		}))
	}
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", rows[0].ID).Update("published_at", old).Error)
	require.NoError(t, repo.MarkPublishedTx(conn, rows[1].ID))

	deleted, err := repo.DeletePublishedBefore(ctx, conn, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.Equal(t, int64(2), remaining)
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry("orders-topic")
	require.NoError(t, err)

	orderID := uuid.New()
	data, _ := json.Marshal(OrderStatusChangedEvent{OrderID: orderID, From: enums.OrderStatusPending, To: enums.OrderStatusShipped})
	payload, _ := json.Marshal(PayloadEnvelope{Version: 1, EventID: "evt-1", Data: data})
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       string(payload),
	}

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	require.Equal(t, "orders-topic", resolved.Message.Topic)
	require.Equal(t, orderID.String(), resolved.Message.Key)
	require.Equal(t, "evt-1", resolved.Message.Attributes["event_id"])
	got, ok := resolved.Payload.(*OrderStatusChangedEvent)
	require.True(t, ok)
	require.Equal(t, enums.OrderStatusShipped, got.To)
}

func TestRegistryResolveNonRetryable(t *testing.T) {
	reg, err := NewRegistry("orders-topic")
	require.NoError(t, err)
	_, err = NewRegistry("")
	require.Error(t, err)

	cases := []models.OutboxEvent{
		{EventType: "unknown", AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: `{}`},
		{EventType: enums.EventOrderCreated, AggregateType: "cart", AggregateID: uuid.New(), Payload: `{}`},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Payload: `{}`},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: `not json`},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: `{"data":null}`},
	}
	for _, row := range cases {
		_, err := reg.Resolve(row)
		var nonRetry NonRetryableError
		require.True(t, errors.As(err, &nonRetry), "row %+v", row)
	}
}
