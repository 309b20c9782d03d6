package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	ctxErr error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.ctxErr = ctx.Err()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublish_ClavePorSujeto(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, nil)
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(),
		inventory.LedgerEvent{Type: inventory.EventMovementRecorded, IngredientID: "huevo", MovementID: "m1", Quantity: decimal.NewFromInt(-2), OccurredAt: at},
		inventory.LedgerEvent{Type: inventory.EventConsumptionApplied, MenuID: "bandeja", ConsumptionID: "c1", Quantity: decimal.NewFromInt(1), OccurredAt: at},
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "huevo", string(w.msgs[0].Key))
	assert.Equal(t, "bandeja", string(w.msgs[1].Key))
	assert.Equal(t, inventory.EventConsumptionApplied, string(w.msgs[1].Headers[0].Value))

	var got inventory.LedgerEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "m1", got.MovementID)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(-2)))
}

func TestPublish_IgnoraCancelacionDelCliente(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Publish(ctx, inventory.LedgerEvent{Type: inventory.EventMovementRecorded, IngredientID: "arroz"}))
	assert.NoError(t, w.ctxErr)
}

func TestPublish_Error(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{err: errors.New("broker caído")}, nil)
	err := p.Publish(context.Background(), inventory.LedgerEvent{Type: inventory.EventMovementRecorded, IngredientID: "arroz"})
	assert.ErrorContains(t, err, "broker caído")
}

func TestPublish_SinEventos(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newKafkaPublisher(w, nil).Publish(context.Background()))
	assert.Empty(t, w.msgs)
}
