package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gamestore/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func sampleOrder() model.Order {
	return model.Order{
		ID:         42,
		UserID:     7,
		TotalPrice: decimal.RequireFromString("25.00"),
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Items: []model.OrderItem{
			{ProductID: 1, Name: "A", Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{ProductID: 2, Name: "B", Quantity: 1, Price: decimal.RequireFromString("5.00")},
		},
	}
}

func TestPublishOrderPlaced_WritesKeyedRecord(t *testing.T) {
	fp := &fakeProducer{}
	p := &KafkaOrderPublisher{client: fp, topic: "orders"}

	require.NoError(t, p.PublishOrderPlaced(context.Background(), sampleOrder()))
	require.Len(t, fp.records, 1)

	rec := fp.records[0]
	assert.Equal(t, "orders", rec.Topic)
	assert.Equal(t, "42", string(rec.Key))
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "order.placed", string(rec.Headers[0].Value))

	var ev OrderPlacedEvent
	require.NoError(t, json.Unmarshal(rec.Value, &ev))
	assert.Equal(t, int64(42), ev.OrderID)
	assert.Equal(t, int64(7), ev.UserID)
	assert.True(t, ev.TotalPrice.Equal(decimal.NewFromInt(25)))
	require.Len(t, ev.Items, 2)
	assert.Equal(t, int64(2), ev.Items[0].Quantity)
}

func TestPublishOrderPlaced_ProduceError(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	p := &KafkaOrderPublisher{client: fp, topic: "orders"}

	err := p.PublishOrderPlaced(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestClose(t *testing.T) {
	fp := &fakeProducer{}
	p := &KafkaOrderPublisher{client: fp, topic: "orders"}
	p.Close()
	assert.True(t, fp.closed)
}
