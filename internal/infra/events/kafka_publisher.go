package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gamestore/internal/domain/model"
	"gamestore/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/kgo"
)

const eventTypeOrderPlaced = "order.placed"

// OrderPlacedEvent はKafkaに流す注文確定イベント。
type OrderPlacedEvent struct {
	OrderID    int64             `json:"order_id"`
	UserID     int64             `json:"user_id"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	Items      []OrderPlacedItem `json:"items"`
	CreatedAt  time.Time         `json:"created_at"`
}

type OrderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// producer は kgo.Client のうち使う部分だけ
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type KafkaOrderPublisher struct {
	client producer
	topic  string
}

func NewKafkaOrderPublisher(brokers []string, topic string) (*KafkaOrderPublisher, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaOrderPublisher{client: cl, topic: topic}, nil
}

var _ usecase.OrderEventPublisher = (*KafkaOrderPublisher)(nil)

func (p *KafkaOrderPublisher) PublishOrderPlaced(ctx context.Context, o model.Order) error {
	value, err := json.Marshal(newOrderPlacedEvent(o))
	if err != nil {
		return err
	}

	rec := &kgo.Record{
		Topic: p.topic,
		// 同じ注文は同じパーティションへ
		Key:   []byte(strconv.FormatInt(o.ID, 10)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(eventTypeOrderPlaced)},
		},
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaOrderPublisher) Close() {
	p.client.Close()
}

func newOrderPlacedEvent(o model.Order) OrderPlacedEvent {
	items := make([]OrderPlacedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderPlacedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return OrderPlacedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Items:      items,
		CreatedAt:  o.CreatedAt.UTC(),
	}
}

// NopOrderPublisher はKafka未設定時に使う。
type NopOrderPublisher struct{}

func (NopOrderPublisher) PublishOrderPlaced(context.Context, model.Order) error { return nil }
