// Package broker publishes and consumes domain events on Kafka.
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventSaleCompleted   = "SaleCompleted"
	EventSaleRefunded    = "SaleRefunded"
	EventStockReceived   = "StockReceived"
	EventStockAdjusted   = "StockAdjusted"
	EventCreditPayment   = "CreditPaymentRecorded"
	EventCreditAdjusted  = "CreditAdjusted"
	EventProductUpserted = "ProductUpserted"
	EventGoodsReceived   = "GoodsReceived"
)

// Event is the envelope every message on the wire carries.
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(eventType string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Publisher sends events after the owning transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, key string, event *Event) error
	Close() error
}

type noop struct{}

func NewNoopPublisher() Publisher { return noop{} }

func (noop) Publish(context.Context, string, *Event) error { return nil }
func (noop) Close() error                                  { return nil }
