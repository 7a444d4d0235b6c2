package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/inventory"
	"github.com/fekuna/omnipos-store-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// systemUserID is recorded on movements that come from other services.
const systemUserID = "system"

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// PurchasingListener turns goods-received events into stock receipts.
type PurchasingListener struct {
	consumer MessageReader
	uc       inventory.UseCase
	logger   logger.ZapLogger
}

func NewPurchasingListener(consumer MessageReader, uc inventory.UseCase, logger logger.ZapLogger) *PurchasingListener {
	return &PurchasingListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *PurchasingListener) Start(ctx context.Context) {
	l.logger.Info("Starting purchasing Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping purchasing Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type GoodsReceivedPayload struct {
	PurchaseOrderID string                 `json:"purchase_order_id"`
	ReceivedBy      string                 `json:"received_by"`
	Items           []GoodsReceivedItemRow `json:"items"`
}

type GoodsReceivedItemRow struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (l *PurchasingListener) processMessage(ctx context.Context, value []byte) {
	var event broker.Event
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}
	if event.EventType != broker.EventGoodsReceived {
		return
	}

	var payload GoodsReceivedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		l.logger.Error("Failed to unmarshal goods received payload", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}

	l.logger.Info("Processing GoodsReceived event",
		zap.String("event_id", event.EventID),
		zap.String("purchase_order_id", payload.PurchaseOrderID),
	)

	userID := payload.ReceivedBy
	if userID == "" {
		userID = systemUserID
	}
	for _, item := range payload.Items {
		_, err := l.uc.ReceiveStock(ctx, &dto.ReceiveStockInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Notes:     "Purchase order " + payload.PurchaseOrderID,
			UserID:    userID,
		})
		if err != nil {
			l.logger.Error("Failed to receive stock for purchase order item",
				zap.String("purchase_order_id", payload.PurchaseOrderID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}
