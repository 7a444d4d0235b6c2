package listener

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
)

type recordingUseCase struct {
	received []dto.ReceiveStockInput
}

func (r *recordingUseCase) ReceiveStock(_ context.Context, in *dto.ReceiveStockInput) (*dto.StockResult, error) {
	r.received = append(r.received, *in)
	return &dto.StockResult{}, nil
}

func (r *recordingUseCase) AdjustStock(context.Context, *dto.AdjustStockInput) (*dto.StockResult, error) {
	return nil, nil
}

func (r *recordingUseCase) ListMovements(context.Context, *ledger.MovementFilter) ([]model.StockMovement, int, error) {
	return nil, 0, nil
}

func (r *recordingUseCase) ListLowStock(context.Context) ([]model.Product, error) {
	return nil, nil
}

func encode(t *testing.T, eventType string, payload interface{}) []byte {
	t.Helper()
	ev, err := broker.NewEvent(eventType, payload)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestProcessGoodsReceived(t *testing.T) {
	uc := &recordingUseCase{}
	l := NewPurchasingListener(nil, uc, logger.NewNop())

	l.processMessage(context.Background(), encode(t, broker.EventGoodsReceived, GoodsReceivedPayload{
		PurchaseOrderID: "PO-7",
		Items: []GoodsReceivedItemRow{
			{ProductID: "p1", Quantity: 12},
			{ProductID: "p2", Quantity: 3},
		},
	}))

	if len(uc.received) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(uc.received))
	}
	first := uc.received[0]
	if first.ProductID != "p1" || first.Quantity != 12 || first.UserID != systemUserID {
		t.Fatalf("unexpected receipt %+v", first)
	}
	if first.Notes != "Purchase order PO-7" {
		t.Fatalf("unexpected notes %q", first.Notes)
	}
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	uc := &recordingUseCase{}
	l := NewPurchasingListener(nil, uc, logger.NewNop())

	l.processMessage(context.Background(), encode(t, broker.EventSaleCompleted, map[string]string{"id": "s1"}))
	l.processMessage(context.Background(), []byte("not json"))

	if len(uc.received) != 0 {
		t.Fatalf("expected no receipts, got %d", len(uc.received))
	}
}
