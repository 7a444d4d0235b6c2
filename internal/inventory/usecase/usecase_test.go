package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/inventory"
	"github.com/fekuna/omnipos-store-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/ledger/memory"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

func setup(t *testing.T, stock int) (*memory.Store, inventory.UseCase) {
	t.Helper()
	store := memory.New()
	now := time.Now()
	err := store.CreateProduct(context.Background(), &model.Product{
		BaseModel:     model.BaseModel{ID: "p1", CreatedAt: now, UpdatedAt: now},
		Name:          "Rice 5kg",
		SKU:           "RICE-5",
		Price:         decimal.NewFromInt(12),
		StockQuantity: stock,
		MinStockLevel: 10,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	uc := NewInventoryUseCase(store, cache.NewNoop(), time.Minute, broker.NewNoopPublisher(), logger.NewNop())
	return store, uc
}

func TestReceiveStock(t *testing.T) {
	store, uc := setup(t, 4)

	res, err := uc.ReceiveStock(context.Background(), &dto.ReceiveStockInput{ProductID: "p1", Quantity: 6, Notes: "truck", UserID: "u1"})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if res.Product.StockQuantity != 10 {
		t.Fatalf("expected 10, got %d", res.Product.StockQuantity)
	}
	if res.Movement.Type != model.MovementIn || res.Movement.Reason != model.ReasonPurchase || res.Movement.Quantity != 6 {
		t.Fatalf("unexpected movement %+v", res.Movement)
	}

	movements, total, err := store.ListMovements(context.Background(), &ledger.MovementFilter{ProductID: "p1"})
	if err != nil || total != 1 || movements[0].UserID != "u1" {
		t.Fatalf("expected one movement by u1, got %v (err %v)", movements, err)
	}
}

func TestReceiveStockValidation(t *testing.T) {
	_, uc := setup(t, 4)

	tests := []struct {
		name  string
		input dto.ReceiveStockInput
		code  string
	}{
		{"zero quantity", dto.ReceiveStockInput{ProductID: "p1", Quantity: 0}, apperror.CodeInvalidQuantity},
		{"negative quantity", dto.ReceiveStockInput{ProductID: "p1", Quantity: -2}, apperror.CodeInvalidQuantity},
		{"unknown product", dto.ReceiveStockInput{ProductID: "nope", Quantity: 1}, apperror.CodeProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.ReceiveStock(context.Background(), &tt.input)
			if !apperror.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestAdjustStock(t *testing.T) {
	tests := []struct {
		name      string
		delta     int
		reason    string
		wantCode  string
		wantStock int
		wantType  model.MovementType
		wantQty   int
	}{
		{name: "damage write-off", delta: -3, reason: "damaged", wantStock: 2, wantType: model.MovementOut, wantQty: 3},
		{name: "count correction up", delta: 7, reason: "adjustment", wantStock: 12, wantType: model.MovementIn, wantQty: 7},
		{name: "down to zero", delta: -5, reason: "theft", wantStock: 0, wantType: model.MovementOut, wantQty: 5},
		{name: "below zero", delta: -6, reason: "damaged", wantCode: apperror.CodeNegativeStock},
		{name: "unknown reason", delta: 1, reason: "gift", wantCode: apperror.CodeInvalidReason},
		{name: "zero delta", delta: 0, reason: "adjustment", wantCode: apperror.CodeInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, uc := setup(t, 5)

			res, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
				ProductID: "p1", Quantity: tt.delta, Reason: tt.reason, UserID: "u1",
			})
			if tt.wantCode != "" {
				if !apperror.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				p, _ := store.GetProduct(context.Background(), "p1")
				if p.StockQuantity != 5 {
					t.Fatalf("stock changed on failure: %d", p.StockQuantity)
				}
				return
			}
			if err != nil {
				t.Fatalf("adjust: %v", err)
			}
			if res.Product.StockQuantity != tt.wantStock {
				t.Fatalf("expected stock %d, got %d", tt.wantStock, res.Product.StockQuantity)
			}
			if res.Movement.Type != tt.wantType || res.Movement.Quantity != tt.wantQty {
				t.Fatalf("unexpected movement %+v", res.Movement)
			}
		})
	}
}

func TestAdjustStockNegativeCarriesAvailable(t *testing.T) {
	_, uc := setup(t, 2)

	_, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{ProductID: "p1", Quantity: -3, Reason: "damaged"})
	appErr, ok := apperror.As(err)
	if !ok || appErr.Details["available"] != 2 {
		t.Fatalf("expected available=2 in details, got %v", err)
	}
}

func TestListLowStock(t *testing.T) {
	store, uc := setup(t, 3)
	now := time.Now()
	_ = store.CreateProduct(context.Background(), &model.Product{
		BaseModel: model.BaseModel{ID: "p2", CreatedAt: now}, Name: "Oil", SKU: "OIL", StockQuantity: 40, MinStockLevel: 10, IsActive: true,
	})
	_ = store.CreateProduct(context.Background(), &model.Product{
		BaseModel: model.BaseModel{ID: "p3", CreatedAt: now}, Name: "Old salt", SKU: "SALT", StockQuantity: 0, MinStockLevel: 10, IsActive: false,
	})

	items, err := uc.ListLowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(items) != 1 || items[0].ID != "p1" {
		t.Fatalf("expected only p1, got %v", items)
	}
}

func TestListMovementsRejectsUnknownType(t *testing.T) {
	_, uc := setup(t, 3)
	_, _, err := uc.ListMovements(context.Background(), &ledger.MovementFilter{Type: "sideways"})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
