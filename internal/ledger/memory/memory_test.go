package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

func seedProduct(t *testing.T, s *Store, id, sku string, stock int) {
	t.Helper()
	p := &model.Product{
		BaseModel:     model.BaseModel{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Name:          "Product " + id,
		SKU:           sku,
		Price:         decimal.NewFromInt(10),
		Cost:          decimal.NewFromInt(5),
		StockQuantity: stock,
		MinStockLevel: 10,
		IsActive:      true,
	}
	if err := s.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", "SKU-1", 5)

	boom := errors.New("boom")
	err := s.WithinTx(context.Background(), func(tx ledger.Tx) error {
		if _, err := tx.DecrementStock(context.Background(), "p1", 3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	p, err := s.GetProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.StockQuantity != 5 {
		t.Fatalf("expected stock 5 after rollback, got %d", p.StockQuantity)
	}
}

func TestDecrementStockConditional(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", "SKU-1", 2)

	if _, err := s.DecrementStock(context.Background(), "p1", 3); !errors.Is(err, ledger.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	p, err := s.DecrementStock(context.Background(), "p1", 2)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if p.StockQuantity != 0 {
		t.Fatalf("expected 0, got %d", p.StockQuantity)
	}
}

func TestApplyStockDeltaNeverNegative(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", "SKU-1", 4)

	if _, err := s.ApplyStockDelta(context.Background(), "p1", -5); !errors.Is(err, ledger.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	p, err := s.ApplyStockDelta(context.Background(), "p1", -4)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if p.StockQuantity != 0 {
		t.Fatalf("expected 0, got %d", p.StockQuantity)
	}
}

func TestUniqueConstraints(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", "SKU-1", 1)

	dup := &model.Product{BaseModel: model.BaseModel{ID: "p2"}, SKU: "SKU-1"}
	if err := s.CreateProduct(context.Background(), dup); !errors.Is(err, ledger.ErrDuplicateSKU) {
		t.Fatalf("expected ErrDuplicateSKU, got %v", err)
	}

	sale := &model.Sale{ID: "s1", ReceiptNumber: "RCP-260101-0001", UserID: "u1"}
	if err := s.InsertSale(context.Background(), sale); err != nil {
		t.Fatalf("insert sale: %v", err)
	}
	again := &model.Sale{ID: "s2", ReceiptNumber: "RCP-260101-0001", UserID: "u1"}
	if err := s.InsertSale(context.Background(), again); !errors.Is(err, ledger.ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt, got %v", err)
	}
}

func TestListProductsLowStockAndPaging(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", "SKU-1", 3)
	seedProduct(t, s, "p2", "SKU-2", 50)
	seedProduct(t, s, "p3", "SKU-3", 10)

	items, total, err := s.ListProducts(context.Background(), &ledger.ProductFilter{LowStock: true, SortBy: "stock", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 low stock products, got total=%d len=%d", total, len(items))
	}
	if items[0].ID != "p1" || items[1].ID != "p3" {
		t.Fatalf("unexpected order: %s, %s", items[0].ID, items[1].ID)
	}

	page, total, err := s.ListProducts(context.Background(), &ledger.ProductFilter{Page: 2, PageSize: 2, SortBy: "name", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].ID != "p3" {
		t.Fatalf("unexpected page: total=%d items=%v", total, page)
	}
}

func TestSetCreditBalanceRejectsNegative(t *testing.T) {
	s := New()
	c := &model.Customer{BaseModel: model.BaseModel{ID: "c1"}, Name: "Ana", IsActive: true}
	if err := s.CreateCustomer(context.Background(), c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetCreditBalance(context.Background(), "c1", decimal.NewFromInt(-1)); !errors.Is(err, ledger.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
}
