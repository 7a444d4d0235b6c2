package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	dbpostgres "github.com/fekuna/omnipos-store-service/internal/database/postgres"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// openTestStore connects to POS_TEST_DATABASE_URL, which must point at a
// disposable database. The schema is migrated on every run.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("POS_TEST_DATABASE_URL not set")
	}
	if err := dbpostgres.Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := dbpostgres.Open(dsn, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := NewStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func newProduct(t *testing.T, s *Store, stock int) *model.Product {
	t.Helper()
	now := time.Now()
	p := &model.Product{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:          "Test product",
		SKU:           "SKU-" + uuid.New().String()[:8],
		Price:         decimal.RequireFromString("9.99"),
		Cost:          decimal.RequireFromString("4.50"),
		StockQuantity: stock,
		MinStockLevel: 2,
		IsActive:      true,
	}
	if err := s.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestDecrementStockIsConditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := newProduct(t, s, 3)

	got, err := s.DecrementStock(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("DecrementStock: %v", err)
	}
	if got.StockQuantity != 1 {
		t.Fatalf("stock = %d, want 1", got.StockQuantity)
	}

	if _, err := s.DecrementStock(ctx, p.ID, 2); !errors.Is(err, ledger.ErrConditionFailed) {
		t.Fatalf("err = %v, want ErrConditionFailed", err)
	}
	if _, err := s.DecrementStock(ctx, uuid.New().String(), 1); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if after.StockQuantity != 1 {
		t.Fatalf("stock after failed decrement = %d, want 1", after.StockQuantity)
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	s := openTestStore(t)
	p := newProduct(t, s, 0)

	dup := *p
	dup.ID = uuid.New().String()
	if err := s.CreateProduct(context.Background(), &dup); !errors.Is(err, ledger.ErrDuplicateSKU) {
		t.Fatalf("err = %v, want ErrDuplicateSKU", err)
	}
}

func TestInsertSaleDuplicateReceipt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	receipt := "RCP-T-" + uuid.New().String()[:8]

	sale := func() *model.Sale {
		return &model.Sale{
			ID:            uuid.New().String(),
			ReceiptNumber: receipt,
			Subtotal:      decimal.NewFromInt(10),
			Total:         decimal.NewFromInt(10),
			PaymentMethod: model.PaymentCash,
			AmountPaid:    decimal.NewFromInt(10),
			Status:        model.SaleCompleted,
			UserID:        "u-test",
			CreatedAt:     time.Now(),
		}
	}

	if err := s.InsertSale(ctx, sale()); err != nil {
		t.Fatalf("InsertSale: %v", err)
	}
	if err := s.InsertSale(ctx, sale()); !errors.Is(err, ledger.ErrDuplicateReceipt) {
		t.Fatalf("err = %v, want ErrDuplicateReceipt", err)
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := newProduct(t, s, 5)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.DecrementStock(ctx, p.ID, 4); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if after.StockQuantity != 5 {
		t.Fatalf("stock = %d, want 5 after rollback", after.StockQuantity)
	}
}

func TestMalformedIDsAgainstDatabase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := newProduct(t, s, 1)

	products, err := s.GetProductsByIDs(ctx, []string{p.ID, "not-a-uuid"})
	if err != nil {
		t.Fatalf("GetProductsByIDs: %v", err)
	}
	if len(products) != 1 || products[0].ID != p.ID {
		t.Fatalf("expected only %s, got %+v", p.ID, products)
	}

	err = s.WithinTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.GetSaleForUpdate(ctx, "not-a-uuid")
		return err
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	movements, total, err := s.ListMovements(ctx, &ledger.MovementFilter{ProductID: "not-a-uuid"})
	if err != nil || total != 0 || len(movements) != 0 {
		t.Fatalf("expected empty movement page, got %d/%d err %v", len(movements), total, err)
	}
	if _, _, err := s.ListSales(ctx, &ledger.SaleFilter{CustomerID: "not-a-uuid"}); err != nil {
		t.Fatalf("ListSales: %v", err)
	}
}
