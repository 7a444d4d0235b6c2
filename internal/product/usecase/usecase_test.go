package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/ledger/memory"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/fekuna/omnipos-store-service/internal/product"
	"github.com/fekuna/omnipos-store-service/internal/product/dto"
	"github.com/fekuna/omnipos-store-service/internal/search"
	"github.com/shopspring/decimal"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (m *mapCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mapCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *mapCache) Close() error { return nil }

type fakeEngine struct {
	mu      sync.Mutex
	indexed map[string]bool
	result  string
	err     error
}

func (f *fakeEngine) EnsureIndex(context.Context, string, string) error { return nil }

func (f *fakeEngine) Index(_ context.Context, _ string, id string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[id] = true
	return nil
}

func (f *fakeEngine) Delete(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	return nil
}

func (f *fakeEngine) Search(context.Context, string, map[string]interface{}) (*search.SearchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	var res search.SearchResponse
	if err := json.Unmarshal([]byte(f.result), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (f *fakeEngine) isIndexed(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexed[id]
}

func newUseCase(store ledger.Store, c cache.Cache, es search.Engine) product.UseCase {
	return NewProductUseCase(store, c, time.Minute, es, broker.NewNoopPublisher(), logger.NewNop())
}

func TestCreateProductRecordsInitialStock(t *testing.T) {
	store := memory.New()
	uc := newUseCase(store, cache.NewNoop(), nil)
	ctx := context.Background()

	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{
		Name: "Rice 5kg", SKU: "RICE-5", Barcode: "899100", Price: decimal.NewFromInt(12), StockQuantity: 30, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.StockQuantity != 30 || p.MinStockLevel != 10 || !p.IsActive {
		t.Fatalf("unexpected product %+v", p)
	}

	movements, total, _ := store.ListMovements(ctx, &ledger.MovementFilter{ProductID: p.ID})
	if total != 1 || movements[0].Reason != model.ReasonInitial || movements[0].Quantity != 30 || movements[0].Type != model.MovementIn {
		t.Fatalf("expected one initial movement, got %v", movements)
	}

	empty, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Salt", SKU: "SALT"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, total, _ := store.ListMovements(ctx, &ledger.MovementFilter{ProductID: empty.ID}); total != 0 {
		t.Fatalf("expected no movement for zero opening stock, got %d", total)
	}
}

func TestCreateProductErrors(t *testing.T) {
	store := memory.New()
	uc := newUseCase(store, cache.NewNoop(), nil)
	ctx := context.Background()
	if _, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Rice", SKU: "RICE", Barcode: "111"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	negative := -1
	tests := []struct {
		name  string
		input dto.CreateProductInput
		code  string
	}{
		{"duplicate sku", dto.CreateProductInput{Name: "Rice 2", SKU: "RICE"}, apperror.CodeDuplicateSKU},
		{"duplicate barcode", dto.CreateProductInput{Name: "Rice 3", SKU: "RICE-3", Barcode: "111"}, apperror.CodeDuplicateBarcode},
		{"missing sku", dto.CreateProductInput{Name: "Tea"}, apperror.CodeInvalidInput},
		{"negative price", dto.CreateProductInput{Name: "Tea", SKU: "TEA", Price: decimal.NewFromInt(-1)}, apperror.CodeInvalidAmount},
		{"negative stock", dto.CreateProductInput{Name: "Tea", SKU: "TEA", StockQuantity: -5}, apperror.CodeInvalidQuantity},
		{"negative min level", dto.CreateProductInput{Name: "Tea", SKU: "TEA", MinStockLevel: &negative}, apperror.CodeInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateProduct(ctx, &tt.input)
			if !apperror.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestUpdateProductLeavesStockAlone(t *testing.T) {
	store := memory.New()
	uc := newUseCase(store, cache.NewNoop(), nil)
	ctx := context.Background()

	p, _ := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Tea", SKU: "TEA", Price: decimal.NewFromInt(4), StockQuantity: 8})
	_, _ = uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Coffee", SKU: "COF"})

	price := decimal.RequireFromString("4.75")
	name := "Green tea"
	updated, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, Name: &name, Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Green tea" || !updated.Price.Equal(price) || updated.StockQuantity != 8 {
		t.Fatalf("unexpected update %+v", updated)
	}

	sku := "COF"
	if _, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, SKU: &sku}); !apperror.HasCode(err, apperror.CodeDuplicateSKU) {
		t.Fatalf("expected DUPLICATE_SKU, got %v", err)
	}
	if _, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: "missing", Name: &name}); !apperror.HasCode(err, apperror.CodeProductNotFound) {
		t.Fatalf("expected PRODUCT_NOT_FOUND, got %v", err)
	}
}

func TestDeactivateProduct(t *testing.T) {
	store := memory.New()
	uc := newUseCase(store, cache.NewNoop(), nil)
	ctx := context.Background()

	p, _ := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Tea", SKU: "TEA", Barcode: "555"})
	if got, err := uc.GetProductByBarcode(ctx, "555"); err != nil || got.ID != p.ID {
		t.Fatalf("barcode lookup: %v %v", got, err)
	}

	if err := uc.DeactivateProduct(ctx, p.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := uc.GetProductByBarcode(ctx, "555"); !apperror.HasCode(err, apperror.CodeProductNotFound) {
		t.Fatalf("expected inactive product hidden from scans, got %v", err)
	}
	got, err := uc.GetProduct(ctx, p.ID)
	if err != nil || got.IsActive {
		t.Fatalf("expected inactive product by id, got %+v (err %v)", got, err)
	}
}

func TestListProductsIsCachedUntilWrite(t *testing.T) {
	store := memory.New()
	c := newMapCache()
	uc := newUseCase(store, c, nil)
	ctx := context.Background()
	_, _ = uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Tea", SKU: "TEA"})

	filters := &ledger.ProductFilter{Page: 1, PageSize: 50}
	_, total, err := uc.ListProducts(ctx, filters)
	if err != nil || total != 1 {
		t.Fatalf("list: %d %v", total, err)
	}

	// bypass the use case so only the cache can answer
	_ = store.CreateProduct(ctx, &model.Product{BaseModel: model.BaseModel{ID: "raw", CreatedAt: time.Now()}, Name: "Raw", SKU: "RAW", IsActive: true})
	if _, total, _ := uc.ListProducts(ctx, filters); total != 1 {
		t.Fatalf("expected cached total 1, got %d", total)
	}

	_, _ = uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Milk", SKU: "MILK"})
	if _, total, _ := uc.ListProducts(ctx, filters); total != 3 {
		t.Fatalf("expected fresh total 3 after write, got %d", total)
	}
}

func TestSearchProducts(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	engine := &fakeEngine{
		indexed: map[string]bool{},
		result:  `{"hits":{"total":{"value":7},"hits":[{"_id":"p9","_source":{"id":"p9","name":"Jasmine tea","sku":"JT","price":"3.5","is_active":true}}]}}`,
	}
	uc := newUseCase(store, cache.NewNoop(), engine)

	products, total, err := uc.SearchProducts(ctx, "tea", 1, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 7 || len(products) != 1 || products[0].Name != "Jasmine tea" || !products[0].Price.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("unexpected search result %d %+v", total, products)
	}

	if _, _, err := uc.SearchProducts(ctx, "  ", 1, 20); apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("expected validation error for blank query, got %v", err)
	}
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	engine := &fakeEngine{indexed: map[string]bool{}, err: errors.New("cluster unavailable")}
	uc := newUseCase(store, cache.NewNoop(), engine)

	p, _ := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Black tea", SKU: "BT"})
	old, _ := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Old tea", SKU: "OT"})
	_ = uc.DeactivateProduct(ctx, old.ID)

	products, total, err := uc.SearchProducts(ctx, "tea", 1, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || products[0].ID != p.ID {
		t.Fatalf("expected only the active match, got %d %+v", total, products)
	}
}

func TestWritesSyncSearchIndex(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	engine := &fakeEngine{indexed: map[string]bool{}}
	uc := newUseCase(store, cache.NewNoop(), engine)

	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Tea", SKU: "TEA"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, func() bool { return engine.isIndexed(p.ID) })

	if err := uc.DeactivateProduct(ctx, p.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	waitFor(t, func() bool { return !engine.isIndexed(p.ID) })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
