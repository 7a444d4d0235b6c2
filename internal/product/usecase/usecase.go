package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/inventory"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/fekuna/omnipos-store-service/internal/product"
	"github.com/fekuna/omnipos-store-service/internal/product/dto"
	"github.com/fekuna/omnipos-store-service/internal/search"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	indexName = "products"

	defaultMinStockLevel = 10
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"name": { "type": "text" },
			"description": { "type": "text" },
			"sku": { "type": "keyword" },
			"barcode": { "type": "keyword" },
			"price": { "type": "double" },
			"is_active": { "type": "boolean" },
			"created_at": { "type": "date" }
		}
	}
}`

type productUseCase struct {
	store     ledger.Store
	cache     cache.Cache
	cacheTTL  time.Duration
	es        search.Engine
	publisher broker.Publisher
	logger    logger.ZapLogger
}

// NewProductUseCase wires the catalog. es may be nil, in which case search
// runs against the database.
func NewProductUseCase(store ledger.Store, c cache.Cache, cacheTTL time.Duration, es search.Engine, publisher broker.Publisher, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		store:     store,
		cache:     c,
		cacheTTL:  cacheTTL,
		es:        es,
		publisher: publisher,
		logger:    log,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validatePrices(price, cost decimal.Decimal) error {
	if price.IsNegative() || cost.IsNegative() {
		return apperror.Validation(apperror.CodeInvalidAmount, "Price and cost must not be negative")
	}
	return nil
}

func duplicate(err error) error {
	switch {
	case errors.Is(err, ledger.ErrDuplicateSKU):
		return apperror.Conflict(apperror.CodeDuplicateSKU, "SKU already exists")
	case errors.Is(err, ledger.ErrDuplicateBarcode):
		return apperror.Conflict(apperror.CodeDuplicateBarcode, "Barcode already exists")
	case errors.Is(err, ledger.ErrNotFound):
		return apperror.NotFound(apperror.CodeProductNotFound, "Product not found")
	}
	return err
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.SKU) == "" {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "Name and SKU are required")
	}
	if err := validatePrices(input.Price, input.Cost); err != nil {
		return nil, err
	}
	minStock := defaultMinStockLevel
	if input.MinStockLevel != nil {
		minStock = *input.MinStockLevel
	}
	if input.StockQuantity < 0 || minStock < 0 {
		return nil, apperror.Validation(apperror.CodeInvalidQuantity, "Stock levels must not be negative")
	}

	now := time.Now()
	p := &model.Product{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:          strings.TrimSpace(input.Name),
		SKU:           strings.TrimSpace(input.SKU),
		Barcode:       optional(input.Barcode),
		Description:   optional(input.Description),
		Price:         input.Price,
		Cost:          input.Cost,
		MinStockLevel: minStock,
		IsActive:      true,
	}

	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		if err := tx.CreateProduct(ctx, p); err != nil {
			return duplicate(err)
		}
		if input.StockQuantity == 0 {
			return nil
		}
		// opening stock goes through the movement log like any other change
		stocked, _, err := inventory.Restock(ctx, tx, inventory.Change{
			ProductID: p.ID,
			Quantity:  input.StockQuantity,
			Reason:    model.ReasonInitial,
			Notes:     "Initial stock",
			UserID:    input.UserID,
		})
		if err != nil {
			return err
		}
		p = stocked
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.Int("stock_quantity", p.StockQuantity),
	)
	uc.afterChange(ctx, p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := uc.store.GetProduct(ctx, id)
	if err != nil {
		return nil, duplicate(err)
	}
	return p, nil
}

func (uc *productUseCase) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	p, err := uc.store.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return nil, duplicate(err)
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *ledger.ProductFilter) ([]model.Product, int, error) {
	type listResult struct {
		Products []model.Product `json:"products"`
		Count    int             `json:"count"`
	}

	cacheKey, err := cache.Key(cache.PrefixProducts, filters)
	if err == nil {
		var cached listResult
		if found, err := uc.cache.GetJSON(ctx, cacheKey, &cached); err == nil && found {
			return cached.Products, cached.Count, nil
		}
	}

	products, count, err := uc.store.ListProducts(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	if products == nil {
		products = []model.Product{}
	}

	if cacheKey != "" {
		if err := uc.cache.SetJSON(ctx, cacheKey, listResult{Products: products, Count: count}, uc.cacheTTL); err != nil {
			uc.logger.Warn("failed to cache product list", zap.Error(err))
		}
	}
	return products, count, nil
}

// SearchProducts queries the search index for active products and falls
// back to a database scan when the index is unavailable.
func (uc *productUseCase) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]model.Product, int, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, apperror.Validation(apperror.CodeInvalidInput, "Search query is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	if uc.es != nil {
		products, total, err := uc.searchIndex(ctx, query, page, pageSize)
		if err == nil {
			return products, total, nil
		}
		uc.logger.Error("search index query failed, falling back to database", zap.Error(err))
	}

	active := true
	return uc.store.ListProducts(ctx, &ledger.ProductFilter{
		Search:   query,
		IsActive: &active,
		SortBy:   "name",
		Page:     page,
		PageSize: pageSize,
	})
}

func (uc *productUseCase) searchIndex(ctx context.Context, query string, page, pageSize int) ([]model.Product, int, error) {
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"query_string": map[string]interface{}{
							"query":  fmt.Sprintf("*%s*", query),
							"fields": []string{"name^3", "sku", "barcode", "description"},
						},
					},
				},
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"is_active": true}},
				},
			},
		},
		"from": (page - 1) * pageSize,
		"size": pageSize,
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}
	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			return nil, 0, fmt.Errorf("decode hit %s: %w", hit.ID, err)
		}
		products = append(products, p)
	}
	return products, res.Hits.Total.Value, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	var updated *model.Product
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		p, err := tx.GetProduct(ctx, input.ID)
		if err != nil {
			return duplicate(err)
		}

		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return apperror.Validation(apperror.CodeInvalidInput, "Name is required")
			}
			p.Name = strings.TrimSpace(*input.Name)
		}
		if input.SKU != nil {
			if strings.TrimSpace(*input.SKU) == "" {
				return apperror.Validation(apperror.CodeInvalidInput, "SKU is required")
			}
			p.SKU = strings.TrimSpace(*input.SKU)
		}
		if input.Barcode != nil {
			p.Barcode = optional(*input.Barcode)
		}
		if input.Description != nil {
			p.Description = optional(*input.Description)
		}
		if input.Price != nil {
			p.Price = *input.Price
		}
		if input.Cost != nil {
			p.Cost = *input.Cost
		}
		if err := validatePrices(p.Price, p.Cost); err != nil {
			return err
		}
		if input.MinStockLevel != nil {
			if *input.MinStockLevel < 0 {
				return apperror.Validation(apperror.CodeInvalidQuantity, "Minimum stock level must not be negative")
			}
			p.MinStockLevel = *input.MinStockLevel
		}
		if input.IsActive != nil {
			p.IsActive = *input.IsActive
		}
		p.UpdatedAt = time.Now()

		if err := tx.UpdateProduct(ctx, p); err != nil {
			return duplicate(err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("product updated", zap.String("product_id", updated.ID))
	uc.afterChange(ctx, updated)
	return updated, nil
}

func (uc *productUseCase) DeactivateProduct(ctx context.Context, id string) error {
	var p *model.Product
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		if err != nil {
			return duplicate(err)
		}
		p.IsActive = false
		p.UpdatedAt = time.Now()
		return tx.UpdateProduct(ctx, p)
	})
	if err != nil {
		return err
	}

	uc.logger.Info("product deactivated", zap.String("product_id", id))
	uc.afterChange(ctx, p)
	return nil
}

func (uc *productUseCase) afterChange(ctx context.Context, p *model.Product) {
	inventory.InvalidateViews(ctx, uc.cache, uc.logger)

	event, err := broker.NewEvent(broker.EventProductUpserted, p)
	if err == nil {
		err = uc.publisher.Publish(ctx, p.ID, event)
	}
	if err != nil {
		uc.logger.Error("failed to publish product event", zap.Error(err))
	}

	if uc.es != nil {
		snapshot := *p
		go uc.syncIndex(context.Background(), &snapshot)
	}
}

// syncIndex mirrors p into the search index. Inactive products are removed.
func (uc *productUseCase) syncIndex(ctx context.Context, p *model.Product) {
	if !p.IsActive {
		if err := uc.es.Delete(ctx, indexName, p.ID); err != nil {
			uc.logger.Error("failed to remove product from index", zap.String("product_id", p.ID), zap.Error(err))
		}
		return
	}

	if err := uc.es.EnsureIndex(ctx, indexName, indexMapping); err != nil {
		uc.logger.Warn("failed to ensure product index", zap.Error(err))
	}
	if err := uc.es.Index(ctx, indexName, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}
