package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/inventory"
	"github.com/fekuna/omnipos-store-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"go.uber.org/zap"
)

type inventoryUseCase struct {
	store     ledger.Store
	cache     cache.Cache
	cacheTTL  time.Duration
	publisher broker.Publisher
	logger    logger.ZapLogger
}

func NewInventoryUseCase(store ledger.Store, c cache.Cache, cacheTTL time.Duration, publisher broker.Publisher, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		store:     store,
		cache:     c,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		logger:    log,
	}
}

func (uc *inventoryUseCase) ReceiveStock(ctx context.Context, input *dto.ReceiveStockInput) (*dto.StockResult, error) {
	if input.Quantity <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidQuantity, "Product ID and positive quantity are required")
	}

	var result dto.StockResult
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		p, m, err := inventory.Restock(ctx, tx, inventory.Change{
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			Reason:    model.ReasonPurchase,
			Notes:     input.Notes,
			UserID:    input.UserID,
		})
		if err != nil {
			return err
		}
		result = dto.StockResult{Product: p, Movement: m}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock received",
		zap.String("product_id", input.ProductID),
		zap.Int("quantity", input.Quantity),
		zap.Int("stock_quantity", result.Product.StockQuantity),
		zap.String("user_id", input.UserID),
	)
	uc.afterChange(ctx, broker.EventStockReceived, &result)
	return &result, nil
}

func (uc *inventoryUseCase) AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*dto.StockResult, error) {
	reason := model.MovementReason(input.Reason)
	if !reason.Valid() {
		return nil, apperror.Validation(apperror.CodeInvalidReason, "Unknown adjustment reason %q", input.Reason)
	}
	if input.Quantity == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidQuantity, "Adjustment quantity must not be zero")
	}

	var result dto.StockResult
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		p, m, err := inventory.ApplyAdjustment(ctx, tx, inventory.Change{
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			Reason:    reason,
			Notes:     input.Notes,
			UserID:    input.UserID,
		})
		if err != nil {
			return err
		}
		result = dto.StockResult{Product: p, Movement: m}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock adjusted",
		zap.String("product_id", input.ProductID),
		zap.Int("delta", input.Quantity),
		zap.String("reason", input.Reason),
		zap.Int("stock_quantity", result.Product.StockQuantity),
		zap.String("user_id", input.UserID),
	)
	uc.afterChange(ctx, broker.EventStockAdjusted, &result)
	return &result, nil
}

func (uc *inventoryUseCase) afterChange(ctx context.Context, eventType string, result *dto.StockResult) {
	inventory.InvalidateViews(ctx, uc.cache, uc.logger)

	event, err := broker.NewEvent(eventType, result)
	if err == nil {
		err = uc.publisher.Publish(ctx, result.Product.ID, event)
	}
	if err != nil {
		uc.logger.Error("failed to publish stock event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *ledger.MovementFilter) ([]model.StockMovement, int, error) {
	if filters.Type != "" {
		switch filters.Type {
		case model.MovementIn, model.MovementOut, model.MovementAdjustment:
		default:
			return nil, 0, apperror.Validation(apperror.CodeInvalidInput, "Unknown movement type %q", filters.Type)
		}
	}
	return uc.store.ListMovements(ctx, filters)
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context) ([]model.Product, error) {
	key := cache.PrefixLowStock + ":all"
	var cached []model.Product
	if found, err := uc.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	active := true
	products, _, err := uc.store.ListProducts(ctx, &ledger.ProductFilter{
		IsActive:  &active,
		LowStock:  true,
		SortBy:    "stock",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}

	if err := uc.cache.SetJSON(ctx, key, products, uc.cacheTTL); err != nil {
		uc.logger.Warn("failed to cache low stock report", zap.Error(err))
	}
	return products, nil
}
