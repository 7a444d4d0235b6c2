package inventory

import (
	"context"

	"github.com/fekuna/omnipos-store-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
)

type UseCase interface {
	ReceiveStock(ctx context.Context, input *dto.ReceiveStockInput) (*dto.StockResult, error)
	AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*dto.StockResult, error)
	ListMovements(ctx context.Context, filters *ledger.MovementFilter) ([]model.StockMovement, int, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)
}
