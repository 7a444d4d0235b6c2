package sale

import (
	"context"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/fekuna/omnipos-store-service/internal/sale/dto"
)

type UseCase interface {
	Checkout(ctx context.Context, input *dto.CheckoutInput) (*model.Sale, error)
	Refund(ctx context.Context, input *dto.RefundInput) (*model.Sale, error)
	GetSale(ctx context.Context, id string) (*model.Sale, error)
	ListSales(ctx context.Context, filters *ledger.SaleFilter) ([]model.Sale, int, error)
}
