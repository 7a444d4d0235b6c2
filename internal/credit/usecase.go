package credit

import (
	"context"

	"github.com/fekuna/omnipos-store-service/internal/credit/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
)

type UseCase interface {
	CreateCustomer(ctx context.Context, input *dto.CreateCustomerInput) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, input *dto.UpdateCustomerInput) (*model.Customer, error)
	DeactivateCustomer(ctx context.Context, id string) error
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	ListCustomers(ctx context.Context, filters *ledger.CustomerFilter) ([]model.Customer, int, error)

	RecordPayment(ctx context.Context, input *dto.RecordPaymentInput) (*dto.BalanceResult, error)
	AdjustBalance(ctx context.Context, input *dto.AdjustBalanceInput) (*dto.BalanceResult, error)
	History(ctx context.Context, customerID string) ([]model.CreditTransaction, error)
	Reconcile(ctx context.Context, customerID string) (*dto.ReconcileReport, error)
	Summary(ctx context.Context) (*dto.CreditSummary, error)
}
