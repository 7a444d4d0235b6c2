package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/credit"
	"github.com/fekuna/omnipos-store-service/internal/credit/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const summaryKey = cache.PrefixCreditSummary + ":all"

type creditUseCase struct {
	store     ledger.Store
	cache     cache.Cache
	cacheTTL  time.Duration
	publisher broker.Publisher
	logger    logger.ZapLogger
}

func NewCreditUseCase(store ledger.Store, c cache.Cache, cacheTTL time.Duration, publisher broker.Publisher, log logger.ZapLogger) credit.UseCase {
	return &creditUseCase{
		store:     store,
		cache:     c,
		cacheTTL:  cacheTTL,
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

func (uc *creditUseCase) CreateCustomer(ctx context.Context, input *dto.CreateCustomerInput) (*model.Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "Customer name is required")
	}
	if input.CreditLimit.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Credit limit must not be negative")
	}
	if !credit.WholeCents(input.CreditLimit) {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Credit limit must not have more than 2 decimal places")
	}

	now := time.Now()
	c := &model.Customer{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:          strings.TrimSpace(input.Name),
		Email:         optional(input.Email),
		Phone:         optional(input.Phone),
		Address:       optional(input.Address),
		CreditBalance: decimal.Zero,
		CreditLimit:   input.CreditLimit,
		IsActive:      true,
	}
	if err := uc.store.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	uc.logger.Info("customer created", zap.String("customer_id", c.ID))
	return c, nil
}

func (uc *creditUseCase) UpdateCustomer(ctx context.Context, input *dto.UpdateCustomerInput) (*model.Customer, error) {
	var updated *model.Customer
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		c, err := credit.LockCustomer(ctx, tx, input.ID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return apperror.Validation(apperror.CodeInvalidInput, "Customer name is required")
			}
			c.Name = strings.TrimSpace(*input.Name)
		}
		if input.Email != nil {
			c.Email = optional(*input.Email)
		}
		if input.Phone != nil {
			c.Phone = optional(*input.Phone)
		}
		if input.Address != nil {
			c.Address = optional(*input.Address)
		}
		if input.CreditLimit != nil {
			if input.CreditLimit.IsNegative() {
				return apperror.Validation(apperror.CodeInvalidAmount, "Credit limit must not be negative")
			}
			if !credit.WholeCents(*input.CreditLimit) {
				return apperror.Validation(apperror.CodeInvalidAmount, "Credit limit must not have more than 2 decimal places")
			}
			c.CreditLimit = *input.CreditLimit
		}
		if input.IsActive != nil {
			c.IsActive = *input.IsActive
		}
		c.UpdatedAt = time.Now()

		if err := tx.UpdateCustomer(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateSummary(ctx)
	return updated, nil
}

func (uc *creditUseCase) DeactivateCustomer(ctx context.Context, id string) error {
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		c, err := credit.LockCustomer(ctx, tx, id)
		if err != nil {
			return err
		}
		c.IsActive = false
		c.UpdatedAt = time.Now()
		return tx.UpdateCustomer(ctx, c)
	})
	if err != nil {
		return err
	}

	uc.logger.Info("customer deactivated", zap.String("customer_id", id))
	uc.invalidateSummary(ctx)
	return nil
}

func (uc *creditUseCase) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	c, err := uc.store.GetCustomer(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, apperror.NotFound(apperror.CodeCustomerNotFound, "Customer not found")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *creditUseCase) ListCustomers(ctx context.Context, filters *ledger.CustomerFilter) ([]model.Customer, int, error) {
	return uc.store.ListCustomers(ctx, filters)
}

func (uc *creditUseCase) RecordPayment(ctx context.Context, input *dto.RecordPaymentInput) (*dto.BalanceResult, error) {
	if !input.Amount.IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Payment amount must be positive")
	}
	if !credit.WholeCents(input.Amount) {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Payment amount must not have more than 2 decimal places")
	}

	description := input.Description
	if description == "" {
		description = "Credit payment"
	}

	var result dto.BalanceResult
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		c, err := credit.LockCustomer(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(c.CreditBalance) {
			return apperror.Conflict(apperror.CodePaymentExceedsBalance,
				"Payment amount exceeds credit balance of %s", c.CreditBalance.StringFixed(2)).
				With("balance", c.CreditBalance)
		}

		txn, err := credit.Post(ctx, tx, c, c.CreditBalance.Sub(input.Amount), &model.CreditTransaction{
			Amount:      input.Amount,
			Type:        model.CreditPayment,
			Description: description,
			Reference:   optional(input.Reference),
		})
		if err != nil {
			return err
		}
		result = dto.BalanceResult{Customer: c, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("credit payment recorded",
		zap.String("customer_id", input.CustomerID),
		zap.String("amount", input.Amount.StringFixed(2)),
		zap.String("balance_after", result.Transaction.BalanceAfter.StringFixed(2)),
		zap.String("user_id", input.UserID),
	)
	uc.afterChange(ctx, broker.EventCreditPayment, &result)
	return &result, nil
}

func (uc *creditUseCase) AdjustBalance(ctx context.Context, input *dto.AdjustBalanceInput) (*dto.BalanceResult, error) {
	if input.Amount.IsZero() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Adjustment amount must not be zero")
	}
	if !credit.WholeCents(input.Amount) {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Adjustment amount must not have more than 2 decimal places")
	}

	description := input.Description
	if description == "" {
		description = "Manual adjustment"
	}

	var result dto.BalanceResult
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		c, err := credit.LockCustomer(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}

		newBalance := c.CreditBalance.Add(input.Amount)
		if newBalance.IsNegative() {
			newBalance = decimal.Zero
		}

		txn, err := credit.Post(ctx, tx, c, newBalance, &model.CreditTransaction{
			Amount:      input.Amount.Abs(),
			Type:        model.CreditAdjustment,
			Description: description,
		})
		if err != nil {
			return err
		}
		result = dto.BalanceResult{Customer: c, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("credit balance adjusted",
		zap.String("customer_id", input.CustomerID),
		zap.String("amount", input.Amount.String()),
		zap.String("balance_after", result.Transaction.BalanceAfter.StringFixed(2)),
		zap.String("user_id", input.UserID),
	)
	uc.afterChange(ctx, broker.EventCreditAdjusted, &result)
	return &result, nil
}

func (uc *creditUseCase) afterChange(ctx context.Context, eventType string, result *dto.BalanceResult) {
	uc.invalidateSummary(ctx)

	event, err := broker.NewEvent(eventType, result)
	if err == nil {
		err = uc.publisher.Publish(ctx, result.Customer.ID, event)
	}
	if err != nil {
		uc.logger.Error("failed to publish credit event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (uc *creditUseCase) invalidateSummary(ctx context.Context) {
	if err := uc.cache.DeletePrefix(ctx, cache.PrefixCreditSummary); err != nil {
		uc.logger.Warn("failed to invalidate credit summary", zap.Error(err))
	}
}

func (uc *creditUseCase) History(ctx context.Context, customerID string) ([]model.CreditTransaction, error) {
	if _, err := uc.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	history, err := uc.store.ListCreditTransactions(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []model.CreditTransaction{}
	}
	return history, nil
}

func (uc *creditUseCase) Reconcile(ctx context.Context, customerID string) (*dto.ReconcileReport, error) {
	var report dto.ReconcileReport
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		c, err := tx.GetCustomerForUpdate(ctx, customerID)
		if errors.Is(err, ledger.ErrNotFound) {
			return apperror.NotFound(apperror.CodeCustomerNotFound, "Customer not found")
		}
		if err != nil {
			return err
		}
		history, err := tx.ListCreditTransactions(ctx, customerID)
		if err != nil {
			return err
		}

		replayed, mismatches := credit.Replay(history)
		drift := c.CreditBalance.Sub(replayed)
		report = dto.ReconcileReport{
			CustomerID:      customerID,
			StoredBalance:   c.CreditBalance,
			ReplayedBalance: replayed,
			Drift:           drift,
			Consistent:      drift.IsZero() && len(mismatches) == 0,
			Transactions:    len(history),
			Mismatches:      mismatches,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Consistent {
		uc.logger.Warn("credit balance drift detected",
			zap.String("customer_id", customerID),
			zap.String("stored", report.StoredBalance.StringFixed(2)),
			zap.String("replayed", report.ReplayedBalance.StringFixed(2)),
			zap.Int("mismatches", len(report.Mismatches)),
		)
	}
	return &report, nil
}

func (uc *creditUseCase) Summary(ctx context.Context) (*dto.CreditSummary, error) {
	var cached dto.CreditSummary
	if found, err := uc.cache.GetJSON(ctx, summaryKey, &cached); err == nil && found {
		return &cached, nil
	}

	customers, _, err := uc.store.ListCustomers(ctx, &ledger.CustomerFilter{HasCredit: true})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(customers, func(i, j int) bool {
		return customers[i].CreditBalance.GreaterThan(customers[j].CreditBalance)
	})

	total := decimal.Zero
	for _, c := range customers {
		total = total.Add(c.CreditBalance)
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	summary := &dto.CreditSummary{
		TotalOutstanding:    total,
		CustomersWithCredit: len(customers),
		Customers:           customers,
	}

	if err := uc.cache.SetJSON(ctx, summaryKey, summary, uc.cacheTTL); err != nil {
		uc.logger.Warn("failed to cache credit summary", zap.Error(err))
	}
	return summary, nil
}
