package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/credit"
	"github.com/fekuna/omnipos-store-service/internal/inventory"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/fekuna/omnipos-store-service/internal/sale"
	"github.com/fekuna/omnipos-store-service/internal/sale/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type saleUseCase struct {
	store       ledger.Store
	receipts    sale.ReceiptGenerator
	maxAttempts int
	cache       cache.Cache
	publisher   broker.Publisher
	logger      logger.ZapLogger
}

func NewSaleUseCase(store ledger.Store, receipts sale.ReceiptGenerator, maxAttempts int, c cache.Cache, publisher broker.Publisher, log logger.ZapLogger) sale.UseCase {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &saleUseCase{
		store:       store,
		receipts:    receipts,
		maxAttempts: maxAttempts,
		cache:       c,
		publisher:   publisher,
		logger:      log,
	}
}

// order is a validated and priced checkout, ready to be written.
type order struct {
	input      *dto.CheckoutInput
	method     model.PaymentMethod
	quote      *sale.Quote
	settlement *sale.Settlement
	customerID *string
}

func (uc *saleUseCase) Checkout(ctx context.Context, input *dto.CheckoutInput) (*model.Sale, error) {
	o, err := uc.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	var created *model.Sale
	for attempt := 1; ; attempt++ {
		receipt := uc.receipts.Next(time.Now())
		err = uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
			s, err := uc.persist(ctx, tx, o, receipt)
			if err != nil {
				return err
			}
			created = s
			return nil
		})
		if !errors.Is(err, ledger.ErrDuplicateReceipt) {
			break
		}
		if attempt >= uc.maxAttempts {
			return nil, apperror.Internal("Could not allocate a receipt number", err)
		}
		uc.logger.Warn("receipt number collision, retrying",
			zap.String("receipt_number", receipt),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Info("sale completed",
		zap.String("sale_id", created.ID),
		zap.String("receipt_number", created.ReceiptNumber),
		zap.String("total", created.Total.StringFixed(2)),
		zap.String("payment_method", string(created.PaymentMethod)),
		zap.Int("items", len(created.Items)),
		zap.String("user_id", input.UserID),
	)

	inventory.InvalidateViews(ctx, uc.cache, uc.logger)
	if o.method == model.PaymentCredit {
		if err := uc.cache.DeletePrefix(ctx, cache.PrefixCreditSummary); err != nil {
			uc.logger.Warn("failed to invalidate credit summary", zap.Error(err))
		}
	}
	uc.publish(ctx, broker.EventSaleCompleted, created)
	return created, nil
}

// prepare runs every check that does not need the transaction. The stock and
// credit limit checks here are advisory; both are repeated on the write.
func (uc *saleUseCase) prepare(ctx context.Context, input *dto.CheckoutInput) (*order, error) {
	if len(input.Items) == 0 {
		return nil, apperror.Validation(apperror.CodeEmptyCart, "Cart is empty")
	}
	method := model.PaymentMethod(input.PaymentMethod)
	if !method.Valid() {
		return nil, apperror.Validation(apperror.CodeInvalidPaymentMethod, "Unknown payment method %q", input.PaymentMethod)
	}

	ids := make([]string, 0, len(input.Items))
	seen := make(map[string]bool, len(input.Items))
	lines := make([]sale.CartLine, 0, len(input.Items))
	for _, it := range input.Items {
		lines = append(lines, sale.CartLine{ProductID: it.ProductID, Quantity: it.Quantity, Discount: it.Discount})
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	products, err := uc.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	quote, err := sale.PriceCart(lines, byID, input.Discount)
	if err != nil {
		return nil, err
	}

	o := &order{input: input, method: method, quote: quote}
	if method == model.PaymentCredit && input.CustomerID == "" {
		return nil, apperror.NotFound(apperror.CodeCustomerNotFound, "Customer is required for credit payments")
	}
	if input.CustomerID != "" {
		c, err := uc.store.GetCustomer(ctx, input.CustomerID)
		if errors.Is(err, ledger.ErrNotFound) || (err == nil && !c.IsActive) {
			return nil, apperror.NotFound(apperror.CodeCustomerNotFound, "Customer not found")
		}
		if err != nil {
			return nil, err
		}
		if method == model.PaymentCredit {
			if err := credit.CheckLimit(c, quote.Total); err != nil {
				return nil, err
			}
		}
		id := c.ID
		o.customerID = &id
	}

	o.settlement, err = sale.Settle(method, quote.Total, input.AmountPaid)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *saleUseCase) persist(ctx context.Context, tx ledger.Tx, o *order, receipt string) (*model.Sale, error) {
	in := o.input
	if in.UserID != "" {
		if err := tx.UpsertUser(ctx, &model.User{ID: in.UserID, Username: in.Username, Role: in.Role}); err != nil {
			return nil, err
		}
	}

	s := &model.Sale{
		ID:            uuid.New().String(),
		ReceiptNumber: receipt,
		Subtotal:      o.quote.Subtotal,
		Discount:      o.quote.Discount,
		Tax:           decimal.Zero,
		Total:         o.quote.Total,
		PaymentMethod: o.method,
		AmountPaid:    o.settlement.AmountPaid,
		Change:        o.settlement.Change,
		Status:        model.SaleCompleted,
		CustomerID:    o.customerID,
		UserID:        in.UserID,
		CreatedAt:     time.Now(),
	}
	if in.Notes != "" {
		notes := in.Notes
		s.Notes = &notes
	}
	if err := tx.InsertSale(ctx, s); err != nil {
		return nil, err
	}

	items := make([]model.SaleItem, 0, len(o.quote.Lines))
	for _, l := range o.quote.Lines {
		items = append(items, model.SaleItem{
			ID:          uuid.New().String(),
			SaleID:      s.ID,
			ProductID:   l.Product.ID,
			Quantity:    l.Quantity,
			PriceAtSale: l.Price,
			Discount:    l.Discount,
			Subtotal:    l.Subtotal,
		})
	}
	if err := tx.InsertSaleItems(ctx, items); err != nil {
		return nil, err
	}

	if o.method == model.PaymentCredit {
		_, _, err := credit.Charge(ctx, tx, credit.Purchase{
			CustomerID:    *o.customerID,
			SaleID:        s.ID,
			ReceiptNumber: receipt,
			Amount:        s.Total,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, it := range items {
		_, _, err := inventory.Deduct(ctx, tx, inventory.Change{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Reason:    model.ReasonSale,
			Notes:     "Sale " + receipt,
			UserID:    in.UserID,
		})
		if err != nil {
			return nil, err
		}
	}

	return tx.GetSale(ctx, s.ID)
}

func (uc *saleUseCase) Refund(ctx context.Context, input *dto.RefundInput) (*model.Sale, error) {
	var refunded *model.Sale
	var restocked int
	err := uc.store.WithinTx(ctx, func(tx ledger.Tx) error {
		s, err := tx.GetSaleForUpdate(ctx, input.SaleID)
		if errors.Is(err, ledger.ErrNotFound) {
			return apperror.NotFound(apperror.CodeSaleNotFound, "Sale not found")
		}
		if err != nil {
			return err
		}
		if s.Status == model.SaleRefunded {
			return apperror.Conflict(apperror.CodeAlreadyRefunded, "Sale already refunded")
		}

		doneIDs, err := tx.ListRefundedItemIDs(ctx, s.ID)
		if err != nil {
			return err
		}
		done := make(map[string]bool, len(doneIDs))
		for _, id := range doneIDs {
			done[id] = true
		}

		selected, err := selectItems(s.Items, done, input.ItemIDs)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			return apperror.Conflict(apperror.CodeAlreadyRefunded, "Sale already refunded")
		}

		now := time.Now()
		refunds := make([]model.SaleItemRefund, 0, len(selected))
		for _, it := range selected {
			_, _, err := inventory.Restock(ctx, tx, inventory.Change{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Reason:    model.ReasonReturnItem,
				Notes:     "Refund for " + s.ReceiptNumber,
				UserID:    input.UserID,
			})
			if err != nil {
				return err
			}
			refunds = append(refunds, model.SaleItemRefund{
				ID:         uuid.New().String(),
				SaleID:     s.ID,
				SaleItemID: it.ID,
				Quantity:   it.Quantity,
				UserID:     input.UserID,
				CreatedAt:  now,
			})
		}
		err = tx.InsertSaleItemRefunds(ctx, refunds)
		if errors.Is(err, ledger.ErrConditionFailed) {
			return apperror.Conflict(apperror.CodeItemAlreadyRefunded, "Item already refunded")
		}
		if err != nil {
			return err
		}

		status := model.SalePartialRefund
		if len(done)+len(selected) == len(s.Items) {
			status = model.SaleRefunded
		}
		if err := tx.UpdateSaleStatus(ctx, s.ID, status); err != nil {
			return err
		}

		refunded, err = tx.GetSale(ctx, s.ID)
		restocked = len(selected)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("sale refunded",
		zap.String("sale_id", refunded.ID),
		zap.String("receipt_number", refunded.ReceiptNumber),
		zap.String("status", string(refunded.Status)),
		zap.Int("items", restocked),
		zap.String("user_id", input.UserID),
	)

	inventory.InvalidateViews(ctx, uc.cache, uc.logger)
	uc.publish(ctx, broker.EventSaleRefunded, refunded)
	return refunded, nil
}

// selectItems resolves the requested item ids against the sale. No ids means
// every item that has not been refunded yet.
func selectItems(items []model.SaleItem, done map[string]bool, ids []string) ([]model.SaleItem, error) {
	if len(ids) == 0 {
		var selected []model.SaleItem
		for _, it := range items {
			if !done[it.ID] {
				selected = append(selected, it)
			}
		}
		return selected, nil
	}

	byID := make(map[string]model.SaleItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	picked := make(map[string]bool, len(ids))
	selected := make([]model.SaleItem, 0, len(ids))
	for _, id := range ids {
		if picked[id] {
			continue
		}
		it, ok := byID[id]
		if !ok {
			return nil, apperror.Validation(apperror.CodeInvalidItems, "Item does not belong to this sale").
				With("item_id", id)
		}
		if done[id] {
			return nil, apperror.Conflict(apperror.CodeItemAlreadyRefunded, "Item already refunded").
				With("item_id", id)
		}
		picked[id] = true
		selected = append(selected, it)
	}
	return selected, nil
}

func (uc *saleUseCase) publish(ctx context.Context, eventType string, s *model.Sale) {
	event, err := broker.NewEvent(eventType, s)
	if err == nil {
		err = uc.publisher.Publish(ctx, s.ID, event)
	}
	if err != nil {
		uc.logger.Error("failed to publish sale event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (uc *saleUseCase) GetSale(ctx context.Context, id string) (*model.Sale, error) {
	s, err := uc.store.GetSale(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, apperror.NotFound(apperror.CodeSaleNotFound, "Sale not found")
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (uc *saleUseCase) ListSales(ctx context.Context, filters *ledger.SaleFilter) ([]model.Sale, int, error) {
	if filters.Status != "" {
		switch filters.Status {
		case model.SaleCompleted, model.SaleRefunded, model.SalePartialRefund:
		default:
			return nil, 0, apperror.Validation(apperror.CodeInvalidInput, "Unknown sale status %q", filters.Status)
		}
	}
	return uc.store.ListSales(ctx, filters)
}
