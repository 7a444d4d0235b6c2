// Package inventory owns on-hand stock: every change to a product's stock
// quantity goes through Deduct, Restock or ApplyAdjustment and is paired with
// a StockMovement in the same transaction.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Change describes one stock movement to record.
type Change struct {
	ProductID string
	Quantity  int
	Reason    model.MovementReason
	Notes     string
	UserID    string
}

// Deduct removes stock with a guarded update. It fails with
// INSUFFICIENT_STOCK when the product holds fewer than Quantity units at the
// moment of the write.
func Deduct(ctx context.Context, tx ledger.Tx, ch Change) (*model.Product, *model.StockMovement, error) {
	p, err := tx.DecrementStock(ctx, ch.ProductID, ch.Quantity)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return nil, nil, productNotFound(ch.ProductID)
	case errors.Is(err, ledger.ErrConditionFailed):
		return nil, nil, insufficientStock(ctx, tx, ch.ProductID, ch.Quantity)
	case err != nil:
		return nil, nil, fmt.Errorf("decrement stock: %w", err)
	}

	m, err := record(ctx, tx, ch, model.MovementOut)
	if err != nil {
		return nil, nil, err
	}
	return p, m, nil
}

// Restock adds stock back, e.g. on receipt of goods or a refund.
func Restock(ctx context.Context, tx ledger.Tx, ch Change) (*model.Product, *model.StockMovement, error) {
	p, err := tx.IncrementStock(ctx, ch.ProductID, ch.Quantity)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return nil, nil, productNotFound(ch.ProductID)
	case err != nil:
		return nil, nil, fmt.Errorf("increment stock: %w", err)
	}

	m, err := record(ctx, tx, ch, model.MovementIn)
	if err != nil {
		return nil, nil, err
	}
	return p, m, nil
}

// ApplyAdjustment applies a signed correction. Quantity in ch is the signed
// delta; the movement stores its magnitude.
func ApplyAdjustment(ctx context.Context, tx ledger.Tx, ch Change) (*model.Product, *model.StockMovement, error) {
	p, err := tx.ApplyStockDelta(ctx, ch.ProductID, ch.Quantity)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return nil, nil, productNotFound(ch.ProductID)
	case errors.Is(err, ledger.ErrConditionFailed):
		current, getErr := tx.GetProduct(ctx, ch.ProductID)
		if getErr != nil {
			return nil, nil, fmt.Errorf("get product: %w", getErr)
		}
		return nil, nil, apperror.StateInvariant(apperror.CodeNegativeStock, "Adjustment would result in negative stock").
			With("available", current.StockQuantity)
	case err != nil:
		return nil, nil, fmt.Errorf("apply stock delta: %w", err)
	}

	movementType := model.MovementIn
	if ch.Quantity < 0 {
		movementType = model.MovementOut
		ch.Quantity = -ch.Quantity
	}
	m, err := record(ctx, tx, ch, movementType)
	if err != nil {
		return nil, nil, err
	}
	return p, m, nil
}

func record(ctx context.Context, tx ledger.Tx, ch Change, t model.MovementType) (*model.StockMovement, error) {
	m := &model.StockMovement{
		ID:        uuid.New().String(),
		ProductID: ch.ProductID,
		Quantity:  ch.Quantity,
		Type:      t,
		Reason:    ch.Reason,
		UserID:    ch.UserID,
		CreatedAt: time.Now(),
	}
	if ch.Notes != "" {
		notes := ch.Notes
		m.Notes = &notes
	}
	if err := tx.InsertMovement(ctx, m); err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}
	return m, nil
}

func productNotFound(id string) error {
	return apperror.NotFound(apperror.CodeProductNotFound, "Product not found").With("product_id", id)
}

func insufficientStock(ctx context.Context, tx ledger.Tx, productID string, requested int) error {
	p, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	return apperror.Conflict(apperror.CodeInsufficientStock, "Insufficient stock for %s", p.Name).
		With("product_id", productID).
		With("available", p.StockQuantity).
		With("requested", requested)
}

// InvalidateViews drops every cached read that depends on stock levels.
func InvalidateViews(ctx context.Context, c cache.Cache, log logger.ZapLogger) {
	for _, prefix := range []string{cache.PrefixLowStock, cache.PrefixProducts} {
		if err := c.DeletePrefix(ctx, prefix); err != nil {
			log.Warn("failed to invalidate cache", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}
