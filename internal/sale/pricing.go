// Package sale prices carts and turns them into sales, and reverses sold
// items on refund.
package sale

import (
	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

// CartLine is one requested line before pricing.
type CartLine struct {
	ProductID string
	Quantity  int
	Discount  decimal.Decimal
}

type QuotedLine struct {
	Product  *model.Product
	Quantity int
	Price    decimal.Decimal // frozen as price_at_sale
	Discount decimal.Decimal
	Subtotal decimal.Decimal
}

type Quote struct {
	Lines    []QuotedLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// PriceCart prices lines against the given products, keyed by id. It checks
// existence and stock from that snapshot only; the authoritative stock check
// is the guarded decrement at write time.
func PriceCart(lines []CartLine, products map[string]*model.Product, saleDiscount decimal.Decimal) (*Quote, error) {
	if len(lines) == 0 {
		return nil, apperror.Validation(apperror.CodeEmptyCart, "Cart is empty")
	}
	saleDiscount = saleDiscount.Round(2)
	if saleDiscount.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidDiscount, "Discount must not be negative")
	}

	requested := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperror.Validation(apperror.CodeInvalidQuantity, "Quantity must be positive").
				With("product_id", l.ProductID)
		}
		if l.Discount.IsNegative() {
			return nil, apperror.Validation(apperror.CodeInvalidDiscount, "Item discount must not be negative").
				With("product_id", l.ProductID)
		}
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			return nil, apperror.NotFound(apperror.CodeProductNotFound, "Product not found: %s", l.ProductID).
				With("product_id", l.ProductID)
		}
		requested[l.ProductID] += l.Quantity
		if p.StockQuantity < requested[l.ProductID] {
			return nil, apperror.Conflict(apperror.CodeInsufficientStock,
				"Insufficient stock for %s. Available: %d", p.Name, p.StockQuantity).
				With("product_id", p.ID).
				With("available", p.StockQuantity).
				With("requested", requested[l.ProductID])
		}
	}

	q := &Quote{Subtotal: decimal.Zero, Discount: saleDiscount}
	for _, l := range lines {
		p := products[l.ProductID]
		discount := l.Discount.Round(2)
		gross := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if discount.GreaterThan(gross) {
			return nil, apperror.Validation(apperror.CodeInvalidDiscount, "Item discount exceeds line amount").
				With("product_id", p.ID)
		}
		sub := gross.Sub(discount)
		q.Lines = append(q.Lines, QuotedLine{
			Product:  p,
			Quantity: l.Quantity,
			Price:    p.Price,
			Discount: discount,
			Subtotal: sub,
		})
		q.Subtotal = q.Subtotal.Add(sub)
	}

	q.Total = q.Subtotal.Sub(saleDiscount)
	if q.Total.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidDiscount, "Discount exceeds sale subtotal")
	}
	return q, nil
}

// Settlement is the payment side of a sale.
type Settlement struct {
	AmountPaid decimal.Decimal
	Change     decimal.Decimal
}

// Settle applies the payment rules for method. Credit sales take no cash;
// everything else must cover the total.
func Settle(method model.PaymentMethod, total, amountPaid decimal.Decimal) (*Settlement, error) {
	if !method.Valid() {
		return nil, apperror.Validation(apperror.CodeInvalidPaymentMethod, "Unknown payment method %q", method)
	}
	if method == model.PaymentCredit {
		return &Settlement{AmountPaid: decimal.Zero, Change: decimal.Zero}, nil
	}

	amountPaid = amountPaid.Round(2)
	change := amountPaid.Sub(total)
	if change.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInsufficientPayment, "Insufficient payment amount").
			With("total", total).
			With("amount_paid", amountPaid)
	}
	return &Settlement{AmountPaid: amountPaid, Change: change}, nil
}
