package model

import "time"

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

type MovementReason string

const (
	ReasonPurchase   MovementReason = "purchase"
	ReasonSale       MovementReason = "sale"
	ReasonReturnItem MovementReason = "return_item"
	ReasonDamaged    MovementReason = "damaged"
	ReasonTheft      MovementReason = "theft"
	ReasonAdjustment MovementReason = "adjustment"
	ReasonInitial    MovementReason = "initial"
)

func (r MovementReason) Valid() bool {
	switch r {
	case ReasonPurchase, ReasonSale, ReasonReturnItem, ReasonDamaged, ReasonTheft, ReasonAdjustment, ReasonInitial:
		return true
	}
	return false
}

// StockMovement is an append-only record of a change to Product.StockQuantity.
// Quantity is always a positive magnitude; Type carries the direction.
type StockMovement struct {
	ID        string         `db:"id" json:"id"`
	ProductID string         `db:"product_id" json:"product_id"`
	Quantity  int            `db:"quantity" json:"quantity"`
	Type      MovementType   `db:"type" json:"type"`
	Reason    MovementReason `db:"reason" json:"reason"`
	Notes     *string        `db:"notes" json:"notes"`
	UserID    string         `db:"user_id" json:"user_id"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Signed returns the quantity with the sign of its direction.
func (m *StockMovement) Signed() int {
	if m.Type == MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}
