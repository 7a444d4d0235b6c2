package dto

type ReceiveStockInput struct {
	ProductID string
	Quantity  int
	Notes     string
	UserID    string
}

type AdjustStockInput struct {
	ProductID string
	Quantity  int // signed
	Reason    string
	Notes     string
	UserID    string
}
