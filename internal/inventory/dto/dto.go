package dto

import (
	"time"

	"github.com/fekuna/omnipos-store-service/internal/model"
)

type ReceiveStockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

type AdjustStockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Notes     string `json:"notes"`
}

type MovementQuery struct {
	ProductID string     `form:"product_id"`
	Type      string     `form:"type"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
}

type StockResult struct {
	Product  *model.Product       `json:"product"`
	Movement *model.StockMovement `json:"movement"`
}
