package handler

import (
	"net/http"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/auth"
	"github.com/fekuna/omnipos-store-service/internal/httpx"
	"github.com/fekuna/omnipos-store-service/internal/inventory"
	"github.com/fekuna/omnipos-store-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) ReceiveStock(c *gin.Context) {
	var req dto.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	res, err := h.uc.ReceiveStock(c.Request.Context(), &dto.ReceiveStockInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		UserID:    auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, res)
}

func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	res, err := h.uc.AdjustStock(c.Request.Context(), &dto.AdjustStockInput{
		ProductID: req.ProductID,
		Quantity:  *req.Quantity,
		Reason:    req.Reason,
		Notes:     req.Notes,
		UserID:    auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, res)
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var q dto.MovementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpx.BindError(c, err)
		return
	}
	page, pageSize := httpx.NormalizePage(q.Page, q.PageSize, 50)

	filters := &ledger.MovementFilter{
		ProductID: q.ProductID,
		Type:      model.MovementType(q.Type),
		StartDate: q.StartDate,
		Page:      page,
		PageSize:  pageSize,
	}
	if q.EndDate != nil {
		// end date is inclusive of the whole day
		end := q.EndDate.Add(24*time.Hour - time.Nanosecond)
		filters.EndDate = &end
	}

	items, total, err := h.uc.ListMovements(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	if items == nil {
		items = []model.StockMovement{}
	}
	httpx.JSON(c, http.StatusOK, httpx.NewPage(items, page, pageSize, total))
}

func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	items, err := h.uc.ListLowStock(c.Request.Context())
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, items)
}
