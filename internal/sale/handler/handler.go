package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/auth"
	"github.com/fekuna/omnipos-store-service/internal/httpx"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/fekuna/omnipos-store-service/internal/sale"
	"github.com/fekuna/omnipos-store-service/internal/sale/dto"
	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	uc     sale.UseCase
	logger logger.ZapLogger
}

func NewSaleHandler(uc sale.UseCase, log logger.ZapLogger) *SaleHandler {
	return &SaleHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *SaleHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	input := &dto.CheckoutInput{
		PaymentMethod: req.PaymentMethod,
		AmountPaid:    req.AmountPaid,
		Discount:      req.Discount,
		CustomerID:    req.CustomerID,
		Notes:         req.Notes,
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, dto.CheckoutItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Discount:  it.Discount,
		})
	}
	if u, ok := auth.FromContext(c.Request.Context()); ok {
		input.UserID = u.UserID
		input.Username = u.Username
		input.Role = u.Role
	}

	s, err := h.uc.Checkout(c.Request.Context(), input)
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, s)
}

func (h *SaleHandler) ListSales(c *gin.Context) {
	var q dto.SaleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpx.BindError(c, err)
		return
	}
	page, pageSize := httpx.NormalizePage(q.Page, q.PageSize, 50)

	filters := &ledger.SaleFilter{
		StartDate:  q.StartDate,
		CustomerID: q.CustomerID,
		Status:     model.SaleStatus(q.Status),
		Page:       page,
		PageSize:   pageSize,
	}
	if q.EndDate != nil {
		end := q.EndDate.Add(24*time.Hour - time.Nanosecond)
		filters.EndDate = &end
	}

	items, total, err := h.uc.ListSales(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	if items == nil {
		items = []model.Sale{}
	}
	httpx.JSON(c, http.StatusOK, httpx.NewPage(items, page, pageSize, total))
}

func (h *SaleHandler) GetSale(c *gin.Context) {
	s, err := h.uc.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, s)
}

func (h *SaleHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	// the body is optional; an empty one refunds everything left
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.BindError(c, err)
		return
	}

	s, err := h.uc.Refund(c.Request.Context(), &dto.RefundInput{
		SaleID:  c.Param("id"),
		ItemIDs: req.ItemIDs,
		UserID:  auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.Message(c, http.StatusOK, "Refund processed successfully", s)
}
