package handler

import (
	"fmt"
	"net/http"

	"github.com/fekuna/omnipos-store-service/internal/auth"
	"github.com/fekuna/omnipos-store-service/internal/credit"
	"github.com/fekuna/omnipos-store-service/internal/credit/dto"
	"github.com/fekuna/omnipos-store-service/internal/httpx"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	uc     credit.UseCase
	logger logger.ZapLogger
}

func NewCreditHandler(uc credit.UseCase, log logger.ZapLogger) *CreditHandler {
	return &CreditHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *CreditHandler) ListCustomers(c *gin.Context) {
	var q dto.CustomerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpx.BindError(c, err)
		return
	}
	page, pageSize := httpx.NormalizePage(q.Page, q.PageSize, 50)

	items, total, err := h.uc.ListCustomers(c.Request.Context(), &ledger.CustomerFilter{
		Search:    q.Search,
		HasCredit: q.HasCredit,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	if items == nil {
		items = []model.Customer{}
	}
	httpx.JSON(c, http.StatusOK, httpx.NewPage(items, page, pageSize, total))
}

func (h *CreditHandler) GetCustomer(c *gin.Context) {
	customer, err := h.uc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, customer)
}

func (h *CreditHandler) CreateCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	customer, err := h.uc.CreateCustomer(c.Request.Context(), &dto.CreateCustomerInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		CreditLimit: req.CreditLimit,
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, customer)
}

func (h *CreditHandler) UpdateCustomer(c *gin.Context) {
	var req dto.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	customer, err := h.uc.UpdateCustomer(c.Request.Context(), &dto.UpdateCustomerInput{
		ID:          c.Param("id"),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		CreditLimit: req.CreditLimit,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, customer)
}

func (h *CreditHandler) DeleteCustomer(c *gin.Context) {
	if err := h.uc.DeactivateCustomer(c.Request.Context(), c.Param("id")); err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.Message(c, http.StatusOK, "Customer deleted", nil)
}

func (h *CreditHandler) PayCredit(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	res, err := h.uc.RecordPayment(c.Request.Context(), &dto.RecordPaymentInput{
		CustomerID:  c.Param("id"),
		Amount:      req.Amount,
		Description: req.Description,
		Reference:   req.Reference,
		UserID:      auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	msg := fmt.Sprintf("Payment of %s recorded. New balance: %s",
		req.Amount.StringFixed(2), res.Customer.CreditBalance.StringFixed(2))
	httpx.Message(c, http.StatusOK, msg, res)
}

func (h *CreditHandler) AdjustCredit(c *gin.Context) {
	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	res, err := h.uc.AdjustBalance(c.Request.Context(), &dto.AdjustBalanceInput{
		CustomerID:  c.Param("id"),
		Amount:      req.Amount,
		Description: req.Description,
		UserID:      auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, res)
}

func (h *CreditHandler) CreditHistory(c *gin.Context) {
	history, err := h.uc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, history)
}

func (h *CreditHandler) Reconcile(c *gin.Context) {
	report, err := h.uc.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, report)
}

func (h *CreditHandler) CreditSummary(c *gin.Context) {
	summary, err := h.uc.Summary(c.Request.Context())
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, summary)
}
