package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-store-service/internal/auth"
	"github.com/fekuna/omnipos-store-service/internal/httpx"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/fekuna/omnipos-store-service/internal/product"
	"github.com/fekuna/omnipos-store-service/internal/product/dto"
	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	p, err := h.uc.CreateProduct(c.Request.Context(), &dto.CreateProductInput{
		Name:          req.Name,
		SKU:           req.SKU,
		Barcode:       req.Barcode,
		Description:   req.Description,
		Price:         req.Price,
		Cost:          req.Cost,
		StockQuantity: req.StockQuantity,
		MinStockLevel: req.MinStockLevel,
		UserID:        auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, p)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.uc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, p)
}

func (h *ProductHandler) GetProductByBarcode(c *gin.Context) {
	p, err := h.uc.GetProductByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, p)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	var q dto.ProductQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpx.BindError(c, err)
		return
	}
	page, pageSize := httpx.NormalizePage(q.Page, q.PageSize, 50)

	products, total, err := h.uc.ListProducts(c.Request.Context(), &ledger.ProductFilter{
		Search:    q.Search,
		IsActive:  q.IsActive,
		LowStock:  q.LowStock,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, httpx.NewPage(products, page, pageSize, total))
}

func (h *ProductHandler) SearchProducts(c *gin.Context) {
	var q dto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpx.BindError(c, err)
		return
	}
	page, pageSize := httpx.NormalizePage(q.Page, q.PageSize, 20)

	products, total, err := h.uc.SearchProducts(c.Request.Context(), q.Q, page, pageSize)
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	httpx.JSON(c, http.StatusOK, httpx.NewPage(products, page, pageSize, total))
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindError(c, err)
		return
	}

	p, err := h.uc.UpdateProduct(c.Request.Context(), &dto.UpdateProductInput{
		ID:            c.Param("id"),
		Name:          req.Name,
		SKU:           req.SKU,
		Barcode:       req.Barcode,
		Description:   req.Description,
		Price:         req.Price,
		Cost:          req.Cost,
		MinStockLevel: req.MinStockLevel,
		IsActive:      req.IsActive,
	})
	if err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.JSON(c, http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.uc.DeactivateProduct(c.Request.Context(), c.Param("id")); err != nil {
		httpx.Error(c, h.logger, err)
		return
	}
	httpx.Message(c, http.StatusOK, "Product deleted", nil)
}
