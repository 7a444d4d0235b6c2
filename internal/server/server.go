// Package server assembles the HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/auth"
	creditH "github.com/fekuna/omnipos-store-service/internal/credit/handler"
	invH "github.com/fekuna/omnipos-store-service/internal/inventory/handler"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	prodH "github.com/fekuna/omnipos-store-service/internal/product/handler"
	saleH "github.com/fekuna/omnipos-store-service/internal/sale/handler"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Sale      *saleH.SaleHandler
	Inventory *invH.InventoryHandler
	Credit    *creditH.CreditHandler
	Product   *prodH.ProductHandler
}

type Options struct {
	AllowedOrigins []string
	Development    bool
}

func NewRouter(h *Handlers, verifier *auth.Verifier, log logger.ZapLogger, opts Options) *gin.Engine {
	if !opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	origins, credentials := opts.AllowedOrigins, true
	if len(origins) == 0 {
		origins, credentials = []string{"*"}, false
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: credentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(auth.Authenticate(verifier, log))

	managers := auth.Authorize(log, auth.RoleAdmin, auth.RoleManager)
	admins := auth.Authorize(log, auth.RoleAdmin)

	sales := api.Group("/sales")
	{
		sales.POST("", h.Sale.Checkout)
		sales.GET("", h.Sale.ListSales)
		sales.GET("/:id", h.Sale.GetSale)
		sales.POST("/:id/refund", h.Sale.Refund)
	}

	stock := api.Group("/stock")
	{
		stock.POST("/receive", managers, h.Inventory.ReceiveStock)
		stock.POST("/adjust", managers, h.Inventory.AdjustStock)
		stock.GET("/movements", h.Inventory.ListMovements)
		stock.GET("/low-stock", h.Inventory.ListLowStock)
	}

	customers := api.Group("/customers")
	{
		customers.GET("", h.Credit.ListCustomers)
		customers.POST("", h.Credit.CreateCustomer)
		customers.GET("/credit/summary", h.Credit.CreditSummary)
		customers.GET("/:id", h.Credit.GetCustomer)
		customers.PUT("/:id", h.Credit.UpdateCustomer)
		customers.DELETE("/:id", managers, h.Credit.DeleteCustomer)
		customers.POST("/:id/pay-credit", h.Credit.PayCredit)
		customers.POST("/:id/adjust-credit", admins, h.Credit.AdjustCredit)
		customers.GET("/:id/credit-history", h.Credit.CreditHistory)
		customers.GET("/:id/reconcile", h.Credit.Reconcile)
	}

	products := api.Group("/products")
	{
		products.GET("", h.Product.ListProducts)
		products.GET("/search", h.Product.SearchProducts)
		products.GET("/barcode/:barcode", h.Product.GetProductByBarcode)
		products.GET("/:id", h.Product.GetProduct)
		products.POST("", managers, h.Product.CreateProduct)
		products.PUT("/:id", managers, h.Product.UpdateProduct)
		products.DELETE("/:id", admins, h.Product.DeleteProduct)
	}

	return r
}
