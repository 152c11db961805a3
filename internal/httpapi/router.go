// Package httpapi monta o roteador gin com todos os handlers da loja.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/coupon"
	"github.com/matheusmosca/bookverse/internal/inventory"
	"github.com/matheusmosca/bookverse/internal/notification"
	"github.com/matheusmosca/bookverse/internal/orders"
)

// Handlers agrupa os handlers de cada módulo
type Handlers struct {
	Auth          *auth.Handler
	Catalog       *catalog.Handler
	Cart          *CartHandler
	Coupons       *coupon.Handler
	Orders        *orders.Handler
	Reports       *orders.ReportHandler
	Inventory     *inventory.Handler
	Notifications *notification.Handler
}

// NewRouter builds the engine. Role checks happen only in the group guards.
func NewRouter(serviceName string, sessions *auth.Middleware, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	api := r.Group("/api", sessions.Handle)
	{
		api.POST("/login", h.Auth.Login)
		api.POST("/logout", h.Auth.Logout)
		api.GET("/me", h.Auth.Me)

		api.GET("/books", h.Catalog.ListBooks)
		api.GET("/books/:id", h.Catalog.GetBook)
		api.GET("/coupons", h.Coupons.ListAvailable)

		api.GET("/cart", h.Cart.GetCart)
		api.DELETE("/cart", h.Cart.ClearCart)
		api.POST("/cart/items", h.Cart.AddItem)
		api.PUT("/cart/items/:bookID", h.Cart.UpdateItem)
		api.DELETE("/cart/items/:bookID", h.Cart.RemoveItem)
		api.POST("/cart/coupon", h.Cart.ApplyCoupon)
		api.DELETE("/cart/coupon", h.Cart.RemoveCoupon)
	}

	user := api.Group("", auth.RequireUser)
	{
		user.POST("/checkout", h.Orders.Checkout)
		user.GET("/orders", h.Orders.ListOrders)
		user.GET("/orders/:id", h.Orders.GetOrder)
		user.POST("/orders/:id/process-payment", h.Orders.ProcessPayment)
	}

	admin := api.Group("/admin", auth.RequireAdmin)
	{
		admin.GET("/orders", h.Orders.ListOrders)
		admin.GET("/orders/:id", h.Orders.GetOrder)
		admin.POST("/orders/:id/process-payment", h.Orders.ProcessPayment)
		admin.POST("/orders/:id/ship", h.Orders.Ship)
		admin.POST("/orders/:id/status", h.Orders.UpdateStatus)

		admin.GET("/dashboard", h.Reports.Dashboard)
		admin.GET("/dashboard/sales", h.Reports.Sales)
		admin.GET("/dashboard/top-sellers", h.Reports.TopSellers)
		admin.GET("/dashboard/customers", h.Reports.Customers)

		admin.POST("/inventory/import", h.Inventory.ImportStock)
		admin.POST("/inventory/export", h.Inventory.ExportStock)
		admin.POST("/inventory/adjust", h.Inventory.AdjustStock)
		admin.GET("/inventory/transactions", h.Inventory.ListTransactions)
		admin.GET("/inventory/transactions/export", h.Inventory.ExportTransactions)
		admin.GET("/inventory/transactions/:id", h.Inventory.GetTransaction)
		admin.GET("/inventory/low-stock", h.Catalog.LowStock)
		admin.GET("/inventory/out-of-stock", h.Catalog.OutOfStock)

		admin.POST("/books", h.Catalog.CreateBook)
		admin.DELETE("/books/:id", h.Catalog.DeleteBook)

		admin.POST("/coupons", h.Coupons.CreateCoupon)
		admin.GET("/coupons", h.Coupons.ListCoupons)

		admin.GET("/notifications", h.Notifications.List)
		admin.GET("/notifications/unread-count", h.Notifications.UnreadCount)
		admin.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		admin.POST("/notifications/:id/read", h.Notifications.MarkRead)
		admin.DELETE("/notifications/:id", h.Notifications.Delete)
	}

	return r
}
