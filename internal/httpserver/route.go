package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth    *AuthHTTP
	Catalog *CatalogHTTP
	Cart    *CartHTTP
	Orders  *OrderHTTP
	Admin   *AdminHTTP

	AuthMW *authmw.Middleware
	DB     Pinger

	// CSRF enables the double-submit check on /api/v1. Nil disables it.
	CSRF *csrf.Config
}

const apiPrefix = "/api/v1"

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.Ping(ctx); err != nil {
			logging.FromContext(ctx).Error("readiness_failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group(apiPrefix)
	if d.CSRF != nil {
		cfg := *d.CSRF
		cfg.SkipPaths = append(cfg.SkipPaths,
			apiPrefix+"/auth/register",
			apiPrefix+"/auth/login",
			apiPrefix+"/auth/refresh",
		)
		api.Use(csrf.Middleware(cfg))
	}

	api.POST("/auth/register", d.Auth.Register)
	api.POST("/auth/login", d.Auth.Login)
	api.POST("/auth/refresh", d.Auth.Refresh)
	api.POST("/auth/logout", d.Auth.LogOut, d.AuthMW.RequireAuth)

	api.GET("/products", d.Catalog.GetProducts)
	api.GET("/products/:id", d.Catalog.GetProduct)
	api.GET("/categories", d.Catalog.GetCategories)

	cart := api.Group("/cart", d.AuthMW.RequireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.GET("/count", d.Cart.Count)
	cart.POST("/items", d.Cart.AddItem)
	cart.PATCH("/items/:id", d.Cart.UpdateItem)
	cart.DELETE("/items/:id", d.Cart.RemoveItem)
	cart.DELETE("", d.Cart.Clear)
	cart.POST("/checkout", d.Cart.Checkout)

	api.GET("/orders", d.Orders.GetOrders, d.AuthMW.RequireAuth)

	admin := api.Group("/admin", d.AuthMW.RequireAdmin)
	admin.POST("/products", d.Admin.CreateProduct)
	admin.PATCH("/products/:id", d.Admin.PatchProduct)
	admin.DELETE("/products/:id", d.Admin.DeleteProduct)
	admin.POST("/categories", d.Admin.CreateCategory)
	admin.PATCH("/categories/:id", d.Admin.PatchCategory)
	admin.DELETE("/categories/:id", d.Admin.DeleteCategory)
}
