package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	id, err := idParam(c)
	if err != nil {
		return badRequest(l, "get_product_failed", err.Error(), err)
	}

	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, product)
}

// GetProducts serves the storefront listing:
// ?page=&size=&category_id=&q=&in_stock=
func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_products")

	q := service.ProductQuery{
		Page:  parseIntDefault(c.QueryParam("page"), 1),
		Size:  parseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
		Query: c.QueryParam("q"),
	}
	if raw := c.QueryParam("category_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(l, "get_products_error", "category_id must be a positive integer", err)
		}
		id := uint(n)
		q.CategoryID = &id
	}
	if raw := c.QueryParam("in_stock"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(l, "get_products_error", "in_stock must be a boolean", err)
		}
		q.InStock = &b
	}

	page, err := h.Svc.ListProducts(ctx, q)
	if err != nil {
		return fail(l, "get_products_error", err)
	}

	l.Info("get_products_success", "total", page.Total)
	return c.JSON(http.StatusOK, transport.PageResponse{
		Data: page.Items,
		Meta: transport.NewMeta(page.Page, page.Size, page.Total),
	})
}

func (h *CatalogHTTP) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_categories")

	cats, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(l, "get_categories_error", err)
	}
	return c.JSON(http.StatusOK, cats)
}
