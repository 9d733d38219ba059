package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	uid, err := userID(c)
	if err != nil {
		return err
	}
	view, err := h.Svc.CartView(ctx, uid)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Count(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.count")

	uid, err := userID(c)
	if err != nil {
		return err
	}
	n, err := h.Svc.ItemCount(ctx, uid)
	if err != nil {
		return fail(l, "cart_count_error", err)
	}
	return c.JSON(http.StatusOK, transport.CountResponse{Count: n})
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_error", "invalid body", err)
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.Svc.AddItem(ctx, uid, req.ProductID, qty)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	l.Info("add_item_success", "item_id", item.ID)
	return c.JSON(http.StatusCreated, item)
}

// UpdateItem handles the increase, decrease and set actions of a cart line.
func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	uid, err := userID(c)
	if err != nil {
		return err
	}
	itemID, err := idParam(c)
	if err != nil {
		return badRequest(l, "update_item_error", err.Error(), err)
	}

	var req transport.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_item_error", "invalid body", err)
	}

	step := 1
	if req.Quantity != nil {
		step = *req.Quantity
	}

	if (req.Action == transport.ActionIncrease || req.Action == transport.ActionDecrease) && step < 1 {
		return badRequest(l, "update_item_error", "quantity must be at least 1", nil)
	}

	var item *models.CartItem
	switch req.Action {
	case transport.ActionIncrease:
		item, err = h.Svc.AdjustItem(ctx, uid, itemID, step)
	case transport.ActionDecrease:
		item, err = h.Svc.AdjustItem(ctx, uid, itemID, -step)
	case transport.ActionSet, "":
		if req.Quantity == nil {
			return badRequest(l, "update_item_error", "quantity required", nil)
		}
		item, err = h.Svc.SetItemQuantity(ctx, uid, itemID, *req.Quantity)
	default:
		return badRequest(l, "update_item_error", "unknown action", nil)
	}
	if err != nil {
		return fail(l, "update_item_error", err)
	}

	if item == nil {
		l.Info("update_item_success", "deleted", true)
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	uid, err := userID(c)
	if err != nil {
		return err
	}
	itemID, err := idParam(c)
	if err != nil {
		return badRequest(l, "remove_item_error", err.Error(), err)
	}

	if err := h.Svc.RemoveItem(ctx, uid, itemID); err != nil {
		return fail(l, "remove_item_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	uid, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.ClearCart(ctx, uid); err != nil {
		return fail(l, "clear_cart_error", err)
	}

	l.Info("cart successfully cleared")
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	uid, err := userID(c)
	if err != nil {
		return err
	}
	receipt, err := h.Svc.Checkout(ctx, uid)
	if err != nil {
		return fail(l, "checkout_error", err)
	}
	return c.JSON(http.StatusCreated, receipt)
}
