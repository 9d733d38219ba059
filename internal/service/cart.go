package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// ProductCatalog is what the cart needs from the catalog. tx is the
// caller's transaction.
type ProductCatalog interface {
	Get(ctx context.Context, tx *repo.GormRepo, productID uint) (*models.Product, error)
	DecrementStock(ctx context.Context, tx *repo.GormRepo, productID, amount uint) error
}

type CartService struct {
	Repo    *repo.GormRepo
	Catalog ProductCatalog
	Events  events.Publisher
}

type CartLine struct {
	ItemID       uint            `json:"item_id"`
	Product      models.Product  `json:"product"`
	Quantity     uint            `json:"quantity"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

type CartView struct {
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount uint            `json:"item_count"`
}

type ReceiptLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Receipt struct {
	OrderID   uint            `json:"order_id"`
	Items     []ReceiptLine   `json:"items"`
	ItemCount uint            `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

func (s *CartService) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart *models.Cart
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		cart, err = tx.EnsureCart(ctx, userID)
		return err
	})
	if err != nil {
		return nil, infra("get or create cart", err)
	}
	return cart, nil
}

// AddItem raises the quantity of productID by delta, creating the line when
// absent. A result above stock changes nothing.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, productID uint, delta int) (*models.CartItem, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add_item", "user_id", userID, "product_id", productID)

	if productID == 0 {
		return nil, fmt.Errorf("product_id is required: %w", ErrValidation)
	}
	if delta < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	var item *models.CartItem
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		product, err := s.Catalog.Get(ctx, tx, productID)
		if err != nil {
			return err
		}

		existing, err := tx.FindItem(ctx, cart.ID, productID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		proposed := uint64(delta)
		if existing != nil {
			proposed += uint64(existing.Quantity)
		}
		if proposed > uint64(product.Stock) {
			return insufficient(product.ID, product.Name, clampUint(proposed), product.Stock)
		}

		if existing != nil {
			if err := tx.SetItemQuantity(ctx, existing.ID, uint(proposed)); err != nil {
				return err
			}
			existing.Quantity = uint(proposed)
			item = existing
		} else {
			item = &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: uint(proposed)}
			if err := tx.CreateItem(ctx, item); err != nil {
				return err
			}
		}
		item.Product = product
		return nil
	})
	if err != nil {
		return nil, infra("add item", err)
	}

	l.Info("add_item_success", "quantity", item.Quantity)
	publish(ctx, s.Events, events.TopicCart, userID.String(), map[string]any{
		"type":       "cart_item_added",
		"user_id":    userID.String(),
		"product_id": productID,
		"quantity":   item.Quantity,
	})
	return item, nil
}

// SetItemQuantity sets the quantity of one of the user's items. A quantity
// of zero or less deletes the item and returns a nil item.
func (s *CartService) SetItemQuantity(ctx context.Context, userID uuid.UUID, itemID uint, qty int) (*models.CartItem, error) {
	return s.mutateItem(ctx, "cart.set_item", userID, itemID, func(current uint) int64 { return int64(qty) })
}

// AdjustItem moves the quantity by delta under the same rules as SetItemQuantity.
func (s *CartService) AdjustItem(ctx context.Context, userID uuid.UUID, itemID uint, delta int) (*models.CartItem, error) {
	if delta == 0 {
		return nil, fmt.Errorf("delta must not be zero: %w", ErrValidation)
	}
	return s.mutateItem(ctx, "cart.adjust_item", userID, itemID, func(current uint) int64 { return int64(current) + int64(delta) })
}

func (s *CartService) mutateItem(ctx context.Context, op string, userID uuid.UUID, itemID uint, next func(current uint) int64) (*models.CartItem, error) {
	l := logging.FromContext(ctx).With("svc", op, "user_id", userID, "item_id", itemID)

	var (
		item    *models.CartItem
		deleted bool
	)
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.FindCart(ctx, userID, true)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		found, err := tx.GetItem(ctx, itemID)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if cart == nil || found.CartID != cart.ID {
			return fmt.Errorf("cart item %d: %w", itemID, ErrForbidden)
		}

		qty := next(found.Quantity)
		if qty <= 0 {
			if _, err := tx.DeleteItem(ctx, cart.ID, found.ID); err != nil {
				return err
			}
			deleted = true
			return nil
		}

		product := found.Product
		if product == nil {
			if product, err = s.Catalog.Get(ctx, tx, found.ProductID); err != nil {
				return err
			}
		}
		if uint64(qty) > uint64(product.Stock) {
			return insufficient(product.ID, product.Name, clampUint(uint64(qty)), product.Stock)
		}

		if err := tx.SetItemQuantity(ctx, found.ID, uint(qty)); err != nil {
			return err
		}
		found.Quantity = uint(qty)
		item = found
		return nil
	})
	if err != nil {
		return nil, infra("update item", err)
	}

	event := map[string]any{"user_id": userID.String(), "item_id": itemID}
	if deleted {
		event["type"] = "cart_item_removed"
		l.Info("update_item_success", "deleted", true)
	} else {
		event["type"] = "cart_item_updated"
		event["quantity"] = item.Quantity
		l.Info("update_item_success", "quantity", item.Quantity)
	}
	publish(ctx, s.Events, events.TopicCart, userID.String(), event)
	return item, nil
}

// RemoveItem deletes one of the user's items. A missing item and an item
// of another user both report ErrNotFound.
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, itemID uint) error {
	l := logging.FromContext(ctx).With("svc", "cart.remove_item", "user_id", userID, "item_id", itemID)

	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.FindCart(ctx, userID, true)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		ok, err := tx.DeleteItem(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return infra("remove item", err)
	}

	l.Info("remove_item_success")
	publish(ctx, s.Events, events.TopicCart, userID.String(), map[string]any{
		"type":    "cart_item_removed",
		"user_id": userID.String(),
		"item_id": itemID,
	})
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		return tx.ClearItems(ctx, cart.ID)
	})
	if err != nil {
		logging.FromContext(ctx).Error("clear_cart_error", "user_id", userID, "error", err)
		return infra("clear cart", err)
	}

	publish(ctx, s.Events, events.TopicCart, userID.String(), map[string]any{
		"type":    "cart_cleared",
		"user_id": userID.String(),
	})
	return nil
}

// Checkout commits the cart: every line is validated against locked stock
// before anything is decremented, then stock drops, a receipt is written and
// the cart is emptied, all in one transaction.
func (s *CartService) Checkout(ctx context.Context, userID uuid.UUID) (*Receipt, error) {
	l := logging.FromContext(ctx).With("svc", "cart.checkout", "user_id", userID)

	var order models.Order
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.FindCart(ctx, userID, true)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}

		items, err := tx.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uint, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]*models.Product, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		var shortages []Shortage
		for _, it := range items {
			p, ok := byID[it.ProductID]
			if !ok {
				shortages = append(shortages, Shortage{ProductID: it.ProductID, Requested: it.Quantity})
				continue
			}
			if it.Quantity > p.Stock {
				shortages = append(shortages, Shortage{ProductID: p.ID, Name: p.Name, Requested: it.Quantity, Available: p.Stock})
			}
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{Shortages: shortages}
		}

		order = models.Order{UserID: userID, Status: models.OrderStatusCompleted, Total: decimal.Zero}
		for _, it := range items {
			p := byID[it.ProductID]
			if err := s.Catalog.DecrementStock(ctx, tx, p.ID, it.Quantity); err != nil {
				return err
			}
			line := p.LineTotal(it.Quantity)
			order.Items = append(order.Items, models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				UnitPrice: p.Price,
				Quantity:  it.Quantity,
				LineTotal: line,
			})
			order.ItemCount += it.Quantity
			order.Total = order.Total.Add(line)
		}

		if err := tx.CreateOrder(ctx, &order); err != nil {
			return err
		}
		return tx.ClearItems(ctx, cart.ID)
	})
	if err != nil {
		return nil, infra("checkout", err)
	}

	l.Info("checkout_success", "order_id", order.ID, "item_count", order.ItemCount, "total", order.Total.StringFixed(2))
	publish(ctx, s.Events, events.TopicOrder, userID.String(), map[string]any{
		"type":       "order_completed",
		"user_id":    userID.String(),
		"order_id":   order.ID,
		"item_count": order.ItemCount,
		"total":      order.Total.StringFixed(2),
	})
	return receiptOf(&order), nil
}

// CartView reads the cart without creating it.
func (s *CartService) CartView(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	view := &CartView{Items: []CartLine{}, Total: decimal.Zero}

	cart, err := s.Repo.FindCart(ctx, userID, false)
	if errors.Is(err, repo.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, infra("cart view", err)
	}

	items, err := s.Repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, infra("cart view", err)
	}
	for _, it := range items {
		if it.Product == nil {
			continue
		}
		sub := it.Product.LineTotal(it.Quantity)
		view.Items = append(view.Items, CartLine{
			ItemID:       it.ID,
			Product:      *it.Product,
			Quantity:     it.Quantity,
			LineSubtotal: sub,
		})
		view.Total = view.Total.Add(sub)
		view.ItemCount += it.Quantity
	}
	return view, nil
}

func (s *CartService) ItemCount(ctx context.Context, userID uuid.UUID) (uint, error) {
	n, err := s.Repo.CountItems(ctx, userID)
	if err != nil {
		return 0, infra("item count", err)
	}
	return n, nil
}

func receiptOf(o *models.Order) *Receipt {
	r := &Receipt{OrderID: o.ID, ItemCount: o.ItemCount, Total: o.Total, Items: make([]ReceiptLine, 0, len(o.Items))}
	for _, it := range o.Items {
		r.Items = append(r.Items, ReceiptLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	return r
}

func clampUint(v uint64) uint {
	const maxUint = ^uint(0)
	if v > uint64(maxUint) {
		return maxUint
	}
	return uint(v)
}
