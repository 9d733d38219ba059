package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

// EnsureCart inserts the user's cart unless it exists and returns it locked.
func (r *GormRepo) EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return r.FindCart(ctx, userID, true)
}

func (r *GormRepo) FindCart(ctx context.Context, userID uuid.UUID, lock bool) (*models.Cart, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if lock {
		q = q.Clauses(forUpdate)
	}
	var cart models.Cart
	if err := q.Take(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r *GormRepo) ListItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (r *GormRepo) FindItem(ctx context.Context, cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Take(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormRepo) GetItem(ctx context.Context, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).Preload("Product").Take(&item, itemID).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	return translate(r.DB.WithContext(ctx).Create(item).Error)
}

func (r *GormRepo) SetItemQuantity(ctx context.Context, itemID uint, qty uint) error {
	return translate(r.DB.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", qty).Error)
}

// DeleteItem deletes the item only if it belongs to cartID.
func (r *GormRepo) DeleteItem(ctx context.Context, cartID, itemID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) ClearItems(ctx context.Context, cartID uint) error {
	return translate(r.DB.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error)
}

// CountItems sums quantities in the user's cart, 0 when there is none.
func (r *GormRepo) CountItems(ctx context.Context, userID uuid.UUID) (uint, error) {
	var total int64
	err := r.DB.WithContext(ctx).
		Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Select("COALESCE(SUM(cart_items.quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, translate(err)
	}
	return uint(total), nil
}

func deleteItemsOfProducts(tx *gorm.DB, productIDs any) error {
	return tx.Where("product_id IN (?)", productIDs).Delete(&models.CartItem{}).Error
}
