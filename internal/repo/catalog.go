package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

type ProductFilter struct {
	CategoryID  *uint
	Query       string
	IDs         []uint
	InStockOnly bool
	Offset      int
	Limit       int
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Take(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// LockProducts locks the rows in ascending id order so concurrent checkouts
// acquire locks in the same sequence.
func (r *GormRepo) LockProducts(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if err := r.DB.WithContext(ctx).
		Clauses(forUpdate).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, translate(err)
	}
	return products, nil
}

// DecrementStock subtracts n only while stock >= n. It reports false when
// the guard rejected the update.
func (r *GormRepo) DecrementStock(ctx context.Context, id uint, n uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, n).
		Update("stock", gorm.Expr("stock - ?", n))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.InStockOnly {
		q = q.Where("stock > 0")
	}
	if f.IDs != nil {
		q = q.Where("id IN ?", f.IDs)
	} else if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?", like, like, like)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, translate(err)
	}

	items := make([]models.Product, 0, f.Limit)
	if err := q.Preload("Category").
		Order("created_at DESC").Order("id DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&items).Error; err != nil {
		return 0, nil, translate(err)
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return translate(r.DB.WithContext(ctx).Omit("Category").Create(p).Error)
}

// LockProduct loads one product FOR UPDATE.
func (r *GormRepo) LockProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Clauses(forUpdate).Take(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// UpdateProduct writes only the given columns. Stock is not rewritten
// unless cols names it.
func (r *GormRepo) UpdateProduct(ctx context.Context, id uint, cols map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{ID: id}).Updates(cols)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes the product and every cart item referencing it.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	tx := r.DB.WithContext(ctx)
	if err := deleteItemsOfProducts(tx, []uint{id}); err != nil {
		return translate(err)
	}
	res := tx.Delete(&models.Product{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, translate(err)
	}
	return cats, nil
}

func (r *GormRepo) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.DB.WithContext(ctx).Take(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error)
}

func (r *GormRepo) SaveCategory(ctx context.Context, c *models.Category) error {
	return translate(r.DB.WithContext(ctx).Save(c).Error)
}

// DeleteCategory removes the category, its products and their cart items.
// It returns the ids of the deleted products.
func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) ([]uint, error) {
	tx := r.DB.WithContext(ctx)

	var productIDs []uint
	if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
		return nil, translate(err)
	}
	if len(productIDs) > 0 {
		if err := deleteItemsOfProducts(tx, productIDs); err != nil {
			return nil, translate(err)
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return nil, translate(err)
		}
	}

	res := tx.Delete(&models.Category{}, id)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return productIDs, nil
}
