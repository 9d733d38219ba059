package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// ProductIndex is the optional full-text index behind the catalog query.
type ProductIndex interface {
	SearchIDs(ctx context.Context, q string, limit int) ([]uint, error)
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

const searchHitLimit = 500

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Index  ProductIndex
}

type ProductQuery struct {
	Page       int
	Size       int
	CategoryID *uint
	Query      string
	// InStock nil means true: sold-out products are hidden by default.
	InStock *bool
}

type ProductPage struct {
	Items []models.Product `json:"data"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Total int64            `json:"total"`
}

type ProductInput struct {
	CategoryID  uint
	Name        string
	Brand       string
	Model       string
	Description string
	Specs       string
	Price       decimal.Decimal
	Stock       uint
	ImageURL    string
}

type ProductPatch struct {
	CategoryID  *uint
	Name        *string
	Brand       *string
	Model       *string
	Description *string
	Specs       *string
	Price       *decimal.Decimal
	Stock       *uint
	ImageURL    *string
}

type CategoryPatch struct {
	Name        *string
	Description *string
}

func (s *CatalogService) Get(ctx context.Context, tx *repo.GormRepo, productID uint) (*models.Product, error) {
	p, err := tx.GetProduct(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DecrementStock must run inside the caller's transaction. The update is
// guarded by stock >= amount, so a lost race reports InsufficientStock.
func (s *CatalogService) DecrementStock(ctx context.Context, tx *repo.GormRepo, productID, amount uint) error {
	ok, err := tx.DecrementStock(ctx, productID, amount)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	p, err := s.Get(ctx, tx, productID)
	if err != nil {
		return err
	}
	return insufficient(p.ID, p.Name, amount, p.Stock)
}

func (s *CatalogService) GetProduct(ctx context.Context, productID uint) (*models.Product, error) {
	p, err := s.Get(ctx, s.Repo, productID)
	if err != nil {
		return nil, infra("get product", err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.list_products")

	offset, limit := util.Calculate(q.Page, q.Size)
	page := q.Page
	if page < 1 {
		page = 1
	}

	f := repo.ProductFilter{
		CategoryID:  q.CategoryID,
		Query:       strings.TrimSpace(q.Query),
		InStockOnly: q.InStock == nil || *q.InStock,
		Offset:      offset,
		Limit:       limit,
	}

	if f.Query != "" && s.Index != nil {
		ids, err := s.Index.SearchIDs(ctx, f.Query, searchHitLimit)
		if err != nil {
			l.Warn("search_index_error", "reason", "falling back to sql match", "error", err)
		} else {
			f.IDs = ids
		}
	}

	total, items, err := s.Repo.ListProducts(ctx, f)
	if err != nil {
		return nil, infra("list products", err)
	}
	return &ProductPage{Items: items, Page: page, Size: limit, Total: total}, nil
}

func validateProduct(p *models.Product) error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(p.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required: %w", strings.Join(missing, ", "), ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", ErrValidation)
	}
	if p.CategoryID == 0 {
		return fmt.Errorf("category_id required: %w", ErrValidation)
	}
	return nil
}

func (s *CatalogService) requireCategory(ctx context.Context, tx *repo.GormRepo, id uint) error {
	_, err := tx.GetCategory(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("category %d does not exist: %w", id, ErrValidation)
	}
	return err
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	p := &models.Product{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Brand:       strings.TrimSpace(in.Brand),
		Model:       strings.TrimSpace(in.Model),
		Description: in.Description,
		Specs:       in.Specs,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := s.requireCategory(ctx, tx, p.CategoryID); err != nil {
			return err
		}
		return tx.CreateProduct(ctx, p)
	})
	if err != nil {
		return nil, infra("create product", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	s.productChanged(ctx, "product_created", p)
	return p, nil
}

// PatchProduct updates the given fields under a row lock. Only patched
// columns are written, so a concurrent checkout's stock decrement survives.
func (s *CatalogService) PatchProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.patch_product", "product_id", id)

	var p *models.Product
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		p, err = tx.LockProduct(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		cols := applyProductPatch(p, patch)
		if err := validateProduct(p); err != nil {
			return err
		}
		if patch.CategoryID != nil {
			if err := s.requireCategory(ctx, tx, p.CategoryID); err != nil {
				return err
			}
		}
		if len(cols) == 0 {
			return nil
		}
		return tx.UpdateProduct(ctx, p.ID, cols)
	})
	if err != nil {
		return nil, infra("patch product", err)
	}

	l.Info("patch_product_success")
	s.productChanged(ctx, "product_updated", p)
	return p, nil
}

// applyProductPatch applies patch to p and returns the changed columns.
func applyProductPatch(p *models.Product, patch ProductPatch) map[string]any {
	cols := map[string]any{}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
		cols["category_id"] = p.CategoryID
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
		cols["name"] = p.Name
	}
	if patch.Brand != nil {
		p.Brand = strings.TrimSpace(*patch.Brand)
		cols["brand"] = p.Brand
	}
	if patch.Model != nil {
		p.Model = strings.TrimSpace(*patch.Model)
		cols["model"] = p.Model
	}
	if patch.Description != nil {
		p.Description = *patch.Description
		cols["description"] = p.Description
	}
	if patch.Specs != nil {
		p.Specs = *patch.Specs
		cols["specs"] = p.Specs
	}
	if patch.Price != nil {
		p.Price = patch.Price.Round(2)
		cols["price"] = p.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
		cols["stock"] = p.Stock
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
		cols["image_url"] = p.ImageURL
	}
	return cols
}

// DeleteProduct removes the product together with any cart items holding it.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product", "product_id", id)

	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		err := tx.DeleteProduct(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return infra("delete product", err)
	}

	l.Info("delete_product_success")
	s.productRemoved(ctx, id)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.Repo.ListCategories(ctx)
	if err != nil {
		return nil, infra("list categories", err)
	}
	return cats, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_category")

	c := &models.Category{Name: strings.TrimSpace(name), Description: description}
	if c.Name == "" {
		return nil, fmt.Errorf("name required: %w", ErrValidation)
	}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		return nil, infra("create category", err)
	}
	l.Info("create_category_success", "category_id", c.ID)
	return c, nil
}

func (s *CatalogService) PatchCategory(ctx context.Context, id uint, patch CategoryPatch) (*models.Category, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.patch_category", "category_id", id)

	var c *models.Category
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		c, err = tx.GetCategory(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
			if c.Name == "" {
				return fmt.Errorf("name required: %w", ErrValidation)
			}
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		return tx.SaveCategory(ctx, c)
	})
	if err != nil {
		return nil, infra("patch category", err)
	}
	l.Info("patch_category_success")
	return c, nil
}

// DeleteCategory removes the category, its products and their cart items.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_category", "category_id", id)

	var removed []uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		removed, err = tx.DeleteCategory(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return infra("delete category", err)
	}

	l.Info("delete_category_success", "products_removed", len(removed))
	for _, pid := range removed {
		s.productRemoved(ctx, pid)
	}
	return nil
}

func (s *CatalogService) productChanged(ctx context.Context, typ string, p *models.Product) {
	publish(ctx, s.Events, events.TopicProduct, strconv.FormatUint(uint64(p.ID), 10), map[string]any{
		"type":        typ,
		"product_id":  p.ID,
		"category_id": p.CategoryID,
		"stock":       p.Stock,
		"price":       p.Price.StringFixed(2),
	})
	if s.Index == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Index.IndexProduct(ictx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) productRemoved(ctx context.Context, id uint) {
	publish(ctx, s.Events, events.TopicProduct, strconv.FormatUint(uint64(id), 10), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})
	if s.Index == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Index.DeleteProduct(ictx, id); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "product_id", id, "error", err)
	}
}
