package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AddItemRequest struct {
	ProductID uint `json:"product_id"`
	// Quantity defaults to 1.
	Quantity *int `json:"quantity"`
}

const (
	ActionIncrease = "increase"
	ActionDecrease = "decrease"
	ActionSet      = "set"
)

type UpdateItemRequest struct {
	Action   string `json:"action"`
	Quantity *int   `json:"quantity"`
}

type CreateProductRequest struct {
	CategoryID  uint            `json:"category_id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Description string          `json:"description"`
	Specs       string          `json:"specs"`
	Price       decimal.Decimal `json:"price"`
	Stock       uint            `json:"stock"`
	ImageURL    string          `json:"image_url"`
}

func (r CreateProductRequest) Input() service.ProductInput {
	return service.ProductInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Brand:       r.Brand,
		Model:       r.Model,
		Description: r.Description,
		Specs:       r.Specs,
		Price:       r.Price,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
	}
}

type PatchProductRequest struct {
	CategoryID  *uint            `json:"category_id"`
	Name        *string          `json:"name"`
	Brand       *string          `json:"brand"`
	Model       *string          `json:"model"`
	Description *string          `json:"description"`
	Specs       *string          `json:"specs"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *uint            `json:"stock"`
	ImageURL    *string          `json:"image_url"`
}

func (r PatchProductRequest) Patch() service.ProductPatch {
	return service.ProductPatch{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Brand:       r.Brand,
		Model:       r.Model,
		Description: r.Description,
		Specs:       r.Specs,
		Price:       r.Price,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
	}
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PatchCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ErrorResponse struct {
	Error     string             `json:"error"`
	Retryable bool               `json:"retryable,omitempty"`
	Available *uint              `json:"available,omitempty"`
	Shortages []service.Shortage `json:"shortages,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type PageResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

func NewMeta(page, size int, total int64) Meta {
	return Meta{
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: util.TotalPages(total, size),
		HasPrev:    page > 1,
		HasNext:    int64(page*size) < total,
	}
}

type CountResponse struct {
	Count uint `json:"count"`
}
