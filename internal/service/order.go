package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
)

type OrderService struct {
	Repo *repo.GormRepo
}

type OrderPage struct {
	Items []models.Order `json:"data"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Total int64          `json:"total"`
}

// ListOrders returns the user's receipts, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page, size int) (*OrderPage, error) {
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}
	total, orders, err := s.Repo.ListOrders(ctx, userID, offset, limit)
	if err != nil {
		return nil, infra("list orders", err)
	}
	return &OrderPage{Items: orders, Page: page, Size: limit, Total: total}, nil
}
