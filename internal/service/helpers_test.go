package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events/eventstest"
)

type testEnv struct {
	Repo    *repo.GormRepo
	Cart    *CartService
	Catalog *CatalogService
	Auth    *AuthService
	Orders  *OrderService
	Events  *eventstest.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.OpenSQLite(context.Background(), db.MemoryDSN(uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb, time.Second)
	rec := &eventstest.Recorder{}
	catalog := &CatalogService{Repo: r, Events: rec}
	return &testEnv{
		Repo:    r,
		Catalog: catalog,
		Cart:    &CartService{Repo: r, Catalog: catalog, Events: rec},
		Auth: &AuthService{
			Repo:          r,
			AccessSecret:  []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			Events:        rec,
		},
		Orders: &OrderService{Repo: r},
		Events: rec,
	}
}

func (env *testEnv) category(t *testing.T) *models.Category {
	t.Helper()
	c, err := env.Catalog.CreateCategory(context.Background(), "cat-"+uuid.NewString()[:8], "")
	require.NoError(t, err)
	return c
}

func (env *testEnv) product(t *testing.T, name, price string, stock uint) *models.Product {
	t.Helper()
	p, err := env.Catalog.CreateProduct(context.Background(), ProductInput{
		CategoryID: env.category(t).ID,
		Name:       name,
		Brand:      "Acme",
		Model:      name + "-1",
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
	})
	require.NoError(t, err)
	return p
}

func (env *testEnv) stock(t *testing.T, id uint) uint {
	t.Helper()
	p, err := env.Repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (env *testEnv) setStock(t *testing.T, id uint, stock uint) {
	t.Helper()
	_, err := env.Catalog.PatchProduct(context.Background(), id, ProductPatch{Stock: &stock})
	require.NoError(t, err)
}

func (env *testEnv) lines(t *testing.T, userID uuid.UUID) map[uint]uint {
	t.Helper()
	view, err := env.Cart.CartView(context.Background(), userID)
	require.NoError(t, err)
	out := make(map[uint]uint, len(view.Items))
	for _, l := range view.Items {
		out[l.Product.ID] = l.Quantity
	}
	return out
}
