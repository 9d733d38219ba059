package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/db"
)

func newSQLiteRepo(t *testing.T) *GormRepo {
	t.Helper()
	gdb, err := db.OpenSQLite(context.Background(), db.MemoryDSN(uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return New(gdb, time.Second)
}

func newMockRepo(t *testing.T) (*GormRepo, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return New(gdb, 2*time.Second), mock
}

func seedProduct(t *testing.T, r *GormRepo, stock uint) *models.Product {
	t.Helper()
	ctx := context.Background()
	cat := &models.Category{Name: "cat-" + uuid.NewString()[:8]}
	require.NoError(t, r.CreateCategory(ctx, cat))
	p := &models.Product{
		CategoryID: cat.ID,
		Name:       "Phone",
		Brand:      "Acme",
		Model:      "X1",
		Price:      decimal.RequireFromString("19.99"),
		Stock:      stock,
	}
	require.NoError(t, r.CreateProduct(ctx, p))
	return p
}

func TestInTx_PostgresLocksProductsAndGuardsStock(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL lock_timeout = '2000ms'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id IN ($1,$2) ORDER BY id ASC FOR UPDATE`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "stock"}).AddRow(1, 5).AddRow(2, 1))
	mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1,"updated_at"=\$2 WHERE id = \$3 AND stock >= \$4`).
		WithArgs(2, sqlmock.AnyArg(), 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1,"updated_at"=\$2 WHERE id = \$3 AND stock >= \$4`).
		WithArgs(3, sqlmock.AnyArg(), 2, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	errGuard := errors.New("guard rejected")
	err := r.InTx(context.Background(), func(tx *GormRepo) error {
		products, err := tx.LockProducts(context.Background(), []uint{1, 2})
		require.NoError(t, err)
		require.Len(t, products, 2)

		ok, err := tx.DecrementStock(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.DecrementStock(context.Background(), 2, 3)
		require.NoError(t, err)
		assert.False(t, ok)
		return errGuard
	})
	require.ErrorIs(t, err, errGuard)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_PostgresLockTimeoutIsConflict(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1 LIMIT \$2 FOR UPDATE`).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	err := r.InTx(context.Background(), func(tx *GormRepo) error {
		_, err := tx.FindCart(context.Background(), uuid.New(), true)
		return err
	})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsConflict(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", gorm.ErrRecordNotFound, false},
		{"duplicated", gorm.ErrDuplicatedKey, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"serialization", fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "40001"}), true},
		{"fk violation", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsConflict(tc.err))
		})
	}
}

func TestEnsureCart_Idempotent(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	var first, second *models.Cart
	require.NoError(t, r.InTx(ctx, func(tx *GormRepo) error {
		var err error
		first, err = tx.EnsureCart(ctx, userID)
		return err
	}))
	require.NoError(t, r.InTx(ctx, func(tx *GormRepo) error {
		var err error
		second, err = tx.EnsureCart(ctx, userID)
		return err
	}))
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, r.DB.Model(&models.Cart{}).Where("user_id = ?", userID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCartItemUniquePerProduct(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	p := seedProduct(t, r, 5)

	cart, err := r.EnsureCart(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, r.CreateItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}))

	err = r.CreateItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 2})
	require.ErrorIs(t, err, ErrConflict)
}

func TestDecrementStock_SQLite(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	p := seedProduct(t, r, 2)

	ok, err := r.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
}

func TestCountItems(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	n, err := r.CountItems(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, n)

	a := seedProduct(t, r, 10)
	b := seedProduct(t, r, 10)
	cart, err := r.EnsureCart(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, r.CreateItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: a.ID, Quantity: 2}))
	require.NoError(t, r.CreateItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: b.ID, Quantity: 3}))

	n, err = r.CountItems(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestListProducts_Filters(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	inStock := seedProduct(t, r, 3)
	soldOut := seedProduct(t, r, 0)

	total, items, err := r.ListProducts(ctx, ProductFilter{InStockOnly: true, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, inStock.ID, items[0].ID)

	total, _, err = r.ListProducts(ctx, ProductFilter{Query: "acme", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	total, items, err = r.ListProducts(ctx, ProductFilter{CategoryID: &soldOut.CategoryID, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, soldOut.ID, items[0].ID)
	require.NotNil(t, items[0].Category)

	total, _, err = r.ListProducts(ctx, ProductFilter{IDs: []uint{}, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPurgeExpiredRefresh(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now()
	user := uuid.New()

	require.NoError(t, r.SaveRefresh(ctx, &models.RefreshToken{TokenHash: "old", UserID: user, JTI: "j-old", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, r.SaveRefresh(ctx, &models.RefreshToken{TokenHash: "new", UserID: user, JTI: "j-new", ExpiresAt: now.Add(time.Hour)}))

	n, err := r.PurgeExpiredRefresh(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = r.RefreshByJTI(ctx, "j-old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.RefreshByJTI(ctx, "j-new")
	assert.NoError(t, err)
}
