package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

var (
	// ErrNotFound is gorm.ErrRecordNotFound so callers need not import gorm.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrConflict marks a lost race: lock timeout, deadlock, serialization
	// failure, unique violation or a busy sqlite database.
	ErrConflict = errors.New("conflict")
)

type GormRepo struct {
	DB          *gorm.DB
	LockTimeout time.Duration
}

func New(db *gorm.DB, lockTimeout time.Duration) *GormRepo {
	return &GormRepo{DB: db, LockTimeout: lockTimeout}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InTx runs fn in one transaction. The repo handed to fn is bound to the
// transaction; fn must not use the outer repo.
func (r *GormRepo) InTx(ctx context.Context, fn func(tx *GormRepo) error) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" && r.LockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.LockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&GormRepo{DB: tx, LockTimeout: r.LockTimeout})
	})
	return translate(err)
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40P01", "40001", "23505":
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func translate(err error) error {
	if err == nil || errors.Is(err, ErrConflict) {
		return err
	}
	if IsConflict(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
