package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/repo"
)

var (
	ErrValidation          = errors.New("validation")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyCart           = errors.New("empty cart")
	ErrConflict            = errors.New("conflict")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type Shortage struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Requested uint   `json:"requested"`
	Available uint   `json:"available"`
}

// InsufficientStockError matches ErrInsufficientStock and names every
// product that could not be satisfied.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("product %d: requested %d, available %d", s.ProductID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Available is the stock of the first offending product.
func (e *InsufficientStockError) Available() uint {
	if len(e.Shortages) == 0 {
		return 0
	}
	return e.Shortages[0].Available
}

func insufficient(productID uint, name string, requested, available uint) error {
	return &InsufficientStockError{Shortages: []Shortage{{
		ProductID: productID,
		Name:      name,
		Requested: requested,
		Available: available,
	}}}
}

// infra wraps a persistence error. Lost races become ErrConflict; anything
// else stays an infrastructure error that matches no domain sentinel.
func infra(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomain(err) {
		return err
	}
	if repo.IsConflict(err) {
		return fmt.Errorf("%s: %w (%v)", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDomain(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotFound, ErrForbidden, ErrInsufficientStock,
		ErrEmptyCart, ErrConflict, ErrInvalidCredentials, ErrInvalidRefreshToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
