package trading

import (
	"errors"
)

var (
	ErrInvalidOrder        = errors.New("invalid order")
	ErrNotTradable         = errors.New("instrument is not tradable now")
	ErrInvalidVolume       = errors.New("invalid lot size")
	ErrPriceRequired       = errors.New("price is required for pending orders")
	ErrInvalidOrderPrice   = errors.New("invalid order price")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyClosed       = errors.New("position is already closed")
	ErrNotPending          = errors.New("order is not pending")
	ErrNotFound            = errors.New("not found")
	ErrPersistenceConflict = errors.New("concurrent modification, try again")
)

type Category string

const (
	CategoryValidation Category = "validation_error"
	CategoryDomainRule Category = "domain_rule_violation"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "persistence_conflict"
	CategoryInternal   Category = "internal"
)

var categories = []struct {
	err      error
	category Category
}{
	{ErrInvalidOrder, CategoryValidation},
	{ErrPriceRequired, CategoryValidation},
	{ErrNotTradable, CategoryDomainRule},
	{ErrInvalidVolume, CategoryDomainRule},
	{ErrInvalidOrderPrice, CategoryDomainRule},
	{ErrInsufficientBalance, CategoryDomainRule},
	{ErrAlreadyClosed, CategoryDomainRule},
	{ErrNotPending, CategoryDomainRule},
	{ErrNotFound, CategoryNotFound},
	{ErrPersistenceConflict, CategoryConflict},
}

// CategoryOf classifies an engine error. Anything unknown is internal.
func CategoryOf(err error) Category {
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.category
		}
	}
	return CategoryInternal
}
