package domain

import "errors"

var (
	// ErrCorruptState marks a persisted cart that could not be decoded.
	ErrCorruptState = errors.New("corrupt cart state")
	// ErrPersistenceRead marks a persisted cart that could not be read; the
	// cart refuses mutations until a load succeeds.
	ErrPersistenceRead = errors.New("cart persistence read failed")
	// ErrPersistenceWrite marks a rejected storage write (quota, disabled storage).
	ErrPersistenceWrite = errors.New("cart persistence write failed")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrQuantityLimit    = errors.New("quantity exceeds the per-line limit")
	ErrInvalidProduct   = errors.New("product id must be positive")
	ErrItemNotFound     = errors.New("item not found in cart")
	// ErrUnknownProduct marks a line whose product is gone from the catalog.
	ErrUnknownProduct = errors.New("product not in catalog")
)
