package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a non-owner attempts an owner-restricted operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientSupply is returned when a bid asks for more tokens than remain.
	ErrInsufficientSupply = errors.New("insufficient supply")

	// ErrNotFound is returned for unknown participant or item indices.
	ErrNotFound = errors.New("not found")

	// ErrNotRegistered is returned when an unregistered caller bids. It matches ErrNotFound.
	ErrNotRegistered = fmt.Errorf("caller not registered: %w", ErrNotFound)

	// ErrInvalidQuantity is returned for zero-quantity bids.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)
