package repositories

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock is returned by DecrementStock when the stock floor
	// would be crossed.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleWrite is returned by guarded updates when the record no longer
	// holds the value the caller read.
	ErrStaleWrite = errors.New("record changed since it was read")
)

// Store groups the repositories that share one transaction boundary.
type Store interface {
	Users() UserRepository
	Sellers() SellerRepository
	Products() ProductRepository
	Orders() OrderRepository

	// Transaction runs fn against a Store bound to a single transaction. Any
	// error returned by fn rolls back every write made through that Store.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
