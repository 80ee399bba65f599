package order

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order already exists")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)

	// Transition atomically moves the order from `from` to t.To and applies the
	// rest of t. It returns false without writing anything when the stored
	// status is no longer `from`, so at most one concurrent caller wins.
	Transition(ctx context.Context, id int64, from Status, t Transition) (bool, error)
}
