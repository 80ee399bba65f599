package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
)

// OrderRepository keeps orders in process memory. It backs test mode and the
// handler tests; nothing survives a restart.
type OrderRepository struct {
	mu     sync.Mutex
	orders map[int64]*order.Order
}

var _ order.Repository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[int64]*order.Order)}
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	const op = "repository.memory.Create"

	if o.Status == "" {
		o.Status = order.StatusPending
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%s: invalid order: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("%s: order %d: %w", op, o.ID, order.ErrDuplicate)
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) Transition(_ context.Context, id int64, from order.Status, t order.Transition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Apply(t)
	return true, nil
}
