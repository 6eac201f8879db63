package repository

import (
	"context"
	"sync"

	"github.com/subcycle/subcycle/internal/domain/order"
	ierr "github.com/subcycle/subcycle/internal/errors"
)

// InMemoryOrderRepository is a thread-safe in-process order store. Orders
// and customers are owned by the commerce platform upstream; this store is
// the reference backing for single-process deployments and tests.
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
	lines  map[string]*order.Line
}

// NewInMemoryOrderRepository creates an empty order repository.
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]*order.Order),
		lines:  make(map[string]*order.Line),
	}
}

// Seed inserts an order and indexes its lines.
func (r *InMemoryOrderRepository) Seed(ord *order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[ord.ID] = ord
	for _, line := range ord.Lines {
		line.OrderID = ord.ID
		r.lines[line.ID] = line
	}
}

func (r *InMemoryOrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ord, ok := r.orders[id]
	if !ok {
		return nil, ierr.NewError("order not found").
			WithHintf("Order with ID %s was not found", id).
			WithReportableDetails(map[string]any{
				"order_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return ord, nil
}

func (r *InMemoryOrderRepository) FindLineByScheduleID(ctx context.Context, scheduleID string) (*order.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Exact membership in the correlation token. A schedule id that is a
	// substring of another id must not match.
	for _, line := range r.lines {
		if line.HasScheduleID(scheduleID) {
			return line, nil
		}
	}
	return nil, ierr.NewError("no order line for schedule").
		WithReportableDetails(map[string]any{
			"schedule_id": scheduleID,
		}).
		Mark(ierr.ErrNotFound)
}

func (r *InMemoryOrderRepository) FindLinesByIDs(ctx context.Context, ids []string) ([]*order.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]*order.Line, 0, len(ids))
	for _, id := range ids {
		if line, ok := r.lines[id]; ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (r *InMemoryOrderRepository) SaveCorrelationToken(ctx context.Context, orderLineID string, scheduleIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, ok := r.lines[orderLineID]
	if !ok {
		return ierr.NewError("order line not found").
			WithReportableDetails(map[string]any{
				"order_line_id": orderLineID,
			}).
			Mark(ierr.ErrNotFound)
	}
	line.ScheduleIDs = append([]string{}, scheduleIDs...)
	return nil
}
