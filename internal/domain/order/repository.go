package order

import (
	"context"
)

// Repository defines the interface for order data access. It doubles as the
// persistence lookup collaborator of the webhook reconciler: schedule-id and
// line-id resolution both go through here.
type Repository interface {
	Get(ctx context.Context, id string) (*Order, error)

	// FindLineByScheduleID returns the order line whose correlation token
	// contains the given schedule id, or ErrNotFound. Membership is exact,
	// not substring.
	FindLineByScheduleID(ctx context.Context, scheduleID string) (*Line, error)

	// FindLinesByIDs resolves order lines directly by id. Unknown ids are
	// skipped, not errors: webhooks may reference lines from other systems.
	FindLinesByIDs(ctx context.Context, ids []string) ([]*Line, error)

	// SaveCorrelationToken durably replaces the schedule-id list on the given
	// order line. Callers must hold the per-order write lock; the repository
	// itself does not serialize concurrent writers of one line.
	SaveCorrelationToken(ctx context.Context, orderLineID string, scheduleIDs []string) error
}
