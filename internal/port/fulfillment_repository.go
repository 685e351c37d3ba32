package port

import (
	"context"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

type FulfillmentRepository interface {
	// EnsureSchema creates the fulfillment outbox table when missing
	EnsureSchema(ctx context.Context) error

	// SaveFulfillment writes a dispatched fulfillment to the outbox
	SaveFulfillment(ctx context.Context, f domain.Fulfillment) error

	// GetFulfillment retrieves a fulfillment by ID, nil if it does not exist
	GetFulfillment(ctx context.Context, id string) (*domain.Fulfillment, error)
}
