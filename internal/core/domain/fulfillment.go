package domain

import "time"

type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusDispatched FulfillmentStatus = "dispatched"
	FulfillmentStatusFailed     FulfillmentStatus = "failed"
)

// Fulfillment is the hand-off record for an order whose stock has already
// been taken out of the ledger.
type Fulfillment struct {
	ID        string
	OrderRef  string // optional, caller supplied
	Product   string
	Quantity  int64
	Status    FulfillmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
