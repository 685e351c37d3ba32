package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/core/service"
	"github.com/rl1809/inventory-ledger/internal/port"
)

const defaultSaveTimeout = 5 * time.Second

// Dispatcher drains the fulfillment queue into the outbox. A fulfillment that
// cannot be written is compensated by returning its stock to the ledger.
type Dispatcher struct {
	repo        port.FulfillmentRepository
	ledger      *service.Ledger
	logger      *zap.Logger
	saveTimeout time.Duration
}

// NewDispatcher builds a Dispatcher. With a nil repo fulfillments are only
// logged, which is how the service runs without an outbox database.
func NewDispatcher(repo port.FulfillmentRepository, ledger *service.Ledger, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		repo:        repo,
		ledger:      ledger,
		logger:      logger,
		saveTimeout: defaultSaveTimeout,
	}
}

// Start runs workerCount workers until queue is closed.
func (d *Dispatcher) Start(workerCount int, queue <-chan domain.Fulfillment) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.Run(id, queue)
		}(i)
	}
	return &wg
}

func (d *Dispatcher) Run(id int, queue <-chan domain.Fulfillment) {
	logger := d.logger.With(zap.Int("worker", id))

	for f := range queue {
		if d.repo == nil {
			logger.Info("fulfillment dispatched",
				zap.String("fulfillment_id", f.ID),
				zap.String("product", f.Product),
				zap.Int64("quantity", f.Quantity),
			)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.saveTimeout)

		f.Status = domain.FulfillmentStatusDispatched
		f.UpdatedAt = time.Now()
		if err := d.repo.SaveFulfillment(ctx, f); err != nil {
			logger.Warn("failed to save fulfillment", zap.String("fulfillment_id", f.ID), zap.Error(err))

			// Rollback: return stock to the ledger
			if rollbackErr := d.ledger.Add(f.Product, f.Quantity); rollbackErr != nil {
				logger.Error("rollback failed",
					zap.String("fulfillment_id", f.ID),
					zap.String("product", f.Product),
					zap.Int64("quantity", f.Quantity),
					zap.Error(rollbackErr),
				)
			} else {
				logger.Info("rolled back stock", zap.String("fulfillment_id", f.ID))
			}
		} else {
			logger.Debug("saved fulfillment", zap.String("fulfillment_id", f.ID))
		}

		cancel()
	}
}
