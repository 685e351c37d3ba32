package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrDispatchBacklog  = errors.New("fulfillment dispatch queue is full")
)

// OrderService fulfills orders against the ledger and hands every successful
// fulfillment to the dispatch queue.
type OrderService struct {
	ledger      *Ledger
	idempotency port.IdempotencyStore
	queue       chan domain.Fulfillment
	logger      *zap.Logger
}

// NewOrderService builds an OrderService. idempotency may be nil, in which
// case order references are not de-duplicated.
func NewOrderService(ledger *Ledger, idempotency port.IdempotencyStore, queueSize int, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		ledger:      ledger,
		idempotency: idempotency,
		queue:       make(chan domain.Fulfillment, queueSize),
		logger:      logger,
	}
}

// Fulfill takes quantity units of product out of the ledger for an order.
// A non-empty orderRef is accepted at most once until it is released; it is
// released again whenever the fulfillment is rejected.
func (s *OrderService) Fulfill(ctx context.Context, orderRef, product string, quantity int64) (domain.Fulfillment, error) {
	var key string
	if orderRef != "" && s.idempotency != nil {
		key = fmt.Sprintf("order:%s", orderRef)

		ok, err := s.idempotency.SetIdempotency(ctx, key)
		if err != nil {
			return domain.Fulfillment{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.Fulfillment{}, ErrDuplicateRequest
		}
	}

	if err := s.ledger.FulfillOrder(product, quantity); err != nil {
		s.release(ctx, key)
		return domain.Fulfillment{}, err
	}

	now := time.Now()
	f := domain.Fulfillment{
		ID:        uuid.NewString(),
		OrderRef:  orderRef,
		Product:   product,
		Quantity:  quantity,
		Status:    domain.FulfillmentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	select {
	case s.queue <- f:
		return f, nil
	default:
	}

	s.logger.Warn("dispatch queue full, returning stock",
		zap.String("fulfillment_id", f.ID),
		zap.String("product", product),
		zap.Int64("quantity", quantity),
	)
	if err := s.ledger.Add(product, quantity); err != nil {
		s.logger.Error("failed to return stock for undispatched fulfillment",
			zap.String("fulfillment_id", f.ID),
			zap.String("product", product),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)
	}
	s.release(ctx, key)
	return domain.Fulfillment{}, ErrDispatchBacklog
}

func (s *OrderService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.ReleaseIdempotency(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *OrderService) GetFulfillmentQueue() <-chan domain.Fulfillment {
	return s.queue
}

func (s *OrderService) Close() {
	close(s.queue)
}
