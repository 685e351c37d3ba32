package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

// Mock IdempotencyStore
type mockIdempotencyStore struct {
	keys     map[string]bool
	released []string
	err      error
	mu       sync.Mutex
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{keys: make(map[string]bool)}
}

func (m *mockIdempotencyStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockIdempotencyStore) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

func newStockedService(t *testing.T, stock int64, queueSize int) (*OrderService, *Ledger, *mockIdempotencyStore) {
	t.Helper()
	ledger := NewLedger()
	if stock > 0 {
		require.NoError(t, ledger.Add("item-1", stock))
	}
	idem := newMockIdempotencyStore()
	return NewOrderService(ledger, idem, queueSize, nil), ledger, idem
}

func drain(svc *OrderService) {
	go func() {
		for range svc.GetFulfillmentQueue() {
		}
	}()
}

func TestFulfill_Success(t *testing.T) {
	svc, ledger, _ := newStockedService(t, 10, 100)
	defer svc.Close()
	drain(svc)

	f, err := svc.Fulfill(context.Background(), "order-1", "item-1", 1)
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, int64(9), ledger.GetAvailable("item-1"))
}

func TestFulfill_InsufficientStock(t *testing.T) {
	svc, _, idem := newStockedService(t, 0, 100)
	defer svc.Close()
	drain(svc)

	_, err := svc.Fulfill(context.Background(), "order-1", "item-1", 1)
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	// a rejected order can be retried once stock arrives
	assert.Equal(t, []string{"order:order-1"}, idem.released)
}

func TestFulfill_RetryAfterRestock(t *testing.T) {
	svc, ledger, _ := newStockedService(t, 0, 100)
	defer svc.Close()
	drain(svc)

	ctx := context.Background()
	_, err := svc.Fulfill(ctx, "order-1", "item-1", 2)
	require.ErrorIs(t, err, ErrInsufficientInventory)

	require.NoError(t, ledger.Add("item-1", 2))
	_, err = svc.Fulfill(ctx, "order-1", "item-1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ledger.GetAvailable("item-1"))
}

func TestFulfill_InvalidQuantity(t *testing.T) {
	svc, ledger, _ := newStockedService(t, 5, 100)
	defer svc.Close()

	_, err := svc.Fulfill(context.Background(), "", "item-1", 0)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
	assert.Equal(t, int64(5), ledger.GetAvailable("item-1"))
}

func TestFulfill_DuplicateRequest(t *testing.T) {
	svc, ledger, _ := newStockedService(t, 10, 100)
	defer svc.Close()
	drain(svc)

	// First request
	_, err := svc.Fulfill(context.Background(), "order-1", "item-1", 1)
	require.NoError(t, err)

	// Duplicate request with same order reference
	_, err = svc.Fulfill(context.Background(), "order-1", "item-1", 1)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// Stock should only be decremented once
	assert.Equal(t, int64(9), ledger.GetAvailable("item-1"))
}

func TestFulfill_WithoutOrderRefIsNotDeduplicated(t *testing.T) {
	svc, ledger, idem := newStockedService(t, 10, 100)
	defer svc.Close()
	drain(svc)

	for i := 0; i < 3; i++ {
		_, err := svc.Fulfill(context.Background(), "", "item-1", 1)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(7), ledger.GetAvailable("item-1"))
	assert.Empty(t, idem.keys)
}

func TestFulfill_IdempotencyStoreFailure(t *testing.T) {
	svc, ledger, idem := newStockedService(t, 10, 100)
	defer svc.Close()
	idem.err = errors.New("connection refused")

	_, err := svc.Fulfill(context.Background(), "order-1", "item-1", 1)
	assert.ErrorContains(t, err, "idempotency check failed")
	assert.Equal(t, int64(10), ledger.GetAvailable("item-1"))
}

func TestFulfill_BacklogReturnsStock(t *testing.T) {
	svc, ledger, idem := newStockedService(t, 10, 1)
	defer svc.Close()

	_, err := svc.Fulfill(context.Background(), "order-1", "item-1", 2)
	require.NoError(t, err)

	// queue is not drained, the second fulfillment cannot be handed off
	_, err = svc.Fulfill(context.Background(), "order-2", "item-1", 3)
	assert.ErrorIs(t, err, ErrDispatchBacklog)

	assert.Equal(t, int64(8), ledger.GetAvailable("item-1"))
	assert.Contains(t, idem.released, "order:order-2")
}

func TestFulfill_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	svc, ledger, _ := newStockedService(t, int64(initialStock), 100)
	defer svc.Close()
	drain(svc)

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := svc.Fulfill(context.Background(), "", "item-1", 1)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, ErrInsufficientInventory) {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	assert.Equal(t, int32(totalRequests-initialStock), failCount.Load())
	assert.Equal(t, int64(0), ledger.GetAvailable("item-1"))
}

func TestFulfill_Queued(t *testing.T) {
	svc, _, _ := newStockedService(t, 10, 100)

	_, err := svc.Fulfill(context.Background(), "order-1", "item-1", 2)
	require.NoError(t, err)

	// Read from queue
	f := <-svc.GetFulfillmentQueue()

	assert.Equal(t, "order-1", f.OrderRef)
	assert.Equal(t, "item-1", f.Product)
	assert.Equal(t, int64(2), f.Quantity)
	assert.Equal(t, domain.FulfillmentStatusPending, f.Status)
	assert.NotEmpty(t, f.ID)
	assert.False(t, f.CreatedAt.IsZero())

	svc.Close()
}
