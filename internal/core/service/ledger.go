package service

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

var (
	ErrInvalidTransaction    = errors.New("invalid inventory transaction")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// Unbounded is the effective cap of a product with no maximum level.
const Unbounded int64 = math.MaxInt64

const shardCount = 64

// stockEntry holds both ledger mappings for one product. The quantity and the
// cap are tracked with presence flags so an entry that was only looked up for
// a rejected operation is indistinguishable from an absent one.
type stockEntry struct {
	mu       sync.Mutex
	quantity int64
	stocked  bool
	maxLevel int64
	capped   bool
}

// shard guards a partition of the product index. Its lock is held only while
// finding or inserting an entry, never across a ledger operation.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*stockEntry
}

// Ledger is the in-memory authoritative store of quantities-on-hand and
// maximum levels. Operations on one product are serialized by that product's
// own mutex; operations on different products never wait on each other.
type Ledger struct {
	shards          [shardCount]*shard
	defaultMaxLevel int64
}

type LedgerOption func(*Ledger)

// WithDefaultMaxLevel bounds products that have no explicit maximum level.
// The default is applied when an Add is validated and is never written into
// the cap mapping. Non-positive values keep such products unbounded.
func WithDefaultMaxLevel(level int64) LedgerOption {
	return func(l *Ledger) {
		if level > 0 {
			l.defaultMaxLevel = level
		}
	}
}

func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{defaultMaxLevel: Unbounded}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string]*stockEntry)}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) shardFor(product string) *shard {
	h := fnv.New32a()
	h.Write([]byte(product))
	return l.shards[h.Sum32()%shardCount]
}

// lookup returns the entry for product or nil if it was never touched.
func (l *Ledger) lookup(product string) *stockEntry {
	s := l.shardFor(product)
	s.mu.RLock()
	e := s.entries[product]
	s.mu.RUnlock()
	return e
}

func (l *Ledger) entry(product string) *stockEntry {
	s := l.shardFor(product)
	s.mu.RLock()
	e, ok := s.entries[product]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[product]; !ok {
		e = &stockEntry{}
		s.entries[product] = e
	}
	return e
}

// Add increases the quantity-on-hand of product. It fails when quantity is
// not positive or when the result would exceed the product's maximum level.
func (l *Ledger) Add(product string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than 0 for adding inventory", ErrInvalidTransaction)
	}

	e := l.entry(product)
	e.mu.Lock()
	defer e.mu.Unlock()

	limit := l.defaultMaxLevel
	if e.capped {
		limit = e.maxLevel
	}
	// written as a subtraction so an unbounded cap cannot overflow
	if quantity > limit-e.quantity {
		return fmt.Errorf("%w: adding inventory exceeds maximum inventory level for product %q", ErrInvalidTransaction, product)
	}

	e.quantity += quantity
	e.stocked = true
	return nil
}

// Deduct removes quantity units of product from stock.
func (l *Ledger) Deduct(product string, quantity int64) error {
	return l.take(product, quantity, "deducting inventory")
}

// FulfillOrder removes stock for an order. The ledger treats it exactly like
// Deduct; it is kept separate because callers trigger it from order flows.
func (l *Ledger) FulfillOrder(product string, quantity int64) error {
	return l.take(product, quantity, "fulfilling orders")
}

func (l *Ledger) take(product string, quantity int64, action string) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than 0 for %s", ErrInvalidTransaction, action)
	}

	e := l.lookup(product)
	if e == nil {
		return fmt.Errorf("%w for product %q", ErrInsufficientInventory, product)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.quantity < quantity {
		return fmt.Errorf("%w for product %q", ErrInsufficientInventory, product)
	}
	e.quantity -= quantity
	return nil
}

// GetAvailable returns the quantity-on-hand of product, 0 when unknown.
func (l *Ledger) GetAvailable(product string) int64 {
	e := l.lookup(product)
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quantity
}

// SetMaxLevel overwrites the maximum level of product. Stock already above
// the new level is left as is; only later Add calls are checked against it.
func (l *Ledger) SetMaxLevel(product string, maxLevel int64) error {
	if maxLevel <= 0 {
		return fmt.Errorf("%w: maximum inventory level must be greater than 0", ErrInvalidTransaction)
	}

	e := l.entry(product)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.maxLevel = maxLevel
	e.capped = true
	return nil
}

// MaxLevel reports the explicit maximum level of product, if one was set.
func (l *Ledger) MaxLevel(product string) (int64, bool) {
	e := l.lookup(product)
	if e == nil {
		return 0, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxLevel, e.capped
}

// Snapshot copies every product that has a quantity or a maximum level,
// sorted by product key. Each entry is copied atomically; the snapshot as a
// whole is not a single point in time.
func (l *Ledger) Snapshot() []domain.StockLevel {
	type keyed struct {
		product string
		entry   *stockEntry
	}

	var all []keyed
	for _, s := range l.shards {
		s.mu.RLock()
		for product, e := range s.entries {
			all = append(all, keyed{product: product, entry: e})
		}
		s.mu.RUnlock()
	}

	levels := make([]domain.StockLevel, 0, len(all))
	for _, k := range all {
		k.entry.mu.Lock()
		if k.entry.stocked || k.entry.capped {
			levels = append(levels, domain.StockLevel{
				Product:     k.product,
				Quantity:    k.entry.quantity,
				MaxLevel:    k.entry.maxLevel,
				HasMaxLevel: k.entry.capped,
			})
		}
		k.entry.mu.Unlock()
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Product < levels[j].Product
	})
	return levels
}
