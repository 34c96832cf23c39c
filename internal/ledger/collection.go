// Package ledger persists whole collections of records under a single key of
// a kv.Store. Every mutation is a full read-modify-write of the collection.
//
// There is no locking: two concurrent mutations of the same collection can
// lose an update (last write wins). The store is meant for a single writer.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/internal/metrics"
	"carbon-scribe/project-portal/ledger-backend/pkg/kv"
)

// Record is implemented by the entity types stored in a Collection.
type Record[T any] interface {
	RecordID() string
	// Touched returns a copy carrying the given update timestamp.
	Touched(at time.Time) T
}

// Config configures a Collection
type Config struct {
	// Key is the kv key holding the serialized collection.
	Key string
	// AuxKeys are scalar keys owned by the collection and removed by Clear.
	AuxKeys []string
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Collection is an ordered, newest-first list of records.
type Collection[T Record[T]] struct {
	store   kv.Store
	key     string
	auxKeys []string
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
	onSave  func([]T)
}

// NewCollection creates a collection stored under cfg.Key
func NewCollection[T Record[T]](store kv.Store, cfg Config) *Collection[T] {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{
		store:   store,
		key:     cfg.Key,
		auxKeys: cfg.AuxKeys,
		now:     now,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// OnSave registers fn to receive the collection after every successful write,
// and an empty collection after Clear.
func (c *Collection[T]) OnSave(fn func([]T)) {
	c.onSave = fn
}

// Key returns the kv key of the collection
func (c *Collection[T]) Key() string {
	return c.key
}

// LoadAll returns the persisted records, most recently added first.
//
// A blob that cannot be decoded is treated as corrupt: it is deleted and an
// empty collection is returned. Only backend failures surface as errors.
func (c *Collection[T]) LoadAll(ctx context.Context) ([]T, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.key, err)
	}
	if !ok || len(raw) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn("Discarding corrupt ledger collection",
			zap.String("key", c.key),
			zap.Int("bytes", len(raw)),
			zap.Error(err))
		c.metrics.CorruptRecovery(c.key)
		if delErr := c.store.Delete(ctx, c.key); delErr != nil {
			c.logger.Error("Failed to delete corrupt ledger collection",
				zap.String("key", c.key), zap.Error(delErr))
		}
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save overwrites the whole collection with items.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	return c.save(ctx, items, "save")
}

func (c *Collection[T]) save(ctx context.Context, items []T, op string) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", c.key, err)
	}
	c.metrics.LedgerMutation(c.key, op)
	if c.onSave != nil {
		c.onSave(items)
	}
	return nil
}

// Upsert replaces the record with the same identifier at its current
// position, or prepends item when the identifier is new.
func (c *Collection[T]) Upsert(ctx context.Context, item T) error {
	items, err := c.LoadAll(ctx)
	if err != nil {
		return err
	}
	id := item.RecordID()
	for i := range items {
		if items[i].RecordID() == id {
			items[i] = item
			return c.save(ctx, items, "upsert")
		}
	}
	items = append([]T{item}, items...)
	return c.save(ctx, items, "upsert")
}

// Update replaces the stored record with item, refreshing its update
// timestamp. It reports false and writes nothing when the identifier is not
// present.
func (c *Collection[T]) Update(ctx context.Context, item T) (bool, error) {
	_, found, err := c.Patch(ctx, item.RecordID(), func(T) T { return item })
	return found, err
}

// Patch applies fn to the record with the given identifier and stores the
// result with a refreshed update timestamp. It returns the record as stored.
// Missing identifiers are a no-op reported as false.
func (c *Collection[T]) Patch(ctx context.Context, id string, fn func(T) T) (T, bool, error) {
	var zero T
	items, err := c.LoadAll(ctx)
	if err != nil {
		return zero, false, err
	}
	for i := range items {
		if items[i].RecordID() == id {
			items[i] = fn(items[i]).Touched(c.now())
			if err := c.save(ctx, items, "update"); err != nil {
				return zero, true, err
			}
			return items[i], true, nil
		}
	}
	return zero, false, nil
}

// Delete removes every record with the given identifier and persists the
// collection.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	items, err := c.LoadAll(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if item.RecordID() != id {
			kept = append(kept, item)
		}
	}
	return c.save(ctx, kept, "delete")
}

// Clear removes the collection and its auxiliary keys.
func (c *Collection[T]) Clear(ctx context.Context) error {
	keys := append([]string{c.key}, c.auxKeys...)
	if err := c.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c.key, err)
	}
	c.metrics.LedgerMutation(c.key, "clear")
	if c.onSave != nil {
		c.onSave([]T{})
	}
	return nil
}

// ByID returns the record with the given identifier.
func (c *Collection[T]) ByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	items, err := c.LoadAll(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, item := range items {
		if item.RecordID() == id {
			return item, true, nil
		}
	}
	return zero, false, nil
}

// Filter returns the records matching keep, preserving collection order.
func (c *Collection[T]) Filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	items, err := c.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// HasAny reports whether the collection holds at least one record.
func (c *Collection[T]) HasAny(ctx context.Context) (bool, error) {
	items, err := c.LoadAll(ctx)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}
