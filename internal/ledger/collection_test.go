package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/project-portal/ledger-backend/pkg/kv"
)

type entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e entry) RecordID() string { return e.ID }

func (e entry) Touched(at time.Time) entry {
	e.UpdatedAt = at
	return e
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCollection(store kv.Store) *Collection[entry] {
	return NewCollection[entry](store, Config{
		Key:     "entries",
		AuxKeys: []string{"entries_last_id", "entries_stats"},
		Now:     func() time.Time { return fixedNow },
	})
}

func ids(items []entry) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestUpsertOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(kv.NewMemoryStore())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.Upsert(ctx, entry{ID: id}))
	}

	items, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(items))
}

func TestUpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(kv.NewMemoryStore())

	require.NoError(t, c.Upsert(ctx, entry{ID: "a", Name: "first"}))
	require.NoError(t, c.Upsert(ctx, entry{ID: "b"}))
	require.NoError(t, c.Upsert(ctx, entry{ID: "a", Name: "second"}))

	items, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(items))
	assert.Equal(t, "second", items[1].Name)
}

func TestUpdateRefreshesTimestamp(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(kv.NewMemoryStore())
	require.NoError(t, c.Upsert(ctx, entry{ID: "a", Name: "old"}))

	found, err := c.Update(ctx, entry{ID: "a", Name: "new"})
	require.NoError(t, err)
	assert.True(t, found)

	got, ok, err := c.ByID(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, fixedNow, got.UpdatedAt)
}

func TestUpdateMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	c := newTestCollection(store)
	require.NoError(t, c.Upsert(ctx, entry{ID: "a"}))
	before, _, _ := store.Get(ctx, "entries")

	found, err := c.Update(ctx, entry{ID: "missing"})
	require.NoError(t, err)
	assert.False(t, found)

	after, _, _ := store.Get(ctx, "entries")
	assert.Equal(t, before, after)
}

func TestPatchReturnsStoredRecord(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(kv.NewMemoryStore())
	require.NoError(t, c.Upsert(ctx, entry{ID: "a", Name: "old"}))

	patched, found, err := c.Patch(ctx, "a", func(e entry) entry {
		e.Name = "patched"
		return e
	})
	require.NoError(t, err)
	require.True(t, found)

	stored, ok, err := c.ByID(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, patched)
	assert.Equal(t, fixedNow, patched.UpdatedAt)

	missing, found, err := c.Patch(ctx, "missing", func(e entry) entry { return e })
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, missing)
}

func TestDeleteThenByID(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(kv.NewMemoryStore())
	require.NoError(t, c.Upsert(ctx, entry{ID: "a"}))
	require.NoError(t, c.Upsert(ctx, entry{ID: "b"}))

	require.NoError(t, c.Delete(ctx, "a"))

	_, ok, err := c.ByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "never-existed"))
	items, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(items))
}

func TestClearRemovesCollectionAndAuxKeys(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	c := newTestCollection(store)
	require.NoError(t, c.Upsert(ctx, entry{ID: "a"}))
	require.NoError(t, SetAux(ctx, store, "entries_last_id", "a"))

	require.NoError(t, c.Clear(ctx))

	items, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	hasAny, err := c.HasAny(ctx)
	require.NoError(t, err)
	assert.False(t, hasAny)
	assert.Empty(t, store.Keys())
}

func TestCorruptBlobIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	c := newTestCollection(store)
	require.NoError(t, store.Set(ctx, "entries", []byte("{not json")))

	items, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, ok, err := store.Get(ctx, "entries")
	require.NoError(t, err)
	assert.False(t, ok, "corrupt blob should be removed")

	require.NoError(t, c.Upsert(ctx, entry{ID: "a"}))
	items, err = c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(items))
}

func TestFilterAndOnSave(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(kv.NewMemoryStore())
	var saved [][]string
	c.OnSave(func(items []entry) { saved = append(saved, ids(items)) })

	require.NoError(t, c.Upsert(ctx, entry{ID: "a", Name: "mangrove"}))
	require.NoError(t, c.Upsert(ctx, entry{ID: "b", Name: "peat"}))
	require.NoError(t, c.Clear(ctx))

	assert.Equal(t, [][]string{{"a"}, {"b", "a"}, {}}, saved)

	require.NoError(t, c.Upsert(ctx, entry{ID: "c", Name: "mangrove"}))
	got, err := c.Filter(ctx, func(e entry) bool { return e.Name == "mangrove" })
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))
}

func TestAuxRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	var value string
	ok, err := GetAux(ctx, store, "last", &value)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetAux(ctx, store, "last", "BCR-2025-004"))
	ok, err = GetAux(ctx, store, "last", &value)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BCR-2025-004", value)
}

type recordingPublisher struct {
	topics []string
	sizes  []int
}

func (p *recordingPublisher) Publish(topic string, data any) {
	p.topics = append(p.topics, topic)
	p.sizes = append(p.sizes, len(data.([]entry)))
}

func TestViewPublishesSnapshots(t *testing.T) {
	pub := &recordingPublisher{}
	v := NewView[entry]("entries", pub)

	_, loaded := v.Items()
	assert.False(t, loaded)

	v.Refresh([]entry{{ID: "a"}, {ID: "b"}})
	items, loaded := v.Items()
	assert.True(t, loaded)
	assert.Equal(t, []string{"a", "b"}, ids(items))
	assert.Equal(t, []string{"entries"}, pub.topics)
	assert.Equal(t, []int{2}, pub.sizes)
}
