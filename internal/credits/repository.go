package credits

import (
	"context"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/internal/ledger"
	"carbon-scribe/project-portal/ledger-backend/internal/metrics"
	"carbon-scribe/project-portal/ledger-backend/internal/realtime"
	"carbon-scribe/project-portal/ledger-backend/pkg/kv"
)

const (
	collectionKey  = "carbon_credits"
	lastBatchIDKey = "carbon_credits_last_batch_id"
	statsKey       = "carbon_credits_stats"
)

// Repository defines the interface for credit persistence
type Repository interface {
	List(ctx context.Context) ([]CreditRecord, error)
	// Snapshot returns the last saved collection, loading it on first use.
	Snapshot(ctx context.Context) ([]CreditRecord, error)
	Get(ctx context.Context, id string) (CreditRecord, bool, error)
	Upsert(ctx context.Context, rec CreditRecord) error
	Update(ctx context.Context, rec CreditRecord) (bool, error)
	// Patch returns the record as stored, with its refreshed update timestamp.
	Patch(ctx context.Context, id string, fn func(CreditRecord) CreditRecord) (CreditRecord, bool, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error

	LastBatchID(ctx context.Context) (string, error)
	SetLastBatchID(ctx context.Context, batchID string) error
	CachedStats(ctx context.Context) (*PortfolioStats, error)
	SaveStats(ctx context.Context, stats PortfolioStats) error
}

// RepositoryImpl stores credits as one ledger collection and publishes a
// snapshot after each write.
type RepositoryImpl struct {
	store      kv.Store
	collection *ledger.Collection[CreditRecord]
	view       *ledger.View[CreditRecord]
}

// NewRepository creates a credit repository. pub may be nil.
func NewRepository(store kv.Store, pub ledger.Publisher, logger *zap.Logger, m *metrics.Metrics, now func() time.Time) *RepositoryImpl {
	collection := ledger.NewCollection[CreditRecord](store, ledger.Config{
		Key:     collectionKey,
		AuxKeys: []string{lastBatchIDKey, statsKey},
		Now:     now,
		Logger:  logger,
		Metrics: m,
	})
	view := ledger.NewView[CreditRecord](realtime.TopicCredits, pub)
	collection.OnSave(view.Refresh)

	return &RepositoryImpl{
		store:      store,
		collection: collection,
		view:       view,
	}
}

func (r *RepositoryImpl) List(ctx context.Context) ([]CreditRecord, error) {
	return r.collection.LoadAll(ctx)
}

func (r *RepositoryImpl) Snapshot(ctx context.Context) ([]CreditRecord, error) {
	if items, loaded := r.view.Items(); loaded {
		return items, nil
	}
	items, err := r.collection.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	r.view.Refresh(items)
	return items, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id string) (CreditRecord, bool, error) {
	return r.collection.ByID(ctx, id)
}

func (r *RepositoryImpl) Upsert(ctx context.Context, rec CreditRecord) error {
	return r.collection.Upsert(ctx, rec)
}

func (r *RepositoryImpl) Update(ctx context.Context, rec CreditRecord) (bool, error) {
	return r.collection.Update(ctx, rec)
}

func (r *RepositoryImpl) Patch(ctx context.Context, id string, fn func(CreditRecord) CreditRecord) (CreditRecord, bool, error) {
	return r.collection.Patch(ctx, id, fn)
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.collection.Delete(ctx, id)
}

func (r *RepositoryImpl) Clear(ctx context.Context) error {
	return r.collection.Clear(ctx)
}

func (r *RepositoryImpl) LastBatchID(ctx context.Context) (string, error) {
	var id string
	if _, err := ledger.GetAux(ctx, r.store, lastBatchIDKey, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RepositoryImpl) SetLastBatchID(ctx context.Context, batchID string) error {
	return ledger.SetAux(ctx, r.store, lastBatchIDKey, batchID)
}

func (r *RepositoryImpl) CachedStats(ctx context.Context) (*PortfolioStats, error) {
	var stats PortfolioStats
	ok, err := ledger.GetAux(ctx, r.store, statsKey, &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

func (r *RepositoryImpl) SaveStats(ctx context.Context, stats PortfolioStats) error {
	return ledger.SetAux(ctx, r.store, statsKey, stats)
}
