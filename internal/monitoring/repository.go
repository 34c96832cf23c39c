package monitoring

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
	collectionKey   = "monitoring_records"
	lastRecordIDKey = "monitoring_records_last_id"
)

// Repository defines the interface for monitoring persistence
type Repository interface {
	List(ctx context.Context) ([]MonitoringRecord, error)
	Get(ctx context.Context, id string) (MonitoringRecord, bool, error)
	Upsert(ctx context.Context, rec MonitoringRecord) error
	Update(ctx context.Context, rec MonitoringRecord) (bool, error)
	// Patch returns the record as stored, with its refreshed update timestamp.
	Patch(ctx context.Context, id string, fn func(MonitoringRecord) MonitoringRecord) (MonitoringRecord, bool, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error

	LastRecordID(ctx context.Context) (string, error)
	SetLastRecordID(ctx context.Context, id string) error
}

// RepositoryImpl stores monitoring records as one ledger collection and
// publishes a snapshot after each write. Reads always go to the store.
type RepositoryImpl struct {
	store      kv.Store
	collection *ledger.Collection[MonitoringRecord]
	view       *ledger.View[MonitoringRecord]
}

// NewRepository creates a monitoring repository. pub may be nil.
func NewRepository(store kv.Store, pub ledger.Publisher, logger *zap.Logger, m *metrics.Metrics, now func() time.Time) *RepositoryImpl {
	collection := ledger.NewCollection[MonitoringRecord](store, ledger.Config{
		Key:     collectionKey,
		AuxKeys: []string{lastRecordIDKey},
		Now:     now,
		Logger:  logger,
		Metrics: m,
	})
	view := ledger.NewView[MonitoringRecord](realtime.TopicMonitoring, pub)
	collection.OnSave(view.Refresh)

	return &RepositoryImpl{
		store:      store,
		collection: collection,
		view:       view,
	}
}

// List reads the collection from the store on every call.
func (r *RepositoryImpl) List(ctx context.Context) ([]MonitoringRecord, error) {
	return r.collection.LoadAll(ctx)
}

func (r *RepositoryImpl) Get(ctx context.Context, id string) (MonitoringRecord, bool, error) {
	return r.collection.ByID(ctx, id)
}

func (r *RepositoryImpl) Upsert(ctx context.Context, rec MonitoringRecord) error {
	return r.collection.Upsert(ctx, rec)
}

func (r *RepositoryImpl) Update(ctx context.Context, rec MonitoringRecord) (bool, error) {
	return r.collection.Update(ctx, rec)
}

func (r *RepositoryImpl) Patch(ctx context.Context, id string, fn func(MonitoringRecord) MonitoringRecord) (MonitoringRecord, bool, error) {
	return r.collection.Patch(ctx, id, fn)
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.collection.Delete(ctx, id)
}

func (r *RepositoryImpl) Clear(ctx context.Context) error {
	return r.collection.Clear(ctx)
}

func (r *RepositoryImpl) LastRecordID(ctx context.Context) (string, error) {
	var id string
	if _, err := ledger.GetAux(ctx, r.store, lastRecordIDKey, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RepositoryImpl) SetLastRecordID(ctx context.Context, id string) error {
	return ledger.SetAux(ctx, r.store, lastRecordIDKey, id)
}
