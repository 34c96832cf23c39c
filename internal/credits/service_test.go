package credits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carbon-scribe/project-portal/ledger-backend/internal/blockchain"
	"carbon-scribe/project-portal/ledger-backend/internal/prediction"
	"carbon-scribe/project-portal/ledger-backend/pkg/kv"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(topic string, data any) {
	p.topics = append(p.topics, topic)
}

func newTestService(t *testing.T) (*Service, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	now := func() time.Time { return fixedNow }
	repo := NewRepository(store, nil, nil, nil, now)
	svc := NewService(repo, nil, nil, nil)
	svc.now = now
	return svc, store
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, CreditRecord{ProjectID: "p1", ProjectName: "Sundarbans", Quantity: 100, PricePerUnit: 12.5, TotalValue: 1})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "BCR-2025-001", rec.BatchID)
	assert.Equal(t, StatusPendingVerification, rec.Status)
	assert.Equal(t, 1250.0, rec.TotalValue)
	assert.Equal(t, fixedNow, rec.IssueDate)
	assert.Equal(t, fixedNow, rec.CreatedAt)

	second, err := svc.Create(ctx, CreditRecord{ProjectID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "BCR-2025-002", second.BatchID)

	last, err := svc.LastBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BCR-2025-002", last)

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestCreateWithExistingIDReplacesInPlace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreditRecord{ID: "a", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreditRecord{ID: "b", Quantity: 2})
	require.NoError(t, err)

	replaced, err := svc.Create(ctx, CreditRecord{ID: "a", BatchID: first.BatchID, Quantity: 10, PricePerUnit: 2})
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, replaced.CreatedAt)

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, 20.0, all[1].TotalValue)
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreditRecord{Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreditRecord{Status: "minted"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, CreditRecord{ID: "a", Quantity: 1, PricePerUnit: 1})
	require.NoError(t, err)

	rec.Quantity = 4
	updated, err := svc.Update(ctx, rec)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.TotalValue)

	before, _, _ := store.Get(ctx, collectionKey)
	updated, err = svc.Update(ctx, CreditRecord{ID: "missing"})
	require.NoError(t, err)
	assert.False(t, updated)
	after, _, _ := store.Get(ctx, collectionKey)
	assert.Equal(t, before, after)
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, rec := range []CreditRecord{
		{ID: "1", ProjectID: "p1", ProjectName: "Sundarbans Mangrove", Status: StatusAvailable},
		{ID: "2", ProjectID: "p2", ProjectName: "Kenya Forest", Status: StatusRetired},
		{ID: "3", ProjectID: "p1", ProjectName: "Sundarbans Mangrove", Status: StatusRetired},
	} {
		_, err := svc.Create(ctx, rec)
		require.NoError(t, err)
	}

	byProject, err := svc.List(ctx, Filter{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	retired, err := svc.List(ctx, Filter{ProjectID: "p1", Status: StatusRetired})
	require.NoError(t, err)
	require.Len(t, retired, 1)
	assert.Equal(t, "3", retired[0].ID)

	searched, err := svc.List(ctx, Filter{Query: "kenya"})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "2", searched[0].ID)
}

func TestUpdateStatusStampsDates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreditRecord{ID: "a"})
	require.NoError(t, err)

	rec, err := svc.UpdateStatus(ctx, "a", StatusRetired)
	require.NoError(t, err)
	assert.Equal(t, StatusRetired, rec.Status)
	require.NotNil(t, rec.RetirementDate)
	assert.Equal(t, fixedNow, *rec.RetirementDate)

	_, err = svc.UpdateStatus(ctx, "missing", StatusVerified)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateStatus(ctx, "a", "bogus")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatusReturnsStoredTimestamp(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreditRecord{ID: "a"})
	require.NoError(t, err)

	later := fixedNow.Add(time.Minute)
	svc.repo = NewRepository(store, nil, nil, nil, func() time.Time { return later })

	rec, err := svc.UpdateStatus(ctx, "a", StatusVerified)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, later, rec.UpdatedAt)
	assert.Equal(t, stored.UpdatedAt, rec.UpdatedAt)
}

func TestCreateKeepsBatchIDOfExistingRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreditRecord{ID: "a", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreditRecord{ID: "b", Quantity: 1})
	require.NoError(t, err)

	again, err := svc.Create(ctx, CreditRecord{ID: "a", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, first.BatchID, again.BatchID)
	assert.Equal(t, "BCR-2025-001", again.BatchID)

	last, err := svc.LastBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BCR-2025-002", last)

	next, err := svc.NextBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BCR-2025-003", next)
}

func TestUpdateBlockchainInfoOnlyTouchesChainFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	original, err := svc.Create(ctx, CreditRecord{
		ID: "a", ProjectName: "Demo", Quantity: 50, PricePerUnit: 3, Registry: "Verra",
		CreatedAt: fixedNow.Add(-time.Hour),
	})
	require.NoError(t, err)

	later := fixedNow.Add(time.Minute)
	svc.repo = NewRepository(svc.repo.(*RepositoryImpl).store, nil, nil, nil, func() time.Time { return later })

	found, err := svc.UpdateBlockchainInfo(ctx, "a", "0xabc", blockchain.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := svc.Get(ctx, "a")
	require.NoError(t, err)

	want := original
	want.TransactionHash = "0xabc"
	want.BlockchainStatus = blockchain.StatusConfirmed
	want.UpdatedAt = later
	assert.Equal(t, want, got)

	found, err = svc.UpdateBlockchainInfo(ctx, "missing", "0x", blockchain.StatusConfirmed)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStatsAreCached(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CachedStats(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, rec := range []CreditRecord{
		{Quantity: 10, Status: StatusAvailable},
		{Quantity: 5, Status: StatusRetired},
		{Quantity: 3, Status: StatusIssued},
	} {
		_, err := svc.Create(ctx, rec)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18.0, stats.TotalCredits)
	assert.Equal(t, 13.0, stats.AvailableCredits)
	assert.Equal(t, 5.0, stats.RetiredCredits)

	cached, err := svc.CachedStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalCredits, cached.TotalCredits)

	require.NoError(t, svc.Clear(ctx))
	_, err = svc.CachedStats(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	last, err := svc.LastBatchID(ctx)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestRepositoryPublishesSnapshots(t *testing.T) {
	pub := &recordingPublisher{}
	repo := NewRepository(kv.NewMemoryStore(), pub, nil, nil, nil)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreditRecord{ID: "a"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "a"))

	assert.Equal(t, []string{"credits", "credits"}, pub.topics)

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(ctx context.Context, in prediction.Input) prediction.Prediction {
	args := m.Called(ctx, in)
	return args.Get(0).(prediction.Prediction)
}

func TestPredict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreditRecord{ID: "a", ProjectID: "p1", ProjectName: "Demo Project", Quantity: 2000})
	require.NoError(t, err)

	p, err := svc.Predict(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, prediction.SourceFallback, p.Source)
	assert.Equal(t, 82, p.Confidence)
	assert.InDelta(t, 2400, p.PredictedAdditional, 1e-9)

	predictor := new(mockPredictor)
	predictor.On("Predict", mock.Anything, mock.MatchedBy(func(in prediction.Input) bool {
		return in.CreditID == "a" && in.Quantity == 2000
	})).Return(prediction.Prediction{Source: prediction.SourceAI, PredictedAdditional: 10})
	svc.predictor = predictor

	p, err = svc.Predict(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, prediction.SourceAI, p.Source)
	predictor.AssertExpectations(t)

	_, err = svc.Predict(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenizeConfirmsAsynchronously(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Tokenize(ctx, "a")
	assert.ErrorIs(t, err, ErrChainUnavailable)

	svc.chain = blockchain.NewSimulator(blockchain.Config{}, nil, nil)
	_, err = svc.Create(ctx, CreditRecord{ID: "a", Quantity: 5})
	require.NoError(t, err)

	rec, err := svc.Tokenize(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, blockchain.StatusPending, rec.BlockchainStatus)

	require.Eventually(t, func() bool {
		got, err := svc.Get(ctx, "a")
		return err == nil && got.BlockchainStatus == blockchain.StatusConfirmed
	}, 2*time.Second, 10*time.Millisecond)

	got, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got.TransactionHash, 64)

	_, err = svc.Tokenize(ctx, "a")
	assert.ErrorIs(t, err, ErrAlreadyTokenized)

	pending, err := svc.PendingTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context) ([]CreditRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CreditRecord), args.Error(1)
}

func (m *MockRepository) Snapshot(ctx context.Context) ([]CreditRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CreditRecord), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, id string) (CreditRecord, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(CreditRecord), args.Bool(1), args.Error(2)
}

func (m *MockRepository) Upsert(ctx context.Context, rec CreditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, rec CreditRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Patch(ctx context.Context, id string, fn func(CreditRecord) CreditRecord) (CreditRecord, bool, error) {
	args := m.Called(ctx, id, fn)
	return args.Get(0).(CreditRecord), args.Bool(1), args.Error(2)
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) LastBatchID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) SetLastBatchID(ctx context.Context, batchID string) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func (m *MockRepository) CachedStats(ctx context.Context) (*PortfolioStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PortfolioStats), args.Error(1)
}

func (m *MockRepository) SaveStats(ctx context.Context, stats PortfolioStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func TestServicePropagatesStoreErrors(t *testing.T) {
	repo := new(MockRepository)
	boom := errors.New("disk full")
	repo.On("List", mock.Anything).Return(nil, boom)

	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Stats(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = svc.Create(context.Background(), CreditRecord{})
	assert.ErrorIs(t, err, boom)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestStatsCacheFailureIsNotFatal(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything).Return([]CreditRecord{{Quantity: 2, Status: StatusAvailable}}, nil)
	repo.On("SaveStats", mock.Anything, mock.Anything).Return(errors.New("read only"))

	stats, err := NewService(repo, nil, nil, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, stats.AvailableCredits)
	repo.AssertExpectations(t)
}

type failingSubmitter struct {
	err error
}

func (f failingSubmitter) Submit(ctx context.Context, creditID string, done func(blockchain.Receipt)) error {
	return f.err
}

func TestTokenizeRestoresStatusWhenSubmitFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreditRecord{ID: "a", TransactionHash: "0xold", BlockchainStatus: blockchain.StatusFailed})
	require.NoError(t, err)

	svc.chain = failingSubmitter{err: errors.New("node unreachable")}
	_, err = svc.Tokenize(ctx, "a")
	assert.ErrorContains(t, err, "node unreachable")

	rec, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, blockchain.StatusFailed, rec.BlockchainStatus)
	assert.Equal(t, "0xold", rec.TransactionHash)

	pending, err := svc.PendingTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTokenizeWithCancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreditRecord{ID: "a"})
	require.NoError(t, err)

	sim := blockchain.NewSimulator(blockchain.DefaultConfig(), nil, nil)
	t.Cleanup(sim.Stop)
	svc.chain = sim

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Tokenize(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, sim.InFlight("a"))

	rec, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, rec.BlockchainStatus)
}
