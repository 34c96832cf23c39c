package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/internal/blockchain"
	"carbon-scribe/project-portal/ledger-backend/internal/prediction"
)

var (
	ErrNotFound         = errors.New("credit not found")
	ErrInvalidInput     = errors.New("invalid credit")
	ErrChainUnavailable = errors.New("blockchain submission is not configured")
	ErrAlreadyTokenized = errors.New("credit is already tokenized")
)

// Predictor estimates future issuance for a credit batch
type Predictor interface {
	Predict(ctx context.Context, in prediction.Input) prediction.Prediction
}

// Submitter schedules a blockchain confirmation for a credit
type Submitter interface {
	Submit(ctx context.Context, creditID string, done func(blockchain.Receipt)) error
}

// Service handles credit business logic
type Service struct {
	repo      Repository
	predictor Predictor
	chain     Submitter
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a credit service. predictor and chain may be nil.
func NewService(repo Repository, predictor Predictor, chain Submitter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		predictor: predictor,
		chain:     chain,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns credits matching filter, newest first
func (s *Service) List(ctx context.Context, filter Filter) ([]CreditRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]CreditRecord, 0, len(records))
	for _, r := range records {
		if filter.ProjectID != "" && r.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if query != "" && !matchesQuery(r, query) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func matchesQuery(r CreditRecord, query string) bool {
	for _, field := range []string{r.ProjectName, r.BatchID, r.SerialNumberStart, r.SerialNumberEnd} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Get returns one credit
func (s *Service) Get(ctx context.Context, id string) (CreditRecord, error) {
	rec, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return CreditRecord{}, err
	}
	if !ok {
		return CreditRecord{}, ErrNotFound
	}
	return rec, nil
}

// Create inserts rec, or replaces the record with the same id. Missing id,
// batch id, status and dates are filled in; total value is always recomputed.
func (s *Service) Create(ctx context.Context, rec CreditRecord) (CreditRecord, error) {
	if err := validate(rec); err != nil {
		return CreditRecord{}, err
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return CreditRecord{}, err
	}

	now := s.now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusPendingVerification
	}
	if rec.IssueDate.IsZero() {
		rec.IssueDate = now
	}
	var previous *CreditRecord
	for i := range existing {
		if existing[i].ID == rec.ID {
			previous = &existing[i]
			break
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
		if previous != nil {
			rec.CreatedAt = previous.CreatedAt
		}
	}
	if rec.BatchID == "" && previous != nil {
		rec.BatchID = previous.BatchID
	}
	rec.UpdatedAt = now
	rec.TotalValue = computeTotalValue(rec.Quantity, rec.PricePerUnit)

	generated := rec.BatchID == ""
	if generated {
		ids := make([]string, 0, len(existing))
		for _, e := range existing {
			ids = append(ids, e.BatchID)
		}
		rec.BatchID = NextBatchID(ids, now)
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return CreditRecord{}, err
	}
	if generated {
		if err := s.repo.SetLastBatchID(ctx, rec.BatchID); err != nil {
			s.logger.Warn("Failed to store last batch id", zap.Error(err))
		}
	}

	s.logger.Info("Credit saved",
		zap.String("credit_id", rec.ID),
		zap.String("batch_id", rec.BatchID),
		zap.Float64("quantity", rec.Quantity))
	return rec, nil
}

// Update replaces a stored credit. It reports false when the id is unknown.
func (s *Service) Update(ctx context.Context, rec CreditRecord) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if err := validate(rec); err != nil {
		return false, err
	}
	rec.TotalValue = computeTotalValue(rec.Quantity, rec.PricePerUnit)

	updated, err := s.repo.Update(ctx, rec)
	if err != nil {
		return false, err
	}
	if !updated {
		s.logger.Debug("Update of unknown credit ignored", zap.String("credit_id", rec.ID))
	}
	return updated, nil
}

func validate(rec CreditRecord) error {
	if rec.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if rec.PricePerUnit < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if rec.Status != "" && !rec.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, rec.Status)
	}
	return nil
}

// Delete removes a credit. Unknown ids are ignored.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Clear removes every credit together with the cached stats and last batch id
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Credit ledger cleared")
	return nil
}

// UpdateStatus moves a credit to status, stamping the verification or
// retirement date the first time it reaches those states.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (CreditRecord, error) {
	if !status.Valid() {
		return CreditRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	now := s.now()
	rec, found, err := s.repo.Patch(ctx, id, func(r CreditRecord) CreditRecord {
		r.Status = status
		switch status {
		case StatusVerified:
			if r.VerificationDate == nil {
				r.VerificationDate = &now
			}
		case StatusRetired:
			if r.RetirementDate == nil {
				r.RetirementDate = &now
			}
		}
		return r
	})
	if err != nil {
		return CreditRecord{}, err
	}
	if !found {
		return CreditRecord{}, ErrNotFound
	}
	return rec, nil
}

// UpdateBlockchainInfo sets the transaction hash and blockchain status. No
// other field changes apart from the update timestamp.
func (s *Service) UpdateBlockchainInfo(ctx context.Context, id, txHash, status string) (bool, error) {
	_, found, err := s.setBlockchainInfo(ctx, id, txHash, status)
	return found, err
}

func (s *Service) setBlockchainInfo(ctx context.Context, id, txHash, status string) (CreditRecord, bool, error) {
	return s.repo.Patch(ctx, id, func(r CreditRecord) CreditRecord {
		r.TransactionHash = txHash
		r.BlockchainStatus = status
		return r
	})
}

// Tokenize marks a credit pending on chain and submits it. Confirmation is
// applied asynchronously.
func (s *Service) Tokenize(ctx context.Context, id string) (CreditRecord, error) {
	if s.chain == nil {
		return CreditRecord{}, ErrChainUnavailable
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return CreditRecord{}, err
	}
	if rec.BlockchainStatus == blockchain.StatusConfirmed {
		return CreditRecord{}, ErrAlreadyTokenized
	}

	pending, found, err := s.setBlockchainInfo(ctx, id, "", blockchain.StatusPending)
	if err != nil {
		return CreditRecord{}, err
	}
	if !found {
		return CreditRecord{}, ErrNotFound
	}

	err = s.chain.Submit(ctx, id, func(receipt blockchain.Receipt) {
		applyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.ApplyReceipt(applyCtx, receipt); err != nil {
			s.logger.Error("Failed to apply blockchain receipt",
				zap.String("credit_id", receipt.CreditID), zap.Error(err))
		}
	})
	if err != nil && !errors.Is(err, blockchain.ErrAlreadySubmitted) {
		// Restore the previous status so the reconciler does not pick the
		// credit up.
		revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, revertErr := s.UpdateBlockchainInfo(revertCtx, id, rec.TransactionHash, rec.BlockchainStatus); revertErr != nil {
			s.logger.Error("Failed to revert blockchain status",
				zap.String("credit_id", id), zap.Error(revertErr))
		}
		return CreditRecord{}, fmt.Errorf("failed to submit credit: %w", err)
	}
	return pending, nil
}

// PendingTransactions returns ids of credits awaiting chain confirmation
func (s *Service) PendingTransactions(ctx context.Context) ([]string, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range records {
		if r.BlockchainStatus == blockchain.StatusPending {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// ApplyReceipt stores a settled submission on its credit
func (s *Service) ApplyReceipt(ctx context.Context, receipt blockchain.Receipt) error {
	found, err := s.UpdateBlockchainInfo(ctx, receipt.CreditID, receipt.TransactionHash, receipt.Status)
	if err != nil {
		return err
	}
	if !found {
		s.logger.Warn("Receipt for deleted credit dropped", zap.String("credit_id", receipt.CreditID))
		return nil
	}
	s.logger.Info("Blockchain receipt applied",
		zap.String("credit_id", receipt.CreditID),
		zap.String("status", receipt.Status),
		zap.String("tx_hash", receipt.TransactionHash))
	return nil
}

// Stats computes portfolio statistics and caches them.
func (s *Service) Stats(ctx context.Context) (PortfolioStats, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return PortfolioStats{}, err
	}
	stats := ComputeStats(records, s.now())
	if err := s.repo.SaveStats(ctx, stats); err != nil {
		s.logger.Warn("Failed to cache credit stats", zap.Error(err))
	}
	return stats, nil
}

// CachedStats returns the last computed statistics, or ErrNotFound if none
// were computed since the ledger was last cleared.
func (s *Service) CachedStats(ctx context.Context) (PortfolioStats, error) {
	stats, err := s.repo.CachedStats(ctx)
	if err != nil {
		return PortfolioStats{}, err
	}
	if stats == nil {
		return PortfolioStats{}, ErrNotFound
	}
	return *stats, nil
}

// NextBatchID previews the batch id the next created credit would receive.
func (s *Service) NextBatchID(ctx context.Context) (string, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.BatchID)
	}
	return NextBatchID(ids, s.now()), nil
}

// LastBatchID returns the most recently generated batch id
func (s *Service) LastBatchID(ctx context.Context) (string, error) {
	return s.repo.LastBatchID(ctx)
}

// Predict projects future issuance for the credit's project
func (s *Service) Predict(ctx context.Context, id string) (prediction.Prediction, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return prediction.Prediction{}, err
	}
	in := prediction.Input{
		CreditID:    rec.ID,
		ProjectID:   rec.ProjectID,
		ProjectName: rec.ProjectName,
		Quantity:    rec.Quantity,
		Methodology: rec.Methodology,
		VintageYear: rec.VintageYear,
		Status:      string(rec.Status),
	}
	if s.predictor == nil {
		return prediction.Fallback(in), nil
	}
	return s.predictor.Predict(ctx, in), nil
}

// Snapshot returns the most recently saved collection
func (s *Service) Snapshot(ctx context.Context) ([]CreditRecord, error) {
	return s.repo.Snapshot(ctx)
}
