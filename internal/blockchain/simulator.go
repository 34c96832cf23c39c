// Package blockchain provides a simulated registry chain used to tokenize
// credits. Submissions confirm asynchronously after a random delay.
package blockchain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/internal/metrics"
)

// Blockchain status values stored on credit records
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

var ErrAlreadySubmitted = errors.New("credit already has a submission in flight")

// Receipt is delivered once a submission settles
type Receipt struct {
	CreditID        string    `json:"credit_id"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	Status          string    `json:"status"`
	SettledAt       time.Time `json:"settled_at"`
}

// Config bounds the simulated confirmation delay
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DefaultConfig returns the delays used by the field app
func DefaultConfig() Config {
	return Config{
		MinDelay: 2 * time.Second,
		MaxDelay: 5 * time.Second,
	}
}

// Simulator confirms submissions on a timer. Pending timers do not survive a
// restart; the Reconciler resubmits whatever is still pending.
type Simulator struct {
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	inFlight map[string]*time.Timer
	jitter   func(n int64) int64
	hash     func() (string, error)
	mu       sync.Mutex
}

// NewSimulator creates a simulator
func NewSimulator(config Config, logger *zap.Logger, m *metrics.Metrics) *Simulator {
	if config.MinDelay < 0 {
		config.MinDelay = 0
	}
	if config.MaxDelay < config.MinDelay {
		config.MaxDelay = config.MinDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		config:   config,
		logger:   logger,
		metrics:  m,
		inFlight: make(map[string]*time.Timer),
		jitter:   mathrand.Int64N,
		hash:     newTransactionHash,
	}
}

// Submit schedules confirmation of creditID and returns immediately. done is
// called from a timer goroutine once the submission settles.
func (s *Simulator) Submit(ctx context.Context, creditID string, done func(Receipt)) error {
	if creditID == "" {
		return fmt.Errorf("credit id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inFlight[creditID]; ok {
		return ErrAlreadySubmitted
	}

	delay := s.delay()
	s.inFlight[creditID] = time.AfterFunc(delay, func() {
		s.settle(creditID, done)
	})
	s.metrics.BlockchainSubmission("submitted")

	s.logger.Info("Submitted credit to chain",
		zap.String("credit_id", creditID),
		zap.Duration("delay", delay))
	return nil
}

// InFlight reports whether creditID is awaiting confirmation
func (s *Simulator) InFlight(creditID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[creditID]
	return ok
}

// Stop cancels every pending confirmation.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.inFlight {
		timer.Stop()
		delete(s.inFlight, id)
	}
}

func (s *Simulator) delay() time.Duration {
	spread := int64(s.config.MaxDelay - s.config.MinDelay)
	if spread <= 0 {
		return s.config.MinDelay
	}
	return s.config.MinDelay + time.Duration(s.jitter(spread+1))
}

func (s *Simulator) settle(creditID string, done func(Receipt)) {
	receipt := Receipt{
		CreditID:  creditID,
		Status:    StatusConfirmed,
		SettledAt: time.Now(),
	}

	hash, err := s.hash()
	if err != nil {
		s.logger.Error("Failed to generate transaction hash",
			zap.String("credit_id", creditID), zap.Error(err))
		receipt.Status = StatusFailed
	} else {
		receipt.TransactionHash = hash
	}

	s.mu.Lock()
	delete(s.inFlight, creditID)
	s.mu.Unlock()

	s.metrics.BlockchainSubmission(receipt.Status)
	if done != nil {
		done(receipt)
	}
}

// newTransactionHash returns 32 random bytes as 64 hex characters
func newTransactionHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
