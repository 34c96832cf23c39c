package prediction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/internal/metrics"
)

const DefaultTimeout = 15 * time.Second

// Service predicts issuance, falling back to the heuristic whenever the
// oracle is missing, fails, or returns no additional credits.
type Service struct {
	oracle  Oracle
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a prediction service. oracle may be nil.
func NewService(oracle Oracle, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		oracle:  oracle,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Predict never fails; remote problems are logged and answered by Fallback.
func (s *Service) Predict(ctx context.Context, in Input) Prediction {
	if s.oracle == nil {
		s.metrics.Prediction(SourceFallback)
		return Fallback(in)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.oracle.Predict(ctx, in)
	switch {
	case err != nil:
		s.logger.Warn("Prediction oracle failed, using fallback",
			zap.String("project_id", in.ProjectID), zap.Error(err))
	case p == nil || p.PredictedAdditional <= 0:
		s.logger.Warn("Prediction oracle returned no credits, using fallback",
			zap.String("project_id", in.ProjectID))
	default:
		s.metrics.Prediction(SourceAI)
		return *p
	}

	s.metrics.Prediction(SourceFallback)
	return Fallback(in)
}
