package remote

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
)

// MaxBatchSize is the largest batch a sender may submit.
const MaxBatchSize = 10

// Service validates and applies incoming batches.
type Service struct {
	repo   Repo
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(repo Repo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Apply validates the whole batch before touching storage: one bad operation
// rejects the batch with domain.ErrValidation and nothing is written.
func (s *Service) Apply(ctx context.Context, subject string, ops []domain.SyncOperation) (BatchResult, error) {
	if len(ops) == 0 || len(ops) > MaxBatchSize {
		return BatchResult{}, fmt.Errorf("remote.Service.Apply: %w: batch must hold 1 to %d operations, got %d",
			domain.ErrValidation, MaxBatchSize, len(ops))
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return BatchResult{}, fmt.Errorf("remote.Service.Apply: operation %d: %w", i, err)
		}
	}

	res, err := s.repo.ApplyBatch(ctx, subject, ops)
	if err != nil {
		return BatchResult{}, fmt.Errorf("remote.Service.Apply: %w", err)
	}
	batchOperations.WithLabelValues("applied").Add(float64(res.Applied))
	batchOperations.WithLabelValues("stale").Add(float64(res.Stale))
	s.logger.Info("batch applied",
		zap.String("batch_id", res.BatchID.String()),
		zap.String("subject", subject),
		zap.Int("applied", res.Applied),
		zap.Int("stale", res.Stale))
	return res, nil
}

// Get returns a stored record.
func (s *Service) Get(ctx context.Context, table domain.Table, id string) (Record, error) {
	if !table.Synced() {
		return Record{}, fmt.Errorf("remote.Service.Get: %w: table %q is not synced", domain.ErrValidation, table)
	}
	rec, err := s.repo.Get(ctx, table, id)
	if err != nil {
		return Record{}, fmt.Errorf("remote.Service.Get: %w", err)
	}
	return rec, nil
}
