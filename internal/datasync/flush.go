package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/store"
)

var tracer = otel.Tracer("github.com/motoclube/roleplanner/internal/datasync")

// Flush takes at most Options.BatchSize operations from the front of the
// queue and submits them as one request. A failed batch goes back to the
// front of the queue; there is no immediate retry, the next trigger tries
// again. With Options.DrainAll it keeps taking batches until the queue is
// empty or one fails. It returns how many operations were delivered.
//
// Only one drain runs at a time: a concurrent call returns ErrFlushInProgress.
func (m *Manager) Flush(ctx context.Context) (int, error) {
	if m.pusher == nil {
		return 0, ErrOffline
	}
	m.mu.Lock()
	if !m.online {
		m.mu.Unlock()
		return 0, ErrOffline
	}
	if m.flushing {
		m.mu.Unlock()
		return 0, ErrFlushInProgress
	}
	m.flushing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.flushing = false
		m.mu.Unlock()
		queueDepth.Set(float64(m.queue.Len()))
	}()

	ctx, span := tracer.Start(ctx, "datasync.Flush")
	defer span.End()

	pushed := 0
	for {
		batch := m.queue.TakeBatch(m.opts.BatchSize)
		if len(batch) == 0 {
			break
		}

		if err := m.push(ctx, batch); err != nil {
			m.queue.Requeue(batch)
			batchesTotal.WithLabelValues("failure").Inc()
			m.mu.Lock()
			m.lastErr = err
			m.mu.Unlock()

			m.logger.Warn("sync batch failed, requeued",
				zap.Int("batch_size", len(batch)),
				zap.Int("pending", m.queue.Len()),
				zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch failed")
			return pushed, fmt.Errorf("datasync.Manager.Flush: %w", err)
		}

		batchesTotal.WithLabelValues("success").Inc()
		operationsPushed.Add(float64(len(batch)))
		pushed += len(batch)
		m.mu.Lock()
		m.lastSyncAt = m.now()
		m.lastErr = nil
		m.mu.Unlock()

		m.markSynced(ctx, batch)

		if !m.opts.DrainAll {
			break
		}
	}

	span.SetAttributes(attribute.Int("sync.pushed", pushed))
	if pushed > 0 {
		m.logger.Info("sync batch delivered",
			zap.Int("pushed", pushed),
			zap.Int("pending", m.queue.Len()))
	}
	return pushed, nil
}

// Wait blocks until every background drain started so far has returned.
func (m *Manager) Wait() {
	m.drains.Wait()
}

func (m *Manager) push(ctx context.Context, batch []domain.SyncOperation) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.PushTimeout)
	defer cancel()

	if _, err := m.pusher.Push(ctx, batch); err != nil {
		if !errors.Is(err, domain.ErrSyncFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrSyncFailure, err)
		}
		return err
	}
	return nil
}

var syncedPatch = json.RawMessage(`{"sync_status":"synced"}`)

// markSynced flips delivered records to synced, unless a newer write has
// happened since the snapshot was taken.
func (m *Manager) markSynced(ctx context.Context, batch []domain.SyncOperation) {
	for _, op := range batch {
		id, err := op.RecordID()
		if err != nil {
			continue
		}
		_, err = m.store.Update(ctx, op.Table, id, func(d store.Document) (store.Document, error) {
			if d.UpdatedAt.After(op.Timestamp) {
				return d, nil
			}
			merged, err := runtime.JSONMerge(d.Data, syncedPatch)
			if err != nil {
				return d, err
			}
			d.Data = merged
			return d, nil
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			m.logger.Debug("mark synced failed",
				zap.String("table", string(op.Table)), zap.String("id", id), zap.Error(err))
		}
	}
}
