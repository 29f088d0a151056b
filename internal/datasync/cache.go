package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/store"
)

// SetCache stores data under key until ttl elapses. Cache writes are local
// only and never queued for sync.
func (m *Manager) SetCache(ctx context.Context, key string, data any, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("datasync.Manager.SetCache: %w: key is required", domain.ErrValidation)
	}
	if ttl <= 0 {
		return fmt.Errorf("datasync.Manager.SetCache: %w: ttl must be positive", domain.ErrValidation)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("datasync.Manager.SetCache: marshal: %w", err)
	}

	now := m.now()
	entry := domain.CacheEntry{Key: key, Data: payload, ExpiresAt: now.Add(ttl)}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("datasync.Manager.SetCache: marshal: %w", err)
	}
	doc := store.Document{
		ID:        key,
		ExpiresAt: &entry.ExpiresAt,
		Data:      raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Upsert(ctx, domain.TableCache, doc); err != nil {
		return fmt.Errorf("datasync.Manager.SetCache: %w", err)
	}
	return nil
}

// GetCache returns the cached payload for key. An expired entry is reported
// as absent and deleted on the spot.
func (m *Manager) GetCache(ctx context.Context, key string) (json.RawMessage, bool, error) {
	doc, err := m.store.Get(ctx, domain.TableCache, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("datasync.Manager.GetCache: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(doc.Data, &entry); err != nil {
		return nil, false, fmt.Errorf("datasync.Manager.GetCache: decode: %w", err)
	}
	if entry.Expired(m.now()) {
		if err := m.store.Delete(ctx, domain.TableCache, key); err != nil {
			m.logger.Warn("lazy cache eviction failed", zap.String("key", key), zap.Error(err))
		} else {
			cacheEvictions.WithLabelValues("read").Inc()
		}
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// SweepCache deletes every expired cache entry and returns how many were
// removed.
func (m *Manager) SweepCache(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpired(ctx, domain.TableCache, m.now())
	if err != nil {
		return 0, fmt.Errorf("datasync.Manager.SweepCache: %w", err)
	}
	if n > 0 {
		cacheEvictions.WithLabelValues("sweep").Add(float64(n))
		m.logger.Debug("swept expired cache entries", zap.Int("removed", n))
	}
	return n, nil
}
