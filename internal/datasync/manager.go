// Package datasync is the local-first data manager. It owns the local store
// and the outbound sync queue: every durable write goes through a Collection,
// lands in the store first, and is mirrored into the queue, which is drained
// to the sync receiver in the background whenever connectivity allows.
package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/outbox"
	"github.com/motoclube/roleplanner/internal/store"
)

// Defaults for Options left at zero.
const (
	DefaultBatchSize   = 10
	DefaultInterval    = 5 * time.Minute
	DefaultPushTimeout = 30 * time.Second
)

// Pusher delivers one batch to the sync receiver.
type Pusher interface {
	Push(ctx context.Context, batch []domain.SyncOperation) (outbox.BatchResponse, error)
}

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	BatchSize   int
	Interval    time.Duration
	PushTimeout time.Duration
	// DrainAll makes one Flush keep sending batches until the queue is empty
	// or a batch fails. By default a Flush sends a single batch.
	DrainAll bool
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Manager is the single owner of durable state. Build one at startup with
// Open or New and pass it to whoever needs it; it is safe for concurrent use.
type Manager struct {
	store    store.Store
	degraded bool
	queue    *outbox.Queue
	pusher   Pusher
	logger   *zap.Logger
	opts     Options

	mu         sync.Mutex
	online     bool
	flushing   bool
	lastSyncAt time.Time
	lastErr    error

	drains sync.WaitGroup

	Users     *Collection[domain.User]
	Roteiros  *Collection[domain.Roteiro]
	Settings  *Collection[domain.Settings]
	Favorites *Collection[domain.Favorite]
	Analytics *Collection[domain.AnalyticsEvent]
}

// Open opens the SQLite store at path and builds a Manager over it. If the
// database cannot be opened the manager falls back to the in-memory
// key-value store and logs a warning; Open itself never fails on storage.
// A nil pusher keeps every write queued locally.
func Open(ctx context.Context, path string, pusher Pusher, logger *zap.Logger, opts Options) *Manager {
	var st store.Store
	sqlite, err := store.OpenSQLite(ctx, path, logger)
	if err != nil {
		logger.Warn("local database unavailable, using degraded key-value storage",
			zap.String("path", path), zap.Error(err))
		st = store.NewMemoryKV()
	} else {
		st = sqlite
	}
	return New(st, pusher, logger, opts)
}

// New builds a Manager over an already opened store.
func New(st store.Store, pusher Pusher, logger *zap.Logger, opts Options) *Manager {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = DefaultPushTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		store:    st,
		degraded: !st.Capabilities().IndexedQuery,
		queue:    outbox.NewQueue(),
		pusher:   pusher,
		logger:   logger.With(zap.String("component", "datasync")),
		opts:     opts,
	}
	m.Users = newCollection(m, userSchema)
	m.Roteiros = newCollection(m, roteiroSchema)
	m.Settings = newCollection(m, settingsSchema)
	m.Favorites = newCollection(m, favoriteSchema)
	m.Analytics = newCollection(m, analyticsSchema)
	return m
}

// Capabilities reports what the active storage backend supports.
func (m *Manager) Capabilities() store.Capabilities {
	return m.store.Capabilities()
}

// Status is a point-in-time view of replication state.
type Status struct {
	Online     bool               `json:"online"`
	Flushing   bool               `json:"flushing"`
	Pending    int                `json:"pending"`
	LastSyncAt *time.Time         `json:"last_sync_at,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
	Degraded   bool               `json:"degraded"`
	Storage    store.Capabilities `json:"storage"`
}

// Status returns the current replication state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Online:   m.online,
		Flushing: m.flushing,
		Pending:  m.queue.Len(),
		Degraded: m.degraded,
		Storage:  m.store.Capabilities(),
	}
	if !m.lastSyncAt.IsZero() {
		t := m.lastSyncAt
		s.LastSyncAt = &t
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Pending returns a copy of the queued operations, oldest first.
func (m *Manager) Pending() []domain.SyncOperation {
	return m.queue.Snapshot()
}

// Close waits for in-flight drains and closes the store.
func (m *Manager) Close() error {
	m.drains.Wait()
	return m.store.Close()
}

func (m *Manager) now() time.Time {
	return m.opts.Now().UTC()
}

// enqueue mirrors a write into the sync queue and, when online, starts a
// drain in the background.
func (m *Manager) enqueue(table domain.Table, op domain.Operation, data json.RawMessage, at time.Time) {
	if !table.Synced() {
		return
	}
	m.queue.Enqueue(domain.SyncOperation{Table: table, Operation: op, Data: data, Timestamp: at})
	queueDepth.Set(float64(m.queue.Len()))

	if m.isOnline() {
		m.flushAsync()
	}
}

func (m *Manager) isOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity change. Going from offline to online
// starts a drain.
func (m *Manager) SetOnline(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	m.mu.Unlock()

	if online && !was {
		m.logger.Info("connectivity restored, draining sync queue")
		m.flushAsync()
	}
}

// Resume is called when the client returns to the foreground. It drains the
// queue if online.
func (m *Manager) Resume() {
	if m.isOnline() {
		m.flushAsync()
	}
}

func (m *Manager) flushAsync() {
	m.drains.Add(1)
	go func() {
		defer m.drains.Done()
		_, _ = m.Flush(context.Background())
	}()
}

// ErrFlushInProgress is returned by Flush when another drain is running.
var ErrFlushInProgress = errors.New("flush already in progress")

// ErrOffline is returned by Flush when the manager is offline or has no
// sync receiver configured.
var ErrOffline = errors.New("offline")

// Run drives the periodic work until ctx is cancelled: every interval it
// sweeps expired cache entries and, when online, drains the queue.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.drains.Wait()
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Manager) tick(ctx context.Context) {
	if _, err := m.SweepCache(ctx); err != nil {
		m.logger.Warn("cache sweep failed", zap.Error(err))
	}
	if m.isOnline() {
		if _, err := m.Flush(ctx); err != nil && !errors.Is(err, ErrFlushInProgress) {
			m.logger.Debug("periodic flush did not complete", zap.Error(err))
		}
	}
}
