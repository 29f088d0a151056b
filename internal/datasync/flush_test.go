package datasync_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoclube/roleplanner/internal/datasync"
	"github.com/motoclube/roleplanner/internal/domain"
)

func createRoteiros(t *testing.T, m *datasync.Manager, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range n {
		r, err := m.Roteiros.Create(context.Background(), domain.Roteiro{UserID: "u1", Title: fmt.Sprintf("Rolê %d", i)})
		require.NoError(t, err)
		ids[i] = r.ID
	}
	return ids
}

// TestFlush_AlwaysFailingEndpointLosesNothing: after N writes and one failed
// drain the queue still holds exactly N operations in their original order.
func TestFlush_AlwaysFailingEndpointLosesNothing(t *testing.T) {
	p := failingPusher()
	m := newManager(t, p, nil)
	ids := createRoteiros(t, m, 15)

	m.SetOnline(true) // offline -> online starts one drain
	m.Wait()

	require.Len(t, p.Calls(), 1, "a failed batch is not retried immediately")
	assert.Len(t, p.Calls()[0], 10, "batches are capped at 10")
	assert.Equal(t, ids, pendingIDs(m))

	status := m.Status()
	assert.Equal(t, 15, status.Pending)
	assert.Contains(t, status.LastError, "connection refused")
}

// TestFlush_OneBatchPerTrigger: a single drain attempt submits at most ten
// operations in one request and leaves the rest for the next trigger.
func TestFlush_OneBatchPerTrigger(t *testing.T) {
	p := &mockPusher{}
	m := newManager(t, p, nil)
	ids := createRoteiros(t, m, 25)

	m.SetOnline(true)
	m.Wait()

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0], 10)
	assert.Equal(t, ids[10:], pendingIDs(m))
	assert.NotNil(t, m.Status().LastSyncAt)

	r, err := m.Roteiros.Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSynced, r.SyncStatus)
	r, err = m.Roteiros.Get(context.Background(), ids[10])
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPending, r.SyncStatus)

	n, err := m.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	n, err = m.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Empty(t, m.Pending())
	assert.Len(t, p.Calls(), 3)
}

func TestFlush_DrainAllSendsEveryBatch(t *testing.T) {
	p := &mockPusher{}
	m := newManagerWithOptions(t, p, datasync.Options{DrainAll: true})
	createRoteiros(t, m, 12)

	m.SetOnline(true)
	m.Wait()

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 10)
	assert.Len(t, calls[1], 2)
	assert.Empty(t, m.Pending())
}

// TestFlush_WritesDuringFlightAreKept enqueues a write while a batch is in
// flight; the batch then fails and goes back in front of the new write.
func TestFlush_WritesDuringFlightAreKept(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	p := &mockPusher{pushFn: func(context.Context, []domain.SyncOperation) error {
		once.Do(func() { close(inFlight) })
		<-release
		return errors.New("502 bad gateway")
	}}
	m := newManager(t, p, nil)
	first := createRoteiros(t, m, 2)

	m.SetOnline(true)
	<-inFlight
	late, err := m.Roteiros.Create(context.Background(), domain.Roteiro{UserID: "u1", Title: "late"})
	require.NoError(t, err)
	close(release)
	m.Wait()

	assert.Len(t, p.Calls()[0], 2, "the in-flight batch was snapshotted before the late write")
	assert.Equal(t, append(first, late.ID), pendingIDs(m))
}

func TestFlush_Offline(t *testing.T) {
	m := newManager(t, &mockPusher{}, nil)
	createRoteiros(t, m, 1)

	_, err := m.Flush(context.Background())

	assert.ErrorIs(t, err, datasync.ErrOffline)
	assert.Len(t, m.Pending(), 1)
}

func TestFlush_NoReceiverConfigured(t *testing.T) {
	m := newManager(t, nil, nil)
	m.SetOnline(true)
	m.Wait()

	_, err := m.Flush(context.Background())

	assert.ErrorIs(t, err, datasync.ErrOffline)
}

func TestFlush_NoOverlappingDrains(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	p := &mockPusher{pushFn: func(context.Context, []domain.SyncOperation) error {
		once.Do(func() { close(inFlight) })
		<-release
		return nil
	}}
	m := newManager(t, p, nil)
	createRoteiros(t, m, 1)

	m.SetOnline(true)
	<-inFlight

	_, err := m.Flush(context.Background())
	assert.ErrorIs(t, err, datasync.ErrFlushInProgress)

	close(release)
	m.Wait()
	assert.Empty(t, m.Pending())
}

// TestFlush_PushTimeout verifies a hung receiver is abandoned after
// PushTimeout and the batch requeued.
func TestFlush_PushTimeout(t *testing.T) {
	p := &mockPusher{pushFn: func(ctx context.Context, _ []domain.SyncOperation) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	m := newManagerWithOptions(t, p, datasync.Options{PushTimeout: 20 * time.Millisecond})
	ids := createRoteiros(t, m, 3)

	m.SetOnline(true)
	m.Wait()

	assert.Equal(t, ids, pendingIDs(m))
	assert.Contains(t, m.Status().LastError, "deadline exceeded")
}

func TestResume_DrainsWhenOnline(t *testing.T) {
	p := &mockPusher{}
	m := newManager(t, p, nil)

	m.Resume() // offline: nothing happens
	m.Wait()
	assert.Empty(t, p.Calls())

	m.SetOnline(true)
	m.Wait()
	m.SetOnline(false)
	createRoteiros(t, m, 1)
	m.SetOnline(true)
	m.Wait()
	require.Len(t, p.Calls(), 1)

	createRoteiros(t, m, 1) // online: enqueue itself triggers a drain
	m.Wait()
	m.Resume()
	m.Wait()
	assert.Len(t, p.Calls(), 2)
	assert.Empty(t, m.Pending())
}
