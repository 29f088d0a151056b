package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/outbox"
)

// scriptedPinger answers each probe with the next scripted result and then
// keeps repeating the last one.
type scriptedPinger struct {
	mu      sync.Mutex
	results []error
}

func (p *scriptedPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return err
}

var _ outbox.Pinger = (*scriptedPinger)(nil)

func TestMonitor_ReportsOnlyTransitions(t *testing.T) {
	down := errors.New("down")
	p := &scriptedPinger{results: []error{down, down, nil, nil, down}}

	var mu sync.Mutex
	var seen []bool
	m := outbox.NewMonitor(p, time.Millisecond, time.Second, func(online bool) {
		mu.Lock()
		seen = append(seen, online)
		mu.Unlock()
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { m.Run(ctx); close(done) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 3
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true, false}, seen)
}
