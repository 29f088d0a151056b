package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pinger checks whether the remote side is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls a Pinger and reports connectivity to onChange. onChange runs
// once with the first result and then only when the state flips.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	onChange func(online bool)
	logger   *zap.Logger
}

// NewMonitor builds a Monitor that probes every interval, giving each probe
// at most timeout to answer.
func NewMonitor(p Pinger, interval, timeout time.Duration, onChange func(bool), logger *zap.Logger) *Monitor {
	return &Monitor{
		pinger:   p,
		interval: interval,
		timeout:  timeout,
		onChange: onChange,
		logger:   logger.With(zap.String("component", "connectivity")),
	}
}

// Run probes until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var known, online bool
	for {
		next := m.probe(ctx)
		if !known || next != online {
			m.logger.Info("connectivity changed", zap.Bool("online", next))
			m.onChange(next)
			known, online = true, next
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.pinger.Ping(ctx); err != nil {
		m.logger.Debug("probe failed", zap.Error(err))
		return false
	}
	return true
}
