// Package poller drives a StatsSource on a fixed interval and keeps the
// latest result for readers.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/routertraffic/pkg/core"
	"github.com/irctrakz/routertraffic/pkg/logging"
	"github.com/irctrakz/routertraffic/pkg/routerapi"
)

// Config contains configuration for a poller.
type Config struct {
	// Interval between two polls.
	Interval time.Duration

	// OnUpdate, when set, receives every successful result from the poll goroutine.
	OnUpdate func(*core.Stats)

	// Clock overrides the wall clock used for status timestamps.
	Clock core.Clock
}

// Status is a point-in-time view of the poller.
type Status struct {
	Available           bool        `json:"available"`
	Stats               *core.Stats `json:"stats,omitempty"`
	LastError           string      `json:"last_error,omitempty"`
	LastAttempt         time.Time   `json:"last_attempt"`
	LastSuccess         time.Time   `json:"last_success"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	Polls               uint64      `json:"polls"`
}

// Poller serializes calls to one StatsSource. Polls never overlap: a tick
// that fires while a poll is running is dropped.
type Poller struct {
	source core.StatsSource
	cfg    Config
	log    *logrus.Entry

	mu          sync.RWMutex
	latest      *core.Stats
	lastErr     error
	lastAttempt time.Time
	lastSuccess time.Time
	failures    int
	polls       uint64

	pollMu sync.Mutex
}

// New creates a poller for source.
func New(source core.StatsSource, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = core.RealClock{}
	}
	return &Poller{
		source: source,
		cfg:    cfg,
		log:    logging.WithComponent("poller"),
	}
}

// FirstRefresh runs the initial poll. Callers should refuse to start when it
// fails, since nothing has been verified against the router yet.
func (p *Poller) FirstRefresh(ctx context.Context) error {
	if err := p.Poll(ctx); err != nil {
		return err
	}
	p.log.WithField("interval", p.cfg.Interval).Info("first refresh succeeded")
	return nil
}

// Run polls every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Poll(ctx)
		}
	}
}

// Poll performs one cycle and records its outcome. A failure keeps the last
// good stats but marks the poller unavailable.
func (p *Poller) Poll(ctx context.Context) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	started := p.cfg.Clock.Now()
	stats, err := p.source.GetStats(ctx)

	p.mu.Lock()
	p.polls++
	p.lastAttempt = started
	if err != nil {
		p.lastErr = err
		p.failures++
		failures := p.failures
		p.mu.Unlock()

		entry := p.log.WithFields(logrus.Fields{
			"error":    err.Error(),
			"failures": failures,
		})
		if routerapi.IsTransient(err) {
			entry.Warn("router unreachable, keeping last stats")
		} else {
			entry.Error("error communicating with router")
		}
		return err
	}
	p.latest = stats
	p.lastErr = nil
	p.lastSuccess = started
	p.failures = 0
	p.mu.Unlock()

	p.log.WithField("interfaces", stats.Order).Debug("stats updated")
	if p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(stats)
	}
	return nil
}

// Status returns the current state. The returned Stats must not be modified.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := Status{
		Available:           p.latest != nil && p.lastErr == nil,
		Stats:               p.latest,
		LastAttempt:         p.lastAttempt,
		LastSuccess:         p.lastSuccess,
		ConsecutiveFailures: p.failures,
		Polls:               p.polls,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	return st
}
