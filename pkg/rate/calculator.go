// Package rate turns successive counter snapshots into per-interface
// throughput and per-category totals.
package rate

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/routertraffic/pkg/core"
	"github.com/irctrakz/routertraffic/pkg/logging"
)

// Config contains configuration for the rate calculator.
type Config struct {
	// CounterBits is the width of the router counters, used for wraparound correction.
	CounterBits int

	// WirelessPrefix selects which interfaces count as wireless.
	WirelessPrefix string
}

// DefaultConfig returns the default configuration for the rate calculator
func DefaultConfig() Config {
	return Config{
		CounterBits:    32,
		WirelessPrefix: core.DefaultWirelessPrefix,
	}
}

// Calculator keeps the previous snapshot between poll cycles.
// It is not safe for concurrent use.
type Calculator struct {
	cfg  Config
	prev core.Snapshot
	log  *logrus.Entry
}

// NewCalculator creates a calculator with no baseline.
func NewCalculator(cfg Config) *Calculator {
	if cfg.CounterBits <= 0 || cfg.CounterBits > 64 {
		cfg.CounterBits = 32
	}
	if cfg.WirelessPrefix == "" {
		cfg.WirelessPrefix = core.DefaultWirelessPrefix
	}
	return &Calculator{cfg: cfg, log: logging.WithComponent("rate")}
}

// Compute derives rates for rows captured at now against the retained
// snapshot. It does not modify the calculator; call Commit once the cycle
// has succeeded.
func (c *Calculator) Compute(rows []core.InterfaceRow, now time.Time) core.Stats {
	elapsed := 0.0
	if !c.prev.Empty() {
		elapsed = now.Sub(c.prev.CapturedAt).Seconds()
	}

	// Duplicate names collapse onto the last row, keeping first-seen order.
	latest := make(map[string]core.InterfaceRow, len(rows))
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, seen := latest[r.Name]; !seen {
			order = append(order, r.Name)
		}
		latest[r.Name] = r
	}

	stats := core.Stats{
		Interfaces:     make(map[string]core.InterfaceRate, len(order)),
		Order:          order,
		CapturedAt:     now,
		ElapsedSeconds: elapsed,
	}

	for _, name := range order {
		cur := latest[name]
		var down, up float64
		if prev, ok := c.prev.Rows[name]; ok && elapsed > 0 {
			down = c.directionRate(name, "download", prev.Counter(core.RxBytesIndex), cur.Counter(core.RxBytesIndex), elapsed)
			up = c.directionRate(name, "upload", prev.Counter(core.TxBytesIndex), cur.Counter(core.TxBytesIndex), elapsed)
		}

		stats.Interfaces[name] = core.InterfaceRate{
			DownloadRate: down,
			UploadRate:   up,
			RawCounters:  rawCounters(cur.Counters),
		}

		switch core.Classify(name, c.cfg.WirelessPrefix) {
		case core.CategoryWireless:
			stats.Totals.Wireless.Add(down, up, cur.Counters)
		default:
			stats.Totals.Wired.Add(down, up, cur.Counters)
		}
		stats.Totals.Global.Add(down, up, cur.Counters)
	}

	return stats
}

func (c *Calculator) directionRate(iface, direction string, prev, cur uint64, elapsed float64) float64 {
	diff, wrapped := Delta(prev, cur, c.cfg.CounterBits)
	if wrapped {
		c.log.WithFields(logrus.Fields{
			"interface": iface,
			"direction": direction,
			"previous":  prev,
			"current":   cur,
			"diff":      diff,
		}).Warn("counter wrapped")
	}
	return float64(diff) / elapsed
}

// rawCounters copies at most core.RawCounterCount leading counters.
func rawCounters(counters []uint64) []uint64 {
	if len(counters) > core.RawCounterCount {
		counters = counters[:core.RawCounterCount]
	}
	return append([]uint64(nil), counters...)
}

// Commit replaces the retained snapshot with rows captured at now.
func (c *Calculator) Commit(rows []core.InterfaceRow, now time.Time) {
	c.prev = core.NewSnapshot(rows, now)
}

// Previous returns a copy of the retained snapshot.
func (c *Calculator) Previous() core.Snapshot {
	out := core.Snapshot{CapturedAt: c.prev.CapturedAt}
	if c.prev.Rows != nil {
		out.Rows = make(map[string]core.InterfaceRow, len(c.prev.Rows))
		for k, v := range c.prev.Rows {
			v.Counters = append([]uint64(nil), v.Counters...)
			out.Rows[k] = v
		}
	}
	return out
}

// Delta returns cur-prev for a counter of the given bit width, correcting a
// single wraparound. A previous value too large for the width is treated as
// a counter reset.
func Delta(prev, cur uint64, bits int) (diff uint64, wrapped bool) {
	if cur >= prev {
		return cur - prev, false
	}
	if bits >= 64 {
		return cur - prev, true
	}
	limit := uint64(1) << uint(bits)
	if prev >= limit {
		return cur, true
	}
	return (limit - prev) + cur, true
}
