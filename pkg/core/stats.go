package core

import (
	"strings"
	"time"
)

// Router column layout of the LAN statistics table.
const (
	// RawCounterCount is the number of numeric columns per interface row.
	RawCounterCount = 16

	// RxBytesIndex is the received-bytes column. Received bytes are reported as download.
	RxBytesIndex = 0

	// TxBytesIndex is the transmitted-bytes column. Transmitted bytes are reported as upload.
	TxBytesIndex = 8
)

// DefaultWirelessPrefix marks wireless interfaces (wl0, wl1.1, ...).
const DefaultWirelessPrefix = "wl"

// InterfaceRow is one parsed row of the statistics table.
type InterfaceRow struct {
	Name     string   `json:"interface"`
	Counters []uint64 `json:"counters"`
}

// Counter returns the counter at index i, or 0 when the row is too short.
func (r InterfaceRow) Counter(i int) uint64 {
	if i < 0 || i >= len(r.Counters) {
		return 0
	}
	return r.Counters[i]
}

// Snapshot is a point-in-time capture of all interface counters.
type Snapshot struct {
	Rows       map[string]InterfaceRow
	CapturedAt time.Time
}

// NewSnapshot indexes rows by interface name. A later row with the same name wins.
func NewSnapshot(rows []InterfaceRow, at time.Time) Snapshot {
	m := make(map[string]InterfaceRow, len(rows))
	for _, r := range rows {
		m[r.Name] = r
	}
	return Snapshot{Rows: m, CapturedAt: at}
}

// Empty reports whether the snapshot has never been populated.
func (s Snapshot) Empty() bool {
	return s.CapturedAt.IsZero()
}

// InterfaceRate is the derived throughput of one interface, in bytes per second.
type InterfaceRate struct {
	DownloadRate float64  `json:"download_rate"`
	UploadRate   float64  `json:"upload_rate"`
	RawCounters  []uint64 `json:"raw_counters"`
}

// CategoryTotals sums rates and raw counters over a group of interfaces.
type CategoryTotals struct {
	DownloadRate float64                 `json:"download_rate"`
	UploadRate   float64                 `json:"upload_rate"`
	RawCounters  [RawCounterCount]uint64 `json:"raw_counters"`
}

// Add accumulates one interface into the totals. Counters past
// RawCounterCount are ignored.
func (t *CategoryTotals) Add(download, upload float64, counters []uint64) {
	t.DownloadRate += download
	t.UploadRate += upload
	for i, v := range counters {
		if i >= RawCounterCount {
			break
		}
		t.RawCounters[i] += v
	}
}

// Totals groups the per-category aggregates.
type Totals struct {
	Wired    CategoryTotals `json:"wired"`
	Wireless CategoryTotals `json:"wireless"`
	Global   CategoryTotals `json:"global"`
}

// Get returns the totals of a category.
func (t Totals) Get(c Category) (CategoryTotals, bool) {
	switch c {
	case CategoryWired:
		return t.Wired, true
	case CategoryWireless:
		return t.Wireless, true
	case CategoryGlobal:
		return t.Global, true
	}
	return CategoryTotals{}, false
}

// Stats is the result of one successful poll cycle.
type Stats struct {
	Interfaces     map[string]InterfaceRate `json:"interfaces"`
	Order          []string                 `json:"order"`
	Totals         Totals                   `json:"totals"`
	CapturedAt     time.Time                `json:"captured_at"`
	ElapsedSeconds float64                  `json:"elapsed_seconds"`
}

// Category is a logical group of interfaces.
type Category string

const (
	CategoryWired    Category = "wired"
	CategoryWireless Category = "wireless"
	CategoryGlobal   Category = "global"
)

// Classify places an interface into wired or wireless by name prefix.
// An empty prefix falls back to DefaultWirelessPrefix.
func Classify(name, wirelessPrefix string) Category {
	if wirelessPrefix == "" {
		wirelessPrefix = DefaultWirelessPrefix
	}
	if strings.HasPrefix(name, wirelessPrefix) {
		return CategoryWireless
	}
	return CategoryWired
}
