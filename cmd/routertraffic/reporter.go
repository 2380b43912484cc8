package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/irctrakz/routertraffic/pkg/core"
	"github.com/irctrakz/routertraffic/pkg/logging"
	"github.com/irctrakz/routertraffic/pkg/rate"
)

type reportSnapshot struct {
	Timestamp  string                        `json:"ts"`
	Unit       string                        `json:"unit"`
	Elapsed    float64                       `json:"elapsed_s"`
	Totals     map[string]map[string]float64 `json:"totals"`
	Interfaces map[string]map[string]float64 `json:"interfaces"`
}

// newReporter returns a poller callback that logs every result in format.
func newReporter(format string, unit rate.Unit) func(*core.Stats) {
	return func(s *core.Stats) {
		line, err := formatReport(s, format, unit)
		if err != nil {
			logging.Warnf("report: %v", err)
			return
		}
		logging.Infof("traffic: %s", line)
	}
}

func formatReport(s *core.Stats, format string, unit rate.Unit) (string, error) {
	if s == nil {
		return "", fmt.Errorf("no stats")
	}
	switch format {
	case "json":
		snap := reportSnapshot{
			Timestamp:  s.CapturedAt.UTC().Format(time.RFC3339),
			Unit:       string(unit),
			Elapsed:    s.ElapsedSeconds,
			Totals:     map[string]map[string]float64{},
			Interfaces: make(map[string]map[string]float64, len(s.Interfaces)),
		}
		for _, c := range []core.Category{core.CategoryWired, core.CategoryWireless, core.CategoryGlobal} {
			t, _ := s.Totals.Get(c)
			snap.Totals[string(c)] = rates(t.DownloadRate, t.UploadRate, unit)
		}
		for name, r := range s.Interfaces {
			snap.Interfaces[name] = rates(r.DownloadRate, r.UploadRate, unit)
		}
		b, err := json.Marshal(snap)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case "", "text":
		var sb strings.Builder
		fmt.Fprintf(&sb, "ts=%s unit=%s", s.CapturedAt.UTC().Format(time.RFC3339), unit)
		fmt.Fprintf(&sb, " | wired: down=%.2f up=%.2f", rate.Convert(s.Totals.Wired.DownloadRate, unit), rate.Convert(s.Totals.Wired.UploadRate, unit))
		fmt.Fprintf(&sb, " | wireless: down=%.2f up=%.2f", rate.Convert(s.Totals.Wireless.DownloadRate, unit), rate.Convert(s.Totals.Wireless.UploadRate, unit))
		fmt.Fprintf(&sb, " | global: down=%.2f up=%.2f", rate.Convert(s.Totals.Global.DownloadRate, unit), rate.Convert(s.Totals.Global.UploadRate, unit))
		for _, name := range s.Order {
			r := s.Interfaces[name]
			fmt.Fprintf(&sb, " | %s: down=%.2f up=%.2f", name, rate.Convert(r.DownloadRate, unit), rate.Convert(r.UploadRate, unit))
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("unknown report format %q", format)
}

func rates(download, upload float64, unit rate.Unit) map[string]float64 {
	return map[string]float64{
		"download": rate.Convert(download, unit),
		"upload":   rate.Convert(upload, unit),
	}
}
