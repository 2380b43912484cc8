package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irctrakz/routertraffic/pkg/core"
	"github.com/irctrakz/routertraffic/pkg/logging"
	"github.com/irctrakz/routertraffic/pkg/poller"
	"github.com/irctrakz/routertraffic/pkg/rate"
)

// statusProvider is the read side of the poller.
type statusProvider interface {
	Status() poller.Status
}

// rateView is one interface or category as served over HTTP.
type rateView struct {
	Download           float64  `json:"download"`
	Upload             float64  `json:"upload"`
	Unit               string   `json:"unit"`
	TotalDownloadBytes uint64   `json:"total_download_bytes"`
	TotalUploadBytes   uint64   `json:"total_upload_bytes"`
	RawCounters        []uint64 `json:"raw_counters"`
}

type statsView struct {
	CapturedAt     time.Time                  `json:"captured_at"`
	ElapsedSeconds float64                    `json:"elapsed_seconds"`
	Interfaces     map[string]rateView        `json:"interfaces"`
	Order          []string                   `json:"order"`
	Totals         map[core.Category]rateView `json:"totals"`
}

func newRateView(download, upload float64, counters []uint64, unit rate.Unit) rateView {
	row := core.InterfaceRow{Counters: counters}
	return rateView{
		Download:           rate.Convert(download, unit),
		Upload:             rate.Convert(upload, unit),
		Unit:               string(unit),
		TotalDownloadBytes: row.Counter(core.RxBytesIndex),
		TotalUploadBytes:   row.Counter(core.TxBytesIndex),
		RawCounters:        counters,
	}
}

func newTotalsView(t core.CategoryTotals, unit rate.Unit) rateView {
	return newRateView(t.DownloadRate, t.UploadRate, append([]uint64(nil), t.RawCounters[:]...), unit)
}

func newStatsView(s *core.Stats, unit rate.Unit) statsView {
	v := statsView{
		CapturedAt:     s.CapturedAt,
		ElapsedSeconds: s.ElapsedSeconds,
		Interfaces:     make(map[string]rateView, len(s.Interfaces)),
		Order:          s.Order,
		Totals: map[core.Category]rateView{
			core.CategoryWired:    newTotalsView(s.Totals.Wired, unit),
			core.CategoryWireless: newTotalsView(s.Totals.Wireless, unit),
			core.CategoryGlobal:   newTotalsView(s.Totals.Global, unit),
		},
	}
	for name, r := range s.Interfaces {
		v.Interfaces[name] = newRateView(r.DownloadRate, r.UploadRate, r.RawCounters, unit)
	}
	return v
}

func newRouter(p statusProvider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		st := p.Status()
		c.JSON(http.StatusOK, gin.H{
			"status":               "ok",
			"available":            st.Available,
			"last_success":         st.LastSuccess,
			"consecutive_failures": st.ConsecutiveFailures,
		})
	})

	stats := r.Group("/stats")
	stats.GET("", func(c *gin.Context) {
		s, unit, ok := currentStats(c, p)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newStatsView(s, unit))
	})
	stats.GET("/interfaces/:name", func(c *gin.Context) {
		s, unit, ok := currentStats(c, p)
		if !ok {
			return
		}
		ifc, found := s.Interfaces[c.Param("name")]
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown interface"})
			return
		}
		c.JSON(http.StatusOK, newRateView(ifc.DownloadRate, ifc.UploadRate, ifc.RawCounters, unit))
	})
	stats.GET("/totals/:category", func(c *gin.Context) {
		s, unit, ok := currentStats(c, p)
		if !ok {
			return
		}
		t, found := s.Totals.Get(core.Category(c.Param("category")))
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
			return
		}
		c.JSON(http.StatusOK, newTotalsView(t, unit))
	})

	return r
}

// currentStats writes an error response and returns false when no fresh
// stats can be served.
func currentStats(c *gin.Context, p statusProvider) (*core.Stats, rate.Unit, bool) {
	unit, err := rate.ParseUnit(c.Query("unit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	st := p.Status()
	if !st.Available {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      "router unavailable",
			"last_error": st.LastError,
		})
		return nil, "", false
	}
	return st.Stats, unit, true
}

func requestLogger() gin.HandlerFunc {
	log := logging.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}
