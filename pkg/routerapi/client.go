// Package routerapi talks to the router's web management interface: it keeps
// a cookie session alive and turns the LAN statistics page into rates.
package routerapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/irctrakz/routertraffic/pkg/core"
	"github.com/irctrakz/routertraffic/pkg/htmltable"
	"github.com/irctrakz/routertraffic/pkg/logging"
	"github.com/irctrakz/routertraffic/pkg/rate"
)

const (
	statsPath   = "/ss-json/fgw.lanstatistics.json"
	statsField  = "stats"
	maxBodySize = 4 << 20

	// DefaultTimeout bounds every request to the router.
	DefaultTimeout = 10 * time.Second
)

// Config contains configuration for a router client.
type Config struct {
	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Rate configures the counter width and interface classification.
	Rate rate.Config

	// HTTPClient overrides the HTTP client. Redirect following is always disabled.
	HTTPClient *http.Client

	// Clock overrides the wall clock used to timestamp snapshots.
	Clock core.Clock
}

// Client polls one router. All state (session token, previous snapshot) is
// owned by the value; separate clients are independent.
type Client struct {
	creds      core.Credentials
	baseURL    string
	httpClient *http.Client
	clock      core.Clock
	log        *logrus.Entry

	// mu serializes Authenticate and GetStats.
	mu    sync.Mutex
	token string
	calc  *rate.Calculator
}

var _ core.StatsSource = (*Client)(nil)

// NewClient creates a client for the router at creds.Host.
func NewClient(creds core.Credentials, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := &http.Client{}
	if cfg.HTTPClient != nil {
		*hc = *cfg.HTTPClient
	}
	if hc.Timeout == 0 || hc.Timeout > timeout {
		hc.Timeout = timeout
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	clock := cfg.Clock
	if clock == nil {
		clock = core.RealClock{}
	}

	host := strings.TrimSuffix(creds.Host, "/")
	return &Client{
		creds:      creds,
		baseURL:    "http://" + host,
		httpClient: hc,
		clock:      clock,
		log:        logging.WithComponent("routerapi").WithField("host", host),
		calc:       rate.NewCalculator(cfg.Rate),
	}
}

// GetStats runs one poll cycle: it logs in when needed, fetches the LAN
// statistics and derives rates against the previous successful cycle. A
// 401 from the stats endpoint triggers exactly one re-login and one retry.
// A failed cycle leaves the rate baseline untouched.
func (c *Client) GetStats(ctx context.Context) (*core.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		if err := c.authenticateLocked(ctx); err != nil {
			return nil, err
		}
	}

	body, err := c.fetchStatsLocked(ctx)
	if isSessionRejected(err) {
		c.log.Warn("session rejected by stats endpoint, re-authenticating")
		c.token = ""
		if err := c.authenticateLocked(ctx); err != nil {
			return nil, err
		}
		body, err = c.fetchStatsLocked(ctx)
		if isSessionRejected(err) {
			c.token = ""
		}
	}
	if err != nil {
		return nil, err
	}

	fragment, err := decodeStats(body)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	rows := htmltable.Parse(fragment)
	stats := c.calc.Compute(rows, now)
	c.calc.Commit(rows, now)

	c.log.WithFields(logrus.Fields{
		"interfaces": len(rows),
		"elapsed":    stats.ElapsedSeconds,
	}).Debug("stats fetched")
	return &stats, nil
}

// Baseline returns a copy of the snapshot the next cycle will diff against.
func (c *Client) Baseline() core.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calc.Previous()
}

func (c *Client) fetchStatsLocked(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statsPath, nil)
	if err != nil {
		return nil, &TransportError{Op: "fetch stats", Err: err}
	}
	req.Header.Set("Cookie", sessionCookieName+"="+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "fetch stats", Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &AuthenticationError{Reason: "session rejected by stats endpoint", StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "fetch stats", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: "read stats", Err: err}
	}
	return body, nil
}

func isSessionRejected(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusUnauthorized
}

// decodeStats returns the HTML fragment held in the "stats" string field.
func decodeStats(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &MalformedResponseError{Reason: "body is not valid JSON"}
	}
	field := gjson.GetBytes(body, statsField)
	if !field.Exists() {
		return "", &MalformedResponseError{Reason: fmt.Sprintf("%q field missing", statsField)}
	}
	if field.Type != gjson.String {
		return "", &MalformedResponseError{Reason: fmt.Sprintf("%q field is %s, not a string", statsField, field.Type)}
	}
	return field.String(), nil
}
