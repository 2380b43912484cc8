package routerapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/irctrakz/routertraffic/pkg/core"
)

const (
	testUser  = "admin"
	testPass  = "s3cret"
	testToken = "7F3A9C21B0"
)

// mockClock is a manually advanced clock.
type mockClock struct {
	mu      sync.Mutex
	current time.Time
}

func newMockClock() *mockClock {
	return &mockClock{current: time.Unix(1700000000, 0)}
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// fakeRouter emulates the router's login page and LAN statistics endpoint.
type fakeRouter struct {
	mu sync.Mutex

	authStatus  int
	setCookies  []string
	statsQueue  []int
	statsBody   string
	statsDelay  time.Duration
	redirectHit int

	authCalls   int
	statsCalls  int
	lastCookie  string
	lastUser    string
	lastPass    string
	lastAuthRaw string
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		authStatus: http.StatusFound,
		setCookies: []string{"SESSIONID=" + testToken + "; Path=/; HttpOnly"},
		statsBody:  statsJSON(row("eth0", 0, 0), row("wl0", 0, 0)),
	}
}

func (f *fakeRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case authPath:
		f.authCalls++
		f.lastAuthRaw = r.Header.Get("Authorization")
		user, pass, ok := r.BasicAuth()
		f.lastUser, f.lastPass = user, pass
		if !ok || user != testUser || pass != testPass {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		for _, c := range f.setCookies {
			w.Header().Add("Set-Cookie", c)
		}
		if f.authStatus >= 300 && f.authStatus < 400 {
			w.Header().Set("Location", "/redirected")
		}
		w.WriteHeader(f.authStatus)
	case "/redirected":
		f.redirectHit++
		w.WriteHeader(http.StatusOK)
	case statsPath:
		f.statsCalls++
		f.lastCookie = r.Header.Get("Cookie")
		if f.statsDelay > 0 {
			f.mu.Unlock()
			time.Sleep(f.statsDelay)
			f.mu.Lock()
		}
		status := http.StatusOK
		if len(f.statsQueue) > 0 {
			status = f.statsQueue[0]
			f.statsQueue = f.statsQueue[1:]
		} else if f.lastCookie != "SESSIONID="+testToken {
			status = http.StatusUnauthorized
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, f.statsBody)
		}
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeRouter) setBody(body string) {
	f.mu.Lock()
	f.statsBody = body
	f.mu.Unlock()
}

func (f *fakeRouter) queueStats(statuses ...int) {
	f.mu.Lock()
	f.statsQueue = append(f.statsQueue, statuses...)
	f.mu.Unlock()
}

func (f *fakeRouter) calls() (auth, stats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls, f.statsCalls
}

// row renders one statistics row with rx at column 0 and tx at column 8.
func row(name string, rx, tx uint64) string {
	cells := make([]string, core.RawCounterCount)
	for i := range cells {
		cells[i] = "0"
	}
	cells[core.RxBytesIndex] = fmt.Sprint(rx)
	cells[core.TxBytesIndex] = fmt.Sprint(tx)
	return "<tr><td>" + name + "</td><td>" + strings.Join(cells, "</td><td>") + "</td></tr>"
}

func statsJSON(rows ...string) string {
	b, _ := json.Marshal(map[string]string{"stats": strings.Join(rows, "")})
	return string(b)
}

func newTestClient(t *testing.T, f *fakeRouter, clock core.Clock) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	creds := core.Credentials{
		Host:     strings.TrimPrefix(srv.URL, "http://"),
		Username: testUser,
		Password: testPass,
	}
	return NewClient(creds, Config{Timeout: 2 * time.Second, Clock: clock}), srv
}
