package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irctrakz/routertraffic/pkg/core"
	"github.com/irctrakz/routertraffic/pkg/routerapi"
)

// scriptedSource returns queued results, then repeats the last one.
type scriptedSource struct {
	mu      sync.Mutex
	results []error
	delay   time.Duration

	calls       int32
	inFlight    int32
	maxInFlight int32
}

func (s *scriptedSource) Authenticate(context.Context) error { return nil }

func (s *scriptedSource) GetStats(ctx context.Context) (*core.Stats, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxInFlight, m, n) {
			break
		}
	}
	call := atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	var err error
	if len(s.results) > 0 {
		err = s.results[0]
		if len(s.results) > 1 {
			s.results = s.results[1:]
		}
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &core.Stats{
		Interfaces: map[string]core.InterfaceRate{"eth0": {DownloadRate: float64(call)}},
		Order:      []string{"eth0"},
	}, nil
}

func TestFirstRefreshFailure(t *testing.T) {
	src := &scriptedSource{results: []error{errors.New("connection refused")}}
	p := New(src, Config{Interval: time.Hour})

	err := p.FirstRefresh(context.Background())
	require.Error(t, err)

	st := p.Status()
	assert.False(t, st.Available)
	assert.Nil(t, st.Stats)
	assert.Equal(t, "connection refused", st.LastError)
	assert.Equal(t, 1, st.ConsecutiveFailures)
}

func TestPollKeepsLastGoodStatsOnFailure(t *testing.T) {
	timeout := &routerapi.TransportError{Op: "fetch stats", Err: errors.New("timeout")}
	src := &scriptedSource{results: []error{nil, timeout, timeout, nil}}
	var updates int32
	p := New(src, Config{Interval: time.Hour, OnUpdate: func(*core.Stats) { atomic.AddInt32(&updates, 1) }})

	require.NoError(t, p.FirstRefresh(context.Background()))
	assert.True(t, p.Status().Available)

	assert.Error(t, p.Poll(context.Background()))
	assert.Error(t, p.Poll(context.Background()))

	st := p.Status()
	assert.False(t, st.Available)
	require.NotNil(t, st.Stats)
	assert.Equal(t, 1.0, st.Stats.Interfaces["eth0"].DownloadRate)
	assert.Equal(t, 2, st.ConsecutiveFailures)
	assert.Equal(t, uint64(3), st.Polls)

	require.NoError(t, p.Poll(context.Background()))
	st = p.Status()
	assert.True(t, st.Available)
	assert.Empty(t, st.LastError)
	assert.Zero(t, st.ConsecutiveFailures)
	assert.Equal(t, 4.0, st.Stats.Interfaces["eth0"].DownloadRate)
	assert.Equal(t, int32(2), atomic.LoadInt32(&updates))
}

func TestRunPollsUntilCanceled(t *testing.T) {
	src := &scriptedSource{}
	p := New(src, Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&src.calls) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, p.Status().Available)
}

func TestPollsNeverOverlap(t *testing.T) {
	src := &scriptedSource{delay: 20 * time.Millisecond}
	p := New(src, Config{Interval: time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Poll(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), atomic.LoadInt32(&src.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.maxInFlight))
}

func TestStatusTimestamps(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1700000000, 0)}
	src := &scriptedSource{results: []error{nil, errors.New("boom")}}
	p := New(src, Config{Interval: time.Hour, Clock: clock})

	require.NoError(t, p.Poll(context.Background()))
	clock.t = clock.t.Add(time.Minute)
	require.Error(t, p.Poll(context.Background()))

	st := p.Status()
	assert.Equal(t, time.Unix(1700000000, 0), st.LastSuccess)
	assert.Equal(t, time.Unix(1700000060, 0), st.LastAttempt)
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }
