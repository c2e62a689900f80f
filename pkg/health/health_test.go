package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, handler http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", passing())
	h.AddLivenessCheck("db", failing("connection refused"))

	// Checks start healthy.
	status, body := get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)

	// Two failures stay below the default threshold.
	runN(h.liveness[1], 2)
	status, _ = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, status)

	runN(h.liveness[1], 1)
	status, body = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"db": "connection refused"}, body.Checks)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", failing("timeout"), WithThresholds(1, 2))

	status, body := get(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])
	assert.False(t, h.IsReady())

	h.SetReady(true)
	status, _ = get(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, h.IsReady())

	runN(h.readiness[0], 1)
	status, body = get(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, map[string]string{"postgres": "timeout"}, body.Checks)
	assert.False(t, h.IsReady())

	h.SetReady(false)
	_, body = get(t, h.ReadyEndpoint)
	assert.Len(t, body.Checks, 2)
}

func TestCheckRecovery(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	c := newCheck("flaky", func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(2, 2))

	runN(c, 2)
	assert.Equal(t, "down", c.failure())

	fail.Store(false)
	runN(c, 1)
	assert.NotEmpty(t, c.failure(), "one success is below the success threshold")
	runN(c, 1)
	assert.Empty(t, c.failure())
}

func TestCheckTimeout(t *testing.T) {
	c := newCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond), WithThresholds(1, 1))

	runN(c, 1)
	assert.Contains(t, c.failure(), "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.AddReadinessCheck("counter", func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
	time.Sleep(20 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("a", passing())
	h.AddReadinessCheck("b", failing("nope"))
	h.SetReady(true)

	h.Start(context.Background(), time.Millisecond)
	defer h.Stop()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				w := httptest.NewRecorder()
				h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				_ = h.IsReady()
			}
		}()
	}
	wg.Wait()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, PingCheck(pinger{})(ctx))
	err := PingCheck(pinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))
}
