package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// failN drives c past its failure threshold.
func failN(c *checkConfig) {
	for range c.failureThreshold {
		c.run(context.Background())
	}
}

type probeBody struct {
	Status string
	Checks map[string]string
}

func decodeProbe(t *testing.T, w *httptest.ResponseRecorder) probeBody {
	t.Helper()
	var body probeBody
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Str()
			body.Status = v
			return err
		case "checks":
			body.Checks = make(map[string]string)
			return d.Obj(func(d *jx.Decoder, name string) error {
				v, err := d.Str()
				body.Checks[name] = v
				return err
			})
		default:
			return d.Skip()
		}
	}))
	return body
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *Health)
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "NoChecks",
			setup:      func(*Health) {},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "AllPassing",
			setup: func(h *Health) {
				h.AddLivenessCheck("a", time.Second, passingCheck())
				h.AddLivenessCheck("b", time.Second, passingCheck())
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "BelowThreshold",
			setup: func(h *Health) {
				h.AddLivenessCheck("flaky", time.Second, failingCheck("temporary"))
				h.livenessChecks[0].run(context.Background())
				h.livenessChecks[0].run(context.Background())
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "Failing",
			setup: func(h *Health) {
				h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))
				failN(h.livenessChecks[0])
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantChecks: map[string]string{"db": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			tt.setup(h)

			w := httptest.NewRecorder()
			h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			body := decodeProbe(t, w)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *Health)
		wantCode   int
		wantChecks []string
	}{
		{
			name:     "ReadyNoChecks",
			setup:    func(h *Health) { h.SetReady(true) },
			wantCode: http.StatusOK,
		},
		{
			name: "ReadyAndPassing",
			setup: func(h *Health) {
				h.AddReadinessCheck("postgres", time.Second, passingCheck())
				h.SetReady(true)
			},
			wantCode: http.StatusOK,
		},
		{
			name: "NotMarkedReady",
			setup: func(h *Health) {
				h.AddReadinessCheck("postgres", time.Second, passingCheck())
			},
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: []string{"_readiness"},
		},
		{
			name: "OneFailing",
			setup: func(h *Health) {
				h.AddReadinessCheck("postgres", time.Second, passingCheck())
				h.AddReadinessCheck("redis", time.Second, failingCheck("dial tcp: refused"))
				h.SetReady(true)
				failN(h.readinessChecks[1])
			},
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: []string{"redis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			tt.setup(h)

			w := httptest.NewRecorder()
			h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			body := decodeProbe(t, w)
			var names []string
			for name := range body.Checks {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.wantChecks, names)
		})
	}
}

func TestSetReadyToggles(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckRecoveryIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	failing := true
	h := New()
	h.AddReadinessCheck("redis", time.Second, func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	c := h.readinessChecks[0]

	for range 3 {
		c.run(ctx)
	}
	assert.False(t, c.isHealthy())
	assert.EqualError(t, c.getLastError(), "down")
	assert.Equal(t, 1, logs.FilterMessage("Health check failing").Len())

	failing = false
	c.run(ctx)
	assert.True(t, c.isHealthy())
	assert.NoError(t, c.getLastError())
	assert.Equal(t, 1, logs.FilterMessage("Health check recovered").Len())
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))
	h.AddReadinessCheck("postgres", time.Second, passingCheck())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()

	h.Stop()
	h.Stop()
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(100000)(ctx))
	err := GoroutineCountCheck(0)(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")

	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))

	assert.NoError(t, PingCheck(pingFunc(func(context.Context) error { return nil }))(ctx))
	refused := errors.New("refused")
	assert.ErrorIs(t, PingCheck(pingFunc(func(context.Context) error { return refused }))(ctx), refused)
}
