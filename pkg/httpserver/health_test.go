package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featuregate/pkg/httpserver"
)

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func serveHealth(t *testing.T, h http.Handler) (int, healthBody) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, body
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	code, body := serveHealth(t, httpserver.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body.Status)
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("down") }

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()

		code, body := serveHealth(t, httpserver.ReadinessHandler(nil, time.Second,
			httpserver.Check{Name: "postgres", Fn: ok},
			httpserver.Check{Name: "redis", Fn: ok},
		))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
	})

	t.Run("one check fails", func(t *testing.T) {
		t.Parallel()

		code, body := serveHealth(t, httpserver.ReadinessHandler(nil, time.Second,
			httpserver.Check{Name: "postgres", Fn: ok},
			httpserver.Check{Name: "redis", Fn: fail},
		))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "failed", body.Checks["redis"])
		assert.Equal(t, "ok", body.Checks["postgres"])
	})

	t.Run("timeout reaches checks", func(t *testing.T) {
		t.Parallel()

		slow := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
		code, _ := serveHealth(t, httpserver.ReadinessHandler(nil, 10*time.Millisecond,
			httpserver.Check{Name: "slow", Fn: slow},
		))
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}
