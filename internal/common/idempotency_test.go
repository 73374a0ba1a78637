package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/common"
)

func TestIdempotencyMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	idem := common.Idem{R: client, TTL: time.Minute}
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRequest(http.MethodPut, "/orders/1", nil)
	first.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusNoContent, rec.Code)

	replay := httptest.NewRequest(http.MethodPut, "/orders/1", nil)
	replay.Header.Set("Idempotency-Key", "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, replay)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyMiddlewareWithoutKey(t *testing.T) {
	idem := common.Idem{}
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/orders/1", nil))
	}
	require.Equal(t, 2, calls)
}
