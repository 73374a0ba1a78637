package security_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/security"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersSetBaseline(t *testing.T) {
	handler := security.Headers{}.Middleware(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestHeadersHSTSOnlyOverTLS(t *testing.T) {
	handler := security.Headers{EnableHSTS: true, HSTSMaxAge: 600, HSTSIncludeSubdomains: true}.Middleware(okHandler())

	rec := httptest.NewRecorder()
	plain := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	handler.ServeHTTP(rec, plain)
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	secure := httptest.NewRequest(http.MethodGet, "https://api.example.com/api/v1/products", nil)
	secure.TLS = &tls.ConnectionState{}
	handler.ServeHTTP(rec, secure)
	require.Equal(t, "max-age=600; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}
