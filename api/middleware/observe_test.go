package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
)

func TestRequestIDEchoesOrReplaces(t *testing.T) {
	var seen, fromCtx string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
		fromCtx = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "edge-4f9a1c22")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "edge-4f9a1c22" || fromCtx != seen {
		t.Fatalf("well-formed id should be echoed, got %q (context %q)", seen, fromCtx)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "short")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "short" {
		t.Fatalf("ids under eight characters should be replaced")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\n{\"level\":\"error\"}")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if strings.Contains(seen, "level") || len(seen) != 36 {
		t.Fatalf("malformed id should be replaced by a uuid, got %q", seen)
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := Recoverer(nil, metrics.NewHTTPMetrics(reg))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil offer")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/order-requests", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "nil offer") {
		t.Fatalf("panic value leaked to client: %s", rec.Body.String())
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "http_handler_panics_total" && f.GetMetric()[0].GetCounter().GetValue() == 1 {
			return
		}
	}
	t.Fatalf("expected the panic to be counted")
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	h := Recoverer(nil, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate")
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestLoggingRecordsRoutePattern(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/order-requests/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/order-requests/42", nil))

	line := buf.String()
	for _, want := range []string{`"route":"/order-requests/{id}"`, `"status":404`, `"bytes":2`, `"message":"http.request"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestCORSAllowsOnlyConfiguredOrigins(t *testing.T) {
	h := CORS(config.CORSConfig{AllowedOrigins: []string{"https://partsmarket.app"}})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/order-requests", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", idempotencyHeader)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if got := preflight("https://partsmarket.app").Header().Get("Access-Control-Allow-Origin"); got != "https://partsmarket.app" {
		t.Fatalf("expected configured origin to be allowed, got %q", got)
	}
	if got := preflight("https://evil.example").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow header for foreign origin: %q", got)
	}
}
