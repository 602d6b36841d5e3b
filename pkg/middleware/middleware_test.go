package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"contactfix/pkg/logger"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestRequestLogging_SetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))

	if seen == "" {
		t.Fatal("request id missing from context")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q != context id %q", rec.Header().Get(RequestIDHeader), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "caller-supplied" {
		t.Errorf("expected caller id to be reused, got %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	h := RequestTimeout(20 * time.Millisecond)(slow)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	fast := RequestTimeout(time.Second)(okHandler(`{"ok":true}`))
	rec = httptest.NewRecorder()
	fast.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"ok":true}` {
		t.Errorf("fast handler: status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(okHandler("{}"))

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json body", http.MethodPost, `{"ids":[]}`, "application/json; charset=utf-8", http.StatusOK},
		{"form body", http.MethodPost, "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"bodyless fix", http.MethodPost, "", "", http.StatusOK},
		{"get ignored", http.MethodGet, "", "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body == "" {
				req = httptest.NewRequest(tt.method, "/api/v1/contacts", nil)
			} else {
				req = httptest.NewRequest(tt.method, "/api/v1/contacts", strings.NewReader(tt.body))
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(okHandler("{}"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ids":["a","b"]}`)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestIdempotency_ReplaysSuccessfulPost(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	calls := 0
	h := Idempotency(store, "Idempotency-Key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"changed":true}}`))
	}))

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Idempotency-Key", "fix-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("/api/v1/contacts/id/a/fix")
	second := send("/api/v1/contacts/id/a/fix")

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("replayed body %q != original %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replay should be flagged")
	}

	send("/api/v1/contacts/id/b/fix")
	if calls != 2 {
		t.Errorf("same key on another route must not replay, calls = %d", calls)
	}
}

func TestIdempotency_SkipsFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts/fix", nil)
	req.Header.Set("Idempotency-Key", "k")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if store.Len() != 0 {
		t.Errorf("failed responses must not be cached, store has %d", store.Len())
	}
}

func TestClientRateLimiter(t *testing.T) {
	rl := NewClientRateLimiter(2, time.Minute, nil, logger.Discard())
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request within the window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own window")
	}
	if !rl.Allow("") {
		t.Error("empty key is never limited")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewClientRateLimiter(1, time.Minute, nil, logger.Discard())
	defer rl.Stop()
	h := RateLimit(rl)(okHandler("{}"))

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
		r.RemoteAddr = "10.0.0.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	if rec := req(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := req()
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestDefaultKeyExtractor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.9:41000"
	if got := DefaultKeyExtractor(r); got != "192.168.1.9" {
		t.Errorf("got %q, want remote IP", got)
	}
	r.Header.Set(ClientIDHeader, "crm-sync")
	if got := DefaultKeyExtractor(r); got != "crm-sync" {
		t.Errorf("got %q, want client id", got)
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	h := m.Middleware()(okHandler("{}"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/contacts/id/65f1/preview", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/contacts/id/77aa/preview", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/contacts/id/:id/preview", "200"))
	if got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/api/v1/contacts":                     "/api/v1/contacts",
		"/api/v1/contacts/id/abc":              "/api/v1/contacts/id/:id",
		"/api/v1/contacts/id/abc/fix":          "/api/v1/contacts/id/:id/fix",
		"/api/v1/contacts/phone/+250788123456": "/api/v1/contacts/phone/:phone",
		"/health":                              "/health",
	}
	for in, want := range tests {
		if got := RouteLabel(in); got != want {
			t.Errorf("RouteLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
