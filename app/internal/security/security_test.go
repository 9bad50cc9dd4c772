package security

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"statuspage/app/internal/ratelimit"
)

func noop(w http.ResponseWriter, r *http.Request) {}

// --- SecureHeaders ---

func TestSecureHeaders_SetsAllHeaders(t *testing.T) {
	handler := SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	expected := map[string]string{
		"Content-Security-Policy":   "",
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Referrer-Policy":           "no-referrer",
		"Permissions-Policy":        "geolocation=(), microphone=(), camera=()",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	}

	for header, expectedVal := range expected {
		got := rr.Header().Get(header)
		if got == "" {
			t.Errorf("expected header %q to be set", header)
		}
		if expectedVal != "" && got != expectedVal {
			t.Errorf("header %q: expected %q, got %q", header, expectedVal, got)
		}
	}
}

func TestSecureHeaders_CSP_ContentsCheck(t *testing.T) {
	handler := SecureHeaders(http.HandlerFunc(noop))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	csp := rr.Header().Get("Content-Security-Policy")
	for _, c := range []string{"default-src 'none'", "frame-ancestors 'none'"} {
		if !strings.Contains(csp, c) {
			t.Errorf("CSP missing directive %q", c)
		}
	}
}

func TestSecureHeaders_CallsNext(t *testing.T) {
	called := false
	handler := SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !called {
		t.Error("next handler was not called")
	}
}

// --- RateLimit ---

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	lim := ratelimit.New(ratelimit.Config{TokensPerMinute: 2, MaxTokens: 2, ErrorMessage: "Too many requests."})
	defer lim.Stop()
	handler := RateLimit(lim)(http.HandlerFunc(noop))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "error" || body["message"] != "Too many requests." {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	lim := ratelimit.New(ratelimit.Config{TokensPerMinute: 1, MaxTokens: 1})
	defer lim.Stop()
	handler := RateLimit(lim)(http.HandlerFunc(noop))

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", ip, rr.Code)
		}
	}
}

// --- RequestID ---

func TestRequestID_Generates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected uuid request id, got %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header should echo the id")
	}
}

func TestRequestID_ReusesValidInbound(t *testing.T) {
	in := uuid.NewString()
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, in)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != in {
		t.Errorf("expected inbound id %q, got %q", in, seen)
	}
}

func TestRequestID_ReplacesGarbage(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == "<script>" || seen == "" {
		t.Errorf("expected a fresh id, got %q", seen)
	}
}

// --- Logging ---

func TestLogging_WritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}), RequestID, Logging(log))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/status", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["path"] != "/api/status" || line["method"] != "GET" {
		t.Errorf("unexpected log line %v", line)
	}
	if line["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", line["status"])
	}
	if line["bytes"] != float64(len("short and stout")) {
		t.Errorf("expected byte count, got %v", line["bytes"])
	}
	if line["request_id"] == "" || line["request_id"] == nil {
		t.Error("expected request_id field")
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(noop), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "a,b,c" {
		t.Errorf("expected a,b,c got %v", order)
	}
}

// --- ClientIP ---

func TestClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")

	if ip := ClientIP(req); ip != "203.0.113.50" {
		t.Errorf("expected first IP from XFF, got %q", ip)
	}
}

func TestClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.100:54321"

	if ip := ClientIP(req); ip != "192.168.1.100" {
		t.Errorf("expected '192.168.1.100', got %q", ip)
	}
}

func TestClientIP_RemoteAddr_NoPort(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.100"

	if ip := ClientIP(req); ip != "192.168.1.100" {
		t.Errorf("expected '192.168.1.100', got %q", ip)
	}
}

func TestClientIP_XFF_WhitespaceHandling(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "  203.0.113.1  , 10.0.0.1")

	if ip := ClientIP(req); ip != "203.0.113.1" {
		t.Errorf("expected trimmed IP, got %q", ip)
	}
}
