package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), WithRequestID)

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "req-123" {
		t.Fatalf("context request id = %q, want the inbound header", seen)
	}
	if rw.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("response header = %q, want req-123", rw.Header().Get(RequestIDHeader))
	}

	reqMinted := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	rwMinted := httptest.NewRecorder()
	h.ServeHTTP(rwMinted, reqMinted)
	if rwMinted.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a minted request id when none was sent")
	}
}

func TestWithRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithRecovery(logger))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rw.Code)
	}
}

func TestWithBodyLimit(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), WithBodyLimit(8))

	small := httptest.NewRequest(http.MethodPost, "http://example.com", strings.NewReader("ok"))
	rwSmall := httptest.NewRecorder()
	h.ServeHTTP(rwSmall, small)
	if rwSmall.Code != http.StatusOK {
		t.Fatalf("expected 200 for a body under the limit, got %d", rwSmall.Code)
	}

	big := httptest.NewRequest(http.MethodPost, "http://example.com", strings.NewReader(strings.Repeat("x", 64)))
	rwBig := httptest.NewRecorder()
	h.ServeHTTP(rwBig, big)
	if rwBig.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for a body over the limit, got %d", rwBig.Code)
	}
}
