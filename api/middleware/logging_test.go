package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evanhart/storefront-backend/pkg/logger"
)

func TestLoggingRecordsStatusAndPath(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/missing", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected wrapped writer to pass 404 through, got %d", resp.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"status":404`) {
		t.Fatalf("expected logged status 404, got %s", out)
	}
	if !strings.Contains(out, `"path":"/api/v1/orders/missing"`) {
		t.Fatalf("expected logged path, got %s", out)
	}
}

func TestLoggingDefaultsImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`)) // no explicit WriteHeader
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("expected implicit 200 in request log, got %s", buf.String())
	}
}

func TestLoggingNilLoggerStillServes(t *testing.T) {
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}
