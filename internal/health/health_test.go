package health_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vladislavdragonenkov/minimarket/internal/health"
)

func TestHandlerHealthy(t *testing.T) {
	handler := health.NewHandler("test")
	handler.RegisterChecker("postgres", health.NewSimpleChecker("postgres", func() error { return nil }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response health.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if response.Status != health.StatusHealthy {
		t.Fatalf("expected healthy, got %s", response.Status)
	}
	if response.Version != "test" {
		t.Fatalf("unexpected version %q", response.Version)
	}
	if _, ok := response.Checks["postgres"]; !ok {
		t.Fatalf("postgres check missing from response")
	}
}

func TestHandlerUnhealthyComponent(t *testing.T) {
	handler := health.NewHandler("test")
	handler.RegisterChecker("postgres", health.NewSimpleChecker("postgres", func() error { return nil }))
	handler.RegisterChecker("kafka", health.NewSimpleChecker("kafka", func() error {
		return errors.New("broker unreachable")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var response health.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if response.Status != health.StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", response.Status)
	}
	if response.Checks["kafka"].Message != "broker unreachable" {
		t.Fatalf("unexpected kafka message %q", response.Checks["kafka"].Message)
	}
}

func TestReadinessHandler(t *testing.T) {
	handler := health.NewHandler("test")

	rec := httptest.NewRecorder()
	handler.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with no checkers, got %d", rec.Code)
	}

	handler.RegisterChecker("postgres", health.NewSimpleChecker("postgres", func() error {
		return errors.New("connection refused")
	}))

	rec = httptest.NewRecorder()
	handler.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	health.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
