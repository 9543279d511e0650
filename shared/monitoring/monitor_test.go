package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitorHealth(t *testing.T) {
	m := NewMonitor()

	if !m.IsHealthy() {
		t.Error("IsHealthy() = false before any run")
	}
	if got := m.GetStatusSummary(); got != "No runs yet" {
		t.Errorf("GetStatusSummary() = %q, want %q", got, "No runs yet")
	}

	m.RecordPartialFailure(errors.New("1/3 keywords failed"), time.Second)
	if !m.IsHealthy() {
		t.Error("IsHealthy() = false after a partial failure")
	}

	m.RecordCriticalFailure(errors.New("all keywords failed"), time.Second)
	if m.IsHealthy() {
		t.Error("IsHealthy() = true after a critical failure")
	}
	if got := m.GetStatusSummary(); !strings.Contains(got, "all keywords failed") {
		t.Errorf("GetStatusSummary() = %q, want failure reason", got)
	}

	m.RecordSuccess("3 briefs", time.Second)
	if !m.IsHealthy() {
		t.Error("IsHealthy() = false after a success")
	}
	if got := m.GetStatusSummary(); !strings.Contains(got, "3 briefs") || !strings.Contains(got, "1 partial failures") {
		t.Errorf("GetStatusSummary() = %q", got)
	}
}

func TestMonitorCountsRuns(t *testing.T) {
	before := testutil.ToFloat64(Metrics.WatchRuns.WithLabelValues(outcomeSuccess))

	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordSuccess("ok", time.Millisecond)
			_ = m.GetStatusSummary()
		}()
	}
	wg.Wait()

	after := testutil.ToFloat64(Metrics.WatchRuns.WithLabelValues(outcomeSuccess))
	if after-before != 10 {
		t.Errorf("success runs counted = %v, want 10", after-before)
	}
}

func TestHealthHandlers(t *testing.T) {
	m := NewMonitor()
	h := NewHealthServer(m, "0")

	tests := []struct {
		name       string
		setup      func()
		path       string
		wantStatus int
		wantBody   string
	}{
		{"healthy before runs", func() {}, "/health", http.StatusOK, "OK - No runs yet"},
		{"unhealthy after critical", func() { m.RecordCriticalFailure(errors.New("boom"), 0) }, "/health", http.StatusServiceUnavailable, "Service unhealthy"},
		{"status always 200", func() {}, "/status", http.StatusOK, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			rec := httptest.NewRecorder()
			h.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
