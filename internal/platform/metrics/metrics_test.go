package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_Handler_exposes_counters(t *testing.T) {
	m := New()
	m.ObserveFrame(false, 0, 0, 0)
	m.ObserveFrame(true, 3, 15, 50)
	m.IncAlertsDispatched()
	m.IncCollaboratorFailure("imgbb")

	called := false
	rec := httptest.NewRecorder()
	m.Handler(func() { called = true }).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !called {
		t.Error("updateGauges should run before scrape")
	}
	body := rec.Body.String()
	for _, want := range []string{
		"fall_monitor_frames_total 2",
		"fall_monitor_frames_unmeasured_total 1",
		"fall_monitor_alerts_dispatched_total 1",
		"fall_monitor_classification 3",
		"fall_monitor_abnormal_streak 15",
		`fall_monitor_collaborator_failures_total{collaborator="imgbb"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func TestRequestMiddleware_counts_errors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/report", nil))

	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "fall_monitor_errors_total 1") {
		t.Errorf("expected one error counted:\n%s", rec.Body.String())
	}
}
