package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lzetgo0/SIC7/internal/observation"
	"github.com/Lzetgo0/SIC7/sic7/metrics"
)

type connected bool

func (c connected) IsConnected() bool { return bool(c) }

func newTestLog(n int) *observation.Log {
	l := observation.New(0)
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		l.Append(observation.Observation{
			Reading: observation.Reading{
				Timestamp:   base.Add(time.Duration(i) * time.Second),
				Temperature: 20 + float64(i),
				Humidity:    50,
			},
			Predicted: "Normal",
		})
	}
	return l
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListObservations(t *testing.T) {
	h := NewRouter(testr.New(t), newTestLog(5), connected(true), nil)

	rec := get(t, h, "/observations")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var all []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d observations, want 5", len(all))
	}
	for _, key := range []string{"timestamp", "temperature", "humidity", "predicted"} {
		if _, ok := all[0][key]; !ok {
			t.Errorf("observation has no %q field: %v", key, all[0])
		}
	}
	if got := rec.Header().Get("X-Observations-Total"); got != "5" {
		t.Errorf("X-Observations-Total = %q, want 5", got)
	}

	rec = get(t, h, "/observations?limit=2")
	var tail []observation.Observation
	if err := json.Unmarshal(rec.Body.Bytes(), &tail); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(tail) != 2 || tail[0].Temperature != 23 || tail[1].Temperature != 24 {
		t.Errorf("limit=2 returned %+v", tail)
	}

	for _, bad := range []string{"-1", "abc"} {
		if rec := get(t, h, "/observations?limit="+bad); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status %d, want 400", bad, rec.Code)
		}
	}
}

func TestEmptyLogIsAnEmptyArray(t *testing.T) {
	h := NewRouter(testr.New(t), observation.New(0), connected(true), nil)
	rec := get(t, h, "/observations")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
	if rec := get(t, h, "/observations/latest"); rec.Code != http.StatusNotFound {
		t.Errorf("latest on empty log: status %d, want 404", rec.Code)
	}
}

func TestLatestObservation(t *testing.T) {
	h := NewRouter(testr.New(t), newTestLog(3), connected(true), nil)
	rec := get(t, h, "/observations/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var o observation.Observation
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatal(err)
	}
	if o.Temperature != 22 || o.Predicted != "Normal" {
		t.Errorf("latest = %+v", o)
	}
}

func TestHealth(t *testing.T) {
	l := newTestLog(1)
	if rec := get(t, NewRouter(testr.New(t), l, connected(true), nil), "/health"); rec.Code != http.StatusOK {
		t.Errorf("connected: status %d, want 200", rec.Code)
	}
	rec := get(t, NewRouter(testr.New(t), l, connected(false), nil), "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disconnected: status %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mqtt_disconnected") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMetricsAndCORS(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipeline(reg)
	m.Received.Inc()

	h := NewRouter(testr.New(t), newTestLog(0), connected(true), reg)
	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sic7_messages_received_total 1") {
		t.Errorf("metrics output lacks the received counter:\n%s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/observations", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("missing Access-Control-Allow-Origin header")
	}
}

func TestWrongMethod(t *testing.T) {
	h := NewRouter(testr.New(t), newTestLog(1), connected(true), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/observations", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status %d, want 405", rec.Code)
	}
}
