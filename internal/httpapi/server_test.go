package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weather-alert-bot/application/scheduler"
	"weather-alert-bot/internal/infrastructure/persistence/journal"
	"weather-alert-bot/internal/notifier"
)

type staticJobs []scheduler.JobStatus

func (s staticJobs) Jobs() []scheduler.JobStatus { return s }

type staticStats []notifier.Stats

func (s staticStats) Stats() []notifier.Stats { return s }

type fakeDeliveries struct {
	gotLimit int
	items    []journal.Delivery
	err      error
}

func (f *fakeDeliveries) Recent(_ context.Context, limit int) ([]journal.Delivery, error) {
	f.gotLimit = limit
	return f.items, f.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	start := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	now := start
	s := New(":0", Deps{Service: "weather-alert-bot", Now: func() time.Time { return now }})
	now = start.Add(90 * time.Second)

	rec := get(t, s.Handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "weather-alert-bot" || body["uptime"] != "1m30s" {
		t.Errorf("body = %v", body)
	}
}

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthz_Checks(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
		wantRedis  string
	}{
		{"redis up", nil, http.StatusOK, "ok", "ok"},
		{"redis down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "degraded", "dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", Deps{Checks: map[string]HealthChecker{
				"redis": checkFunc(func(context.Context) error { return tt.err }),
			}})

			rec := get(t, s.Handler(), "/healthz")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.wantStatus || body["redis"] != tt.wantRedis {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestJobs(t *testing.T) {
	jobs := staticJobs{
		{Name: "daily-push", Schedule: "daily at 08:00 Asia/Shanghai", Runs: 1},
		{Name: "rain-check", Schedule: "every 15m0s", LastError: "rain check: boom"},
	}
	s := New(":0", Deps{Jobs: jobs})

	rec := get(t, s.Handler(), "/jobs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []scheduler.JobStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Name != "daily-push" || got[1].LastError != "rain check: boom" {
		t.Errorf("jobs = %+v", got)
	}

	if rec := get(t, New(":0", Deps{}).Handler(), "/jobs"); rec.Body.String() != "[]\n" {
		t.Errorf("empty jobs body = %q, want []", rec.Body.String())
	}
}

func TestOptionalRoutes(t *testing.T) {
	s := New(":0", Deps{})
	for _, path := range []string{"/stats", "/deliveries"} {
		if rec := get(t, s.Handler(), path); rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404 when not configured", path, rec.Code)
		}
	}

	s = New(":0", Deps{Stats: staticStats{{Channel: "feishu", Sent: 3, Failed: 1}}})
	rec := get(t, s.Handler(), "/stats")
	var stats []notifier.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats) != 1 || stats[0].Sent != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDeliveries(t *testing.T) {
	d := &fakeDeliveries{items: []journal.Delivery{{ID: "a", Channel: "feishu", Success: true}}}
	s := New(":0", Deps{Deliveries: d})

	tests := []struct {
		path      string
		wantCode  int
		wantLimit int
	}{
		{"/deliveries", http.StatusOK, defaultDeliveryLimit},
		{"/deliveries?limit=5", http.StatusOK, 5},
		{"/deliveries?limit=0", http.StatusBadRequest, 0},
		{"/deliveries?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		d.gotLimit = 0
		rec := get(t, s.Handler(), tt.path)
		if rec.Code != tt.wantCode || d.gotLimit != tt.wantLimit {
			t.Errorf("%s: status %d limit %d, want %d/%d", tt.path, rec.Code, d.gotLimit, tt.wantCode, tt.wantLimit)
		}
	}

	d.err = errors.New("db locked")
	if rec := get(t, s.Handler(), "/deliveries"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on journal error", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(":0", Deps{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /healthz status = %d, want 405", rec.Code)
	}
}

func TestStartShutdown(t *testing.T) {
	s := New("127.0.0.1:0", Deps{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
