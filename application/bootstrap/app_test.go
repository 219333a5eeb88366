package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"weather-alert-bot/internal/config"
)

var qweatherBodies = map[string]string{
	"/v7/weather/now": `{"code":"200","now":{"obsTime":"2024-07-01T07:50+08:00","temp":"26","icon":"100","text":"晴","windDir":"南风","windScale":"2","humidity":"60"}}`,
	"/v7/weather/24h": `{"code":"200","hourly":[]}`,
	"/v7/weather/3d":  `{"code":"200","daily":[{"fxDate":"2024-07-01","tempMax":"30","tempMin":"20","iconDay":"100","textDay":"晴","iconNight":"150","textNight":"晴","windDirDay":"南风","windScaleDay":"1-3","humidity":"60","precip":"0.0"}]}`,
	"/v7/warning/now": `{"code":"200","warning":[]}`,
}

func newQWeather(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := qweatherBodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSettings(t *testing.T, webhook, apiHost string, extra map[string]string) config.Settings {
	t.Helper()
	values := map[string]string{
		config.KeyWebhookURL:      webhook,
		config.KeyQWeatherKey:     "test-key",
		config.KeyAPIHost:         apiHost,
		config.KeyCoordinates:     "116.41,39.92",
		config.KeyLocationName:    "北京",
		config.KeyDailyPushHour:   "8",
		config.KeyDailyPushMinute: "0",
		config.KeyCheckInterval:   "15",
		config.KeyTimezone:        "Asia/Shanghai",
	}
	for k, v := range extra {
		values[k] = v
	}
	s, err := config.FromValues(values)
	if err != nil {
		t.Fatalf("FromValues() error = %v", err)
	}
	return s
}

type cards struct {
	mu     sync.Mutex
	titles []string
}

func (c *cards) add(title string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles = append(c.titles, title)
	return len(c.titles)
}

func (c *cards) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.titles...)
}

func newWebhook(t *testing.T, status int, got *cards, onSend func()) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Card struct {
				Header struct {
					Title struct {
						Content string `json:"content"`
					} `json:"title"`
				} `json:"header"`
			} `json:"card"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if got != nil {
			got.add(payload.Card.Header.Title.Content)
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"code":0,"msg":"success"}`))
		} else {
			w.Write([]byte(`404 page not found`))
		}
		if onSend != nil {
			onSend()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuild_RequiresSettings(t *testing.T) {
	if _, err := NewAppBuilder().Build(context.Background()); err == nil {
		t.Fatal("Build() without settings error = nil")
	}
}

func TestTestPush_Webhook(t *testing.T) {
	qw := newQWeather(t)

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"accepted", http.StatusOK, false},
		{"not found", http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := &cards{}
			hook := newWebhook(t, tt.status, got, nil)
			app, err := NewAppBuilder().WithSettings(testSettings(t, hook.URL, qw.URL, nil)).Build(context.Background())
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			defer app.Close()

			err = app.TestPush(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("TestPush() error = %v, wantErr %v", err, tt.wantErr)
			}
			if titles := got.list(); len(titles) != 1 || !strings.Contains(titles[0], "测试") {
				t.Errorf("webhook received %v, want one test card", titles)
			}
		})
	}
}

func TestBuild_OptionalComponents(t *testing.T) {
	mr := miniredis.RunT(t)
	qw := newQWeather(t)

	s := testSettings(t, config.ConsoleWebhook, qw.URL, map[string]string{
		config.KeyRedisEnabled:    "true",
		config.KeyRedisHost:       mr.Host(),
		config.KeyRedisPort:       mr.Port(),
		config.KeyNotifyRateLimit: "1",
		config.KeyJournalEnabled:  "true",
		config.KeyJournalDriver:   "sqlite3",
		config.KeyJournalDSN:      ":memory:",
		config.KeyHTTPEnabled:     "true",
		config.KeyHTTPAddr:        "127.0.0.1:0",
	})

	app, err := NewAppBuilder().WithSettings(s).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer app.Close()

	if app.redis == nil || app.journal == nil || app.http == nil {
		t.Fatalf("optional components not wired: redis=%v journal=%v http=%v", app.redis != nil, app.journal != nil, app.http != nil)
	}

	ctx := context.Background()
	if err := app.TestPush(ctx); err != nil {
		t.Fatalf("first TestPush() error = %v", err)
	}
	// лимит 1 в минуту, общий через redis
	if err := app.TestPush(ctx); err == nil {
		t.Error("second TestPush() error = nil, want rate limited")
	}

	deliveries, err := app.journal.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(deliveries) != 2 || !deliveries[0].Success && !deliveries[1].Success {
		t.Errorf("journal = %+v, want two deliveries with one success", deliveries)
	}

	rec := httptest.NewRecorder()
	app.http.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var health map[string]string
	json.Unmarshal(rec.Body.Bytes(), &health)
	if rec.Code != http.StatusOK || health["redis"] != "ok" {
		t.Errorf("/healthz = %d %v, want redis ok", rec.Code, health)
	}

	stats := app.Stats()
	if len(stats) == 0 {
		t.Error("Stats() is empty")
	}
	if len(app.Jobs()) != 2 {
		t.Errorf("Jobs() = %d, want 2", len(app.Jobs()))
	}
}

func TestBuild_RedisUnavailableFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	mr.Close()

	s := testSettings(t, config.ConsoleWebhook, "https://devapi.qweather.com", map[string]string{
		config.KeyRedisEnabled: "true",
		config.KeyRedisHost:    "127.0.0.1",
		config.KeyRedisPort:    strconv.Itoa(port),
	})
	app, err := NewAppBuilder().WithSettings(s).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer app.Close()

	if app.redis != nil {
		t.Error("redis wired although unreachable")
	}
	if err := app.TestPush(context.Background()); err != nil {
		t.Errorf("TestPush() error = %v", err)
	}
}

// instantClock мгновенно проматывает время ожидания планировщика
type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestRun_DailyPushThroughWebhook(t *testing.T) {
	qw := newQWeather(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := &cards{}
	hook := newWebhook(t, http.StatusOK, got, cancel)

	shanghai, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	clock := &instantClock{now: time.Date(2024, 7, 1, 7, 59, 50, 0, shanghai)}

	app, err := NewAppBuilder().
		WithSettings(testSettings(t, hook.URL, qw.URL, nil)).
		WithClock(clock).
		Build(ctx)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer app.Close()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after the daily push")
	}

	titles := got.list()
	if len(titles) != 1 || titles[0] != "📢 今日天气" {
		t.Errorf("webhook received %v, want the daily forecast only", titles)
	}
	for _, st := range app.Jobs() {
		if st.Runs == 0 {
			t.Errorf("job %s never ran", st.Name)
		}
	}
}
