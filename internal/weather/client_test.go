package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const (
	nowBody = `{"code":"200","updateTime":"2024-07-01T10:05+08:00","now":{
		"obsTime":"2024-07-01T10:00+08:00","temp":"29","icon":"305","text":"小雨",
		"windDir":"南风","windScale":"3","humidity":"81","precip":"0.4"}}`

	hourlyBody = `{"code":"200","hourly":[
		{"fxTime":"2024-07-01T11:00+08:00","temp":"29","icon":"305","text":"小雨","pop":"60","precip":"0.5"},
		{"fxTime":"2024-07-01T12:00+08:00","temp":"28","icon":"306","text":"中雨","pop":"85","precip":"3.1"},
		{"fxTime":"not-a-time","temp":"28","icon":"306","text":"中雨","pop":"85","precip":"3.1"},
		{"fxTime":"2024-07-01T13:00+08:00","temp":"x","icon":"","text":"大雨","pop":"","precip":"8.0"}]}`

	dailyBody = `{"code":"200","daily":[
		{"fxDate":"2024-07-01","tempMax":"33","tempMin":"24","iconDay":"306","textDay":"中雨","iconNight":"305","textNight":"小雨",
		 "windDirDay":"南风","windScaleDay":"1-3","humidity":"85","precip":"12.5"},
		{"fxDate":"2024-07-02","tempMax":"31","tempMin":"23","iconDay":"101","textDay":"多云","iconNight":"502","textNight":"霾",
		 "windDirDay":"东风","windScaleDay":"1-3","humidity":"60","precip":"0.0"},
		{"fxDate":"2024-07-03","tempMax":"30","tempMin":"22","iconDay":"100","textDay":"晴","iconNight":"150","textNight":"晴",
		 "windDirDay":"北风","windScaleDay":"3-4","humidity":"40","precip":"0.0"}]}`

	warningBody = `{"code":"200","warning":[
		{"id":"w1","title":"北京市气象台发布暴雨蓝色预警","type":"1003","typeName":"暴雨","severity":"Minor",
		 "startTime":"2024-07-01T09:00+08:00","endTime":"2024-07-01T21:00+08:00","text":"预计..."}]}`
)

type fakeQWeather struct {
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	calls  map[string]int
	query  map[string]string
}

func newFakeQWeather() *fakeQWeather {
	return &fakeQWeather{
		bodies: map[string]string{
			EndpointNow:      nowBody,
			EndpointHourly:   hourlyBody,
			EndpointDaily:    dailyBody,
			EndpointWarnings: warningBody,
		},
		status: map[string]int{},
		calls:  map[string]int{},
		query:  map[string]string{},
	}
}

func (f *fakeQWeather) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[r.URL.Path]++
	f.query["location"] = r.URL.Query().Get("location")
	f.query["key"] = r.URL.Query().Get("key")

	if code, ok := f.status[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}
	body, ok := f.bodies[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func newTestClient(t *testing.T, fake *fakeQWeather) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	loc := time.FixedZone("CST", 8*3600)
	return NewClient(Options{
		Host:      srv.URL + "/",
		Key:       "test-key",
		Longitude: 116.41,
		Latitude:  39.92,
		Location:  loc,
		Timeout:   2 * time.Second,
		Now: func() time.Time {
			return time.Date(2024, 7, 1, 10, 30, 0, 0, loc)
		},
	})
}

func TestFetchForecast_MapsResponses(t *testing.T) {
	fake := newFakeQWeather()
	client := newTestClient(t, fake)

	snap, err := client.FetchForecast(context.Background())
	if err != nil {
		t.Fatalf("FetchForecast() error = %v", err)
	}

	if fake.query["location"] != "116.41,39.92" || fake.query["key"] != "test-key" {
		t.Errorf("query = %v, want location=116.41,39.92 key=test-key", fake.query)
	}
	for _, endpoint := range []string{EndpointNow, EndpointHourly, EndpointDaily, EndpointWarnings} {
		if fake.calls[endpoint] != 1 {
			t.Errorf("%s called %d times, want 1", endpoint, fake.calls[endpoint])
		}
	}

	if snap.Current.Temp != 29 || snap.Current.Humidity != 81 || snap.Current.Text != "小雨" {
		t.Errorf("Current = %+v", snap.Current)
	}
	if snap.FetchedAt.Hour() != 10 || snap.FetchedAt.Minute() != 30 {
		t.Errorf("FetchedAt = %v", snap.FetchedAt)
	}

	if len(snap.Hourly) != 3 {
		t.Fatalf("len(Hourly) = %d, want 3 (entry with bad time skipped)", len(snap.Hourly))
	}
	if got := snap.Hourly[0].Intensity; got != IntensityLight {
		t.Errorf("Hourly[0].Intensity = %v, want light", got)
	}
	if got := snap.Hourly[1]; got.Intensity != IntensityModerate || got.Pop != 85 || got.Time.Hour() != 12 {
		t.Errorf("Hourly[1] = %+v", got)
	}
	if got := snap.Hourly[2]; got.Intensity != IntensityHeavy || got.Pop != 0 || got.Temp != 0 {
		t.Errorf("Hourly[2] = %+v, want heavy from text, zero pop/temp", got)
	}

	if len(snap.Daily) != 3 {
		t.Fatalf("len(Daily) = %d, want 3", len(snap.Daily))
	}
	today := snap.Daily[0]
	if today.Intensity != IntensityModerate || today.Precip != 12.5 || today.TempMax != 33 {
		t.Errorf("Daily[0] = %+v", today)
	}
	if !today.Flags.Has(FlagRainstorm) || !today.Flags.Has(FlagWarning) {
		t.Errorf("Daily[0].Flags = %v, want rainstorm warning attached", today.Flags)
	}
	if !snap.Daily[1].Flags.Has(FlagHaze) {
		t.Errorf("Daily[1].Flags = %v, want haze", snap.Daily[1].Flags)
	}
	if snap.Daily[2].Flags.Any() {
		t.Errorf("Daily[2].Flags = %v, want none", snap.Daily[2].Flags)
	}
	if len(snap.Warnings) != 1 || snap.Warnings[0].TypeName != "暴雨" {
		t.Errorf("Warnings = %+v", snap.Warnings)
	}
}

func TestFetchForecast_Errors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *fakeQWeather)
		endpoint   string
		wantStatus int
		wantCode   string
		wantErr    bool
	}{
		{
			name:       "server error",
			setup:      func(f *fakeQWeather) { f.status[EndpointHourly] = http.StatusInternalServerError },
			endpoint:   EndpointHourly,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "api code",
			setup:      func(f *fakeQWeather) { f.bodies[EndpointNow] = `{"code":"401"}` },
			endpoint:   EndpointNow,
			wantStatus: http.StatusOK,
			wantCode:   "401",
		},
		{
			name:       "malformed json",
			setup:      func(f *fakeQWeather) { f.bodies[EndpointDaily] = `{"code":"200","daily":[` },
			endpoint:   EndpointDaily,
			wantStatus: http.StatusOK,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeQWeather()
			tt.setup(fake)
			client := newTestClient(t, fake)

			snap, err := client.FetchForecast(context.Background())
			if snap != nil {
				t.Errorf("FetchForecast() snapshot = %+v, want nil", snap)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("FetchForecast() error = %v, want *APIError", err)
			}
			if apiErr.Endpoint != tt.endpoint {
				t.Errorf("Endpoint = %q, want %q", apiErr.Endpoint, tt.endpoint)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if (apiErr.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", apiErr.Err, tt.wantErr)
			}
		})
	}
}

func TestFetchForecast_WarningsOptional(t *testing.T) {
	fake := newFakeQWeather()
	fake.status[EndpointWarnings] = http.StatusBadGateway
	client := newTestClient(t, fake)

	snap, err := client.FetchForecast(context.Background())
	if err != nil {
		t.Fatalf("FetchForecast() error = %v, want nil when only warnings fail", err)
	}
	if len(snap.Warnings) != 0 {
		t.Errorf("Warnings = %+v, want none", snap.Warnings)
	}
	if snap.Daily[0].Flags.Has(FlagWarning) {
		t.Errorf("Daily[0].Flags = %v, want no warning flag", snap.Daily[0].Flags)
	}
}

func TestFetchForecast_ContextCancelled(t *testing.T) {
	client := newTestClient(t, newFakeQWeather())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchForecast(ctx)
	if !IsAPIError(err) {
		t.Fatalf("FetchForecast() error = %v, want *APIError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchForecast() error = %v, want wrapped context.Canceled", err)
	}
}
