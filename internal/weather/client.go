// internal/weather/client.go
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"weather-alert-bot/pkg/logger"
)

const (
	EndpointNow      = "/v7/weather/now"
	EndpointHourly   = "/v7/weather/24h"
	EndpointDaily    = "/v7/weather/3d"
	EndpointWarnings = "/v7/warning/now"

	codeOK = "200"
)

// Options - параметры клиента
type Options struct {
	Host      string
	Key       string
	Longitude float64
	Latitude  float64
	Location  *time.Location // часовой пояс, в который переводятся все времена
	Timeout   time.Duration

	HTTPClient *http.Client     // опционально, для тестов
	Now        func() time.Time // опционально, для тестов
}

// Client - клиент QWeather v7 для одной точки
type Client struct {
	httpClient *http.Client
	host       string
	key        string
	location   string
	loc        *time.Location
	now        func() time.Time
}

// NewClient создает клиент
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		httpClient: httpClient,
		host:       strings.TrimRight(opts.Host, "/"),
		key:        opts.Key,
		location: strconv.FormatFloat(opts.Longitude, 'f', -1, 64) + "," +
			strconv.FormatFloat(opts.Latitude, 'f', -1, 64),
		loc: loc,
		now: now,
	}
}

// FetchForecast запрашивает текущие условия, почасовой и трехдневный прогноз.
// Каждый endpoint вызывается ровно один раз; предупреждения необязательны.
func (c *Client) FetchForecast(ctx context.Context) (*Snapshot, error) {
	start := c.now()

	var now nowResponse
	if err := c.get(ctx, EndpointNow, &now); err != nil {
		return nil, err
	}

	var hourly hourlyResponse
	if err := c.get(ctx, EndpointHourly, &hourly); err != nil {
		return nil, err
	}

	var daily dailyResponse
	if err := c.get(ctx, EndpointDaily, &daily); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		FetchedAt: start.In(c.loc),
		Current:   c.mapCurrent(now),
		Hourly:    c.mapHourly(hourly),
		Daily:     c.mapDaily(daily),
	}

	var warnings warningResponse
	if err := c.get(ctx, EndpointWarnings, &warnings); err != nil {
		logger.Warn("⚠️ [Weather] Предупреждения недоступны, считаем что их нет: %v", err)
	} else {
		snap.Warnings = c.mapWarnings(warnings)
	}

	// Предупреждения действуют сегодня
	if len(snap.Daily) > 0 {
		for _, w := range snap.Warnings {
			snap.Daily[0].Flags |= w.Flags
		}
	}

	logger.Debug("🌦 [Weather] Прогноз получен за %v: %d ч, %d дн, %d предупреждений",
		c.now().Sub(start), len(snap.Hourly), len(snap.Daily), len(snap.Warnings))

	return snap, nil
}

// get выполняет один GET запрос и декодирует тело
func (c *Client) get(ctx context.Context, endpoint string, out coded) error {
	q := url.Values{}
	q.Set("location", c.location)
	q.Set("key", c.key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return &APIError{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "WeatherAlertBot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Endpoint: endpoint, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}

	if code := out.status(); code != codeOK {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Code: code}
	}
	return nil
}

func (c *Client) mapCurrent(r nowResponse) Current {
	return Current{
		ObservedAt: c.parseTime(r.Now.ObsTime),
		Temp:       parseFloat(r.Now.Temp),
		Text:       r.Now.Text,
		Icon:       r.Now.Icon,
		Humidity:   parseInt(r.Now.Humidity),
		WindDir:    r.Now.WindDir,
		WindScale:  r.Now.WindScale,
	}
}

func (c *Client) mapHourly(r hourlyResponse) []HourlyEntry {
	entries := make([]HourlyEntry, 0, len(r.Hourly))
	for _, h := range r.Hourly {
		t := c.parseTime(h.FxTime)
		if t.IsZero() {
			logger.Debug("🌦 [Weather] Пропущена почасовая запись с временем %q", h.FxTime)
			continue
		}
		entries = append(entries, HourlyEntry{
			Time:      t,
			Text:      h.Text,
			Icon:      h.Icon,
			Intensity: ClassifyIntensity(h.Icon, h.Text),
			Pop:       parseInt(h.Pop),
			Precip:    parseFloat(h.Precip),
			Temp:      parseFloat(h.Temp),
		})
	}
	return entries
}

func (c *Client) mapDaily(r dailyResponse) []DailyEntry {
	entries := make([]DailyEntry, 0, len(r.Daily))
	for _, d := range r.Daily {
		date, err := time.ParseInLocation("2006-01-02", d.FxDate, c.loc)
		if err != nil {
			logger.Debug("🌦 [Weather] Пропущен дневной прогноз с датой %q", d.FxDate)
			continue
		}
		intensity := ClassifyIntensity(d.IconDay, d.TextDay)
		if night := ClassifyIntensity(d.IconNight, d.TextNight); night > intensity {
			intensity = night
		}
		entries = append(entries, DailyEntry{
			Date:         date,
			TempMin:      parseFloat(d.TempMin),
			TempMax:      parseFloat(d.TempMax),
			TextDay:      d.TextDay,
			TextNight:    d.TextNight,
			IconDay:      d.IconDay,
			IconNight:    d.IconNight,
			WindDirDay:   d.WindDirDay,
			WindScaleDay: d.WindScaleDay,
			Humidity:     parseInt(d.Humidity),
			Precip:       parseFloat(d.Precip),
			Intensity:    intensity,
			Shower:       IsShower(d.IconDay, d.TextDay) || IsShower(d.IconNight, d.TextNight),
			Flags:        ClassifySevere(d.IconDay, d.TextDay) | ClassifySevere(d.IconNight, d.TextNight),
		})
	}
	return entries
}

func (c *Client) mapWarnings(r warningResponse) []Warning {
	warnings := make([]Warning, 0, len(r.Warning))
	for _, w := range r.Warning {
		warnings = append(warnings, Warning{
			ID:        w.ID,
			Title:     w.Title,
			Text:      w.Text,
			Type:      w.Type,
			TypeName:  w.TypeName,
			Severity:  w.Severity,
			StartTime: c.parseTime(w.StartTime),
			EndTime:   c.parseTime(w.EndTime),
			Flags:     classifyWarning(w.Type, w.TypeName, w.Title),
		})
	}
	return warnings
}

// parseTime разбирает "2021-02-16T15:00+08:00"; нулевое время при ошибке
func (c *Client) parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02T15:04Z07:00", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(c.loc)
		}
	}
	return time.Time{}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return int(parseFloat(s))
}

// IsAPIError - удобная проверка для вызывающего кода
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
