// internal/monitor/monitor.go
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"weather-alert-bot/internal/formatter"
	"weather-alert-bot/internal/notifier"
	"weather-alert-bot/internal/weather"
	"weather-alert-bot/pkg/logger"
)

// Fetcher - источник прогноза
type Fetcher interface {
	FetchForecast(ctx context.Context) (*weather.Snapshot, error)
}

// Options - параметры монитора
type Options struct {
	LocationName string
	Daily        formatter.DailyOptions
	Rain         formatter.RainOptions
	Cooldown     time.Duration    // минимальный интервал между оповещениями о ливне
	Now          func() time.Time // опционально, для тестов
}

// Monitor выполняет задачи ежедневной сводки и проверки ливней.
// Методы вызываются только из цикла планировщика.
type Monitor struct {
	fetcher  Fetcher
	notifier notifier.Notifier
	opts     Options
	now      func() time.Time
	state    AlertState
}

// NewMonitor создает монитор
func NewMonitor(fetcher Fetcher, n notifier.Notifier, opts Options) *Monitor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		fetcher:  fetcher,
		notifier: n,
		opts:     opts,
		now:      now,
	}
}

// DailyPush отправляет ежедневную сводку
func (m *Monitor) DailyPush(ctx context.Context) error {
	logger.Info("📅 [Monitor] Подготовка ежедневной сводки для %s", m.opts.LocationName)

	snap, err := m.fetcher.FetchForecast(ctx)
	if err != nil {
		return fmt.Errorf("daily push: %w", err)
	}

	msg := formatter.FormatDailyForecast(snap, m.opts.LocationName, m.opts.Daily)
	if err := m.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("daily push: %w", err)
	}

	logger.Info("✅ [Monitor] Ежедневная сводка отправлена: %s", msg.Title)
	return nil
}

// RainCheck проверяет ближайшие часы и оповещает о ливне не чаще cooldown
func (m *Monitor) RainCheck(ctx context.Context) error {
	logger.Info("🔍 [Monitor] Проверка осадков на ближайшие %v", m.opts.Rain.Lookahead)

	// время тика до запроса, с точностью до минуты: задержка API и
	// пробуждения таймера не должна влиять на окно повторных оповещений
	now := m.now().Truncate(time.Minute)

	snap, err := m.fetcher.FetchForecast(ctx)
	if err != nil {
		return fmt.Errorf("rain check: %w", err)
	}
	m.logUpcoming(snap)

	msg, qualifying := formatter.FormatRainAlert(snap, m.opts.LocationName, m.opts.Rain)

	send, next := DecideRainAlert(m.state, now, qualifying, m.opts.Cooldown)
	if !send {
		switch {
		case !qualifying && !m.state.LastSent.IsZero():
			logger.Info("🌤 [Monitor] Ливень закончился, состояние оповещений сброшено")
		case !qualifying:
			logger.Debug("🌤 [Monitor] Сильных осадков не ожидается")
		default:
			logger.Debug("🔕 [Monitor] Ливень продолжается, последнее оповещение в %s",
				m.state.LastSent.Format("15:04"))
		}
		m.state = next
		return nil
	}

	logger.Info("🌧 [Monitor] Обнаружен сильный дождь: %s", msg.Title)
	if err := m.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("rain check: %w", err)
	}

	m.state = next
	return nil
}

// TestPush отправляет фиксированное тестовое сообщение
func (m *Monitor) TestPush(ctx context.Context) error {
	logger.Info("🧪 [Monitor] Отправка тестового сообщения")
	if err := m.notifier.Send(ctx, formatter.TestMessage(m.opts.LocationName)); err != nil {
		return fmt.Errorf("test push: %w", err)
	}
	return nil
}

// State возвращает текущее состояние оповещений
func (m *Monitor) State() AlertState {
	return m.state
}

func (m *Monitor) logUpcoming(snap *weather.Snapshot) {
	until := snap.FetchedAt.Add(m.opts.Rain.Lookahead)
	loc := snap.FetchedAt.Location()

	var lines []string
	for _, h := range snap.Hourly {
		if h.Time.Before(snap.FetchedAt) || h.Time.After(until) {
			continue
		}
		lines = append(lines, formatter.HourlyLine(h, loc))
	}
	if len(lines) > 0 {
		logger.Info("🌦 [Monitor] Прогноз на ближайшие часы:\n%s", strings.Join(lines, "\n"))
	}
}
