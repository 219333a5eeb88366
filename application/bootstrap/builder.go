// application/bootstrap/builder.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"weather-alert-bot/application/scheduler"
	"weather-alert-bot/internal/config"
	"weather-alert-bot/internal/formatter"
	"weather-alert-bot/internal/httpapi"
	redisinfra "weather-alert-bot/internal/infrastructure/cache/redis"
	"weather-alert-bot/internal/infrastructure/persistence/journal"
	"weather-alert-bot/internal/monitor"
	"weather-alert-bot/internal/notifier"
	"weather-alert-bot/internal/weather"
	"weather-alert-bot/pkg/logger"
)

const (
	serviceName        = "weather-alert-bot"
	rateLimitWindow    = time.Minute
	mqttConnectTimeout = 5 * time.Second
)

// AppBuilder строитель приложения
type AppBuilder struct {
	settings   *config.Settings
	httpClient *http.Client
	clock      scheduler.Clock
}

// NewAppBuilder создает новый строитель приложений
func NewAppBuilder() *AppBuilder {
	return &AppBuilder{}
}

// WithSettings устанавливает проверенную конфигурацию
func (b *AppBuilder) WithSettings(s config.Settings) *AppBuilder {
	b.settings = &s
	return b
}

// WithHTTPClient подменяет HTTP клиент погоды и вебхука (тесты)
func (b *AppBuilder) WithHTTPClient(c *http.Client) *AppBuilder {
	b.httpClient = c
	return b
}

// WithClock подменяет часы планировщика (тесты)
func (b *AppBuilder) WithClock(c scheduler.Clock) *AppBuilder {
	b.clock = c
	return b
}

// Build собирает граф зависимостей. Опциональные компоненты
// (redis, журнал, mqtt) при недоступности отключаются с предупреждением.
func (b *AppBuilder) Build(ctx context.Context) (*Application, error) {
	if b.settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	s := *b.settings

	app := &Application{settings: s}

	primary := b.buildPrimary(s)
	limiter := b.buildLimiter(ctx, app, s)
	var chain notifier.Notifier = notifier.NewRateLimited(primary, limiter)

	if s.Journal.Enabled {
		store, err := journal.Open(ctx, s.Journal.Driver, s.Journal.DSN)
		if err != nil {
			logger.Warn("⚠️ [Bootstrap] Журнал доставки отключен: %v", err)
		} else {
			app.journal = store
			chain = notifier.NewJournaled(chain, store)
		}
	}

	composite := notifier.NewComposite(chain)
	if s.MQTT.Enabled() {
		mq := notifier.NewMQTTNotifier(notifier.MQTTOptions{
			Broker:   s.MQTT.Broker,
			Port:     s.MQTT.Port,
			Topic:    s.MQTT.Topic,
			ClientID: s.MQTT.ClientID,
		})
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		if err := mq.Connect(connectCtx); err != nil {
			logger.Warn("⚠️ [Bootstrap] MQTT %s:%d пока недоступен, клиент продолжит переподключение: %v",
				s.MQTT.Broker, s.MQTT.Port, err)
		}
		cancel()
		app.mqtt = mq
		composite.AddMirror(mq)
	}
	app.notifier = composite

	loc := s.Monitor.Location()
	client := weather.NewClient(weather.Options{
		Host:       s.API.Host,
		Key:        s.API.QWeatherKey,
		Longitude:  s.Location.Longitude,
		Latitude:   s.Location.Latitude,
		Location:   loc,
		Timeout:    s.Monitor.RequestTimeout(),
		HTTPClient: b.httpClient,
	})

	app.monitor = monitor.NewMonitor(client, app.notifier, monitor.Options{
		LocationName: s.Location.Name,
		Daily:        formatter.DailyOptions{RainThresholdPrecip: s.Monitor.RainThresholdPrecip},
		Rain: formatter.RainOptions{
			Lookahead: s.Monitor.RainLookahead(),
			MinPop:    s.Monitor.RainThresholdPop,
		},
		Cooldown: s.Monitor.RainAlertCooldown(),
	})

	app.scheduler = b.buildScheduler(app.monitor, s)

	if s.HTTP.Enabled {
		deps := httpapi.Deps{Service: serviceName, Jobs: app.scheduler, Stats: composite}
		if app.journal != nil {
			deps.Deliveries = app.journal
		}
		if app.redis != nil {
			deps.Checks = map[string]httpapi.HealthChecker{"redis": app.redis}
		}
		app.http = httpapi.New(s.HTTP.Addr, deps)
	}

	logger.Info("✅ [Bootstrap] Приложение собрано: канал %s, локация %s (%s)",
		primary.Name(), s.Location.Name, s.Location.Coordinates())
	return app, nil
}

// buildPrimary выбирает основной канал: Feishu или консоль для пробного запуска
func (b *AppBuilder) buildPrimary(s config.Settings) notifier.Notifier {
	if s.API.WebhookURL == config.ConsoleWebhook {
		logger.Info("🖥️ [Bootstrap] Вебхук %s: сообщения выводятся в лог", config.ConsoleWebhook)
		return notifier.NewConsoleNotifier()
	}
	return notifier.NewFeishuNotifier(notifier.FeishuOptions{
		WebhookURL: s.API.WebhookURL,
		Secret:     s.API.WebhookSecret,
		Timeout:    s.Monitor.RequestTimeout(),
		HTTPClient: b.httpClient,
	})
}

// buildLimiter возвращает общий redis-лимитер или локальный в памяти
func (b *AppBuilder) buildLimiter(ctx context.Context, app *Application, s config.Settings) notifier.Limiter {
	if s.Redis.Enabled {
		rs := redisinfra.NewRedisService(redisinfra.Options{
			Host:     s.Redis.Host,
			Port:     s.Redis.Port,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
		if err := rs.Start(ctx); err != nil {
			logger.Warn("⚠️ [Bootstrap] Redis недоступен, лимит отправок в памяти: %v", err)
		} else {
			app.redis = rs
			return redisinfra.NewRateLimiter(rs.Client(), s.Redis.RateLimitPerMinute, rateLimitWindow)
		}
	}
	return notifier.NewMemoryLimiter(s.Redis.RateLimitPerMinute, rateLimitWindow)
}

func (b *AppBuilder) buildScheduler(m *monitor.Monitor, s config.Settings) *scheduler.Scheduler {
	var opts []scheduler.Option
	if b.clock != nil {
		opts = append(opts, scheduler.WithClock(b.clock))
	}
	sched := scheduler.New(opts...)
	loc := s.Monitor.Location()

	sched.Register(&scheduler.Job{
		Name:        "daily-push",
		Description: "Ежедневная сводка погоды",
		Schedule:    scheduler.DailyAt(s.Monitor.DailyPushHour, s.Monitor.DailyPushMinute, loc),
		Handler:     m.DailyPush,
	})
	sched.Register(&scheduler.Job{
		Name:        "rain-check",
		Description: "Проверка ливней на ближайшие часы",
		Schedule:    scheduler.Every(s.Monitor.CheckInterval(), loc),
		Handler:     m.RainCheck,
		RunOnStart:  true,
	})
	return sched
}
