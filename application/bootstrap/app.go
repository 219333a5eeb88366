// application/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"weather-alert-bot/application/scheduler"
	"weather-alert-bot/internal/config"
	"weather-alert-bot/internal/httpapi"
	redisinfra "weather-alert-bot/internal/infrastructure/cache/redis"
	"weather-alert-bot/internal/infrastructure/persistence/journal"
	"weather-alert-bot/internal/monitor"
	"weather-alert-bot/internal/notifier"
	"weather-alert-bot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Application - собранный процесс мониторинга погоды
type Application struct {
	settings  config.Settings
	notifier  *notifier.Composite
	monitor   *monitor.Monitor
	scheduler *scheduler.Scheduler

	http    *httpapi.Server
	redis   *redisinfra.RedisService
	journal *journal.Store
	mqtt    *notifier.MQTTNotifier

	mu        sync.Mutex
	running   bool
	closed    bool
	startTime time.Time
}

// Run запускает эндпоинт состояния и цикл планировщика под супервизором.
// Возвращается после отмены ctx.
func (app *Application) Run(ctx context.Context) error {
	app.mu.Lock()
	if app.running {
		app.mu.Unlock()
		return errors.New("приложение уже запущено")
	}
	app.running = true
	app.startTime = time.Now()
	app.mu.Unlock()

	logger.Info("🚀 [App] Запуск мониторинга погоды для %s", app.settings.Location.Name)

	if app.http != nil {
		if err := app.http.Start(); err != nil {
			logger.Warn("⚠️ [App] Эндпоинт состояния не запущен: %v", err)
			app.http = nil
		}
	}

	scheduler.Supervise(ctx, "scheduler", app.settings.Monitor.RestartDelay(), app.scheduler.Run)

	logger.Info("🛑 [App] Получен сигнал завершения. Время работы: %v", time.Since(app.startTime).Round(time.Second))

	app.mu.Lock()
	app.running = false
	app.mu.Unlock()
	return nil
}

// TestPush отправляет одно тестовое сообщение и возвращает результат
func (app *Application) TestPush(ctx context.Context) error {
	return app.monitor.TestPush(ctx)
}

// Jobs возвращает статусы задач планировщика
func (app *Application) Jobs() []scheduler.JobStatus {
	return app.scheduler.Jobs()
}

// Stats возвращает счетчики каналов доставки
func (app *Application) Stats() []notifier.Stats {
	return app.notifier.Stats()
}

// Close освобождает ресурсы. Повторный вызов ничего не делает.
func (app *Application) Close() error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	app.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if app.http != nil {
		if err := app.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if app.mqtt != nil {
		app.mqtt.Close()
	}
	if app.journal != nil {
		if err := app.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal close: %w", err))
		}
	}
	if app.redis != nil {
		if err := app.redis.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("redis stop: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("❌ [App] Ошибки при остановке: %v", err)
		return err
	}
	logger.Info("✅ [App] Ресурсы освобождены")
	return nil
}
