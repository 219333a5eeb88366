// application/scheduler/supervisor.go
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"weather-alert-bot/pkg/logger"
)

// Supervise держит fn запущенной до отмены ctx.
// При ошибке, панике или неожиданном выходе fn перезапускается через restartDelay.
func Supervise(ctx context.Context, name string, restartDelay time.Duration, fn func(ctx context.Context) error) {
	for restarts := 0; ; restarts++ {
		if restarts > 0 {
			logger.Info("🔄 [Supervisor] Перезапуск %s (#%d)", name, restarts)
		}

		err := protect(ctx, fn)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			logger.Error("❌ [Supervisor] %s упал: %v. Перезапуск через %v", name, err, restartDelay)
		} else {
			logger.Warn("⚠️ [Supervisor] %s завершился без ошибки. Перезапуск через %v", name, restartDelay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

func protect(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("💥 [Supervisor] Паника: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
