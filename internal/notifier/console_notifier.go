// internal/notifier/console_notifier.go
package notifier

import (
	"context"

	"weather-alert-bot/internal/types"
	"weather-alert-bot/pkg/logger"
)

// ConsoleNotifier печатает уведомления в лог вместо отправки в чат
type ConsoleNotifier struct {
	counter
}

// NewConsoleNotifier создает консольный нотификатор
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

// Send выводит сообщение в лог
func (c *ConsoleNotifier) Send(_ context.Context, msg types.Message) error {
	logger.Info("══════════════════════════════════════════════════")
	logger.Info("💬 [Console] %s (%s)", msg.Title, msg.Kind)
	logger.Info("%s", msg.Body)
	logger.Info("══════════════════════════════════════════════════")

	c.record(c.Name(), nil)
	return nil
}

// Name возвращает имя
func (c *ConsoleNotifier) Name() string {
	return "console"
}

// Stats возвращает статистику
func (c *ConsoleNotifier) Stats() []Stats {
	return []Stats{c.snapshot()}
}
