// internal/notifier/notification_service.go
package notifier

import (
	"context"
	"sync"
	"time"

	"weather-alert-bot/internal/types"
	"weather-alert-bot/pkg/logger"
)

// Notifier - канал доставки уведомлений
type Notifier interface {
	Send(ctx context.Context, msg types.Message) error
	Name() string
}

// Stats - счетчики канала
type Stats struct {
	Channel      string    `json:"channel"`
	Sent         int       `json:"sent"`
	Failed       int       `json:"failed"`
	LastSentTime time.Time `json:"last_sent_time"`
	LastError    string    `json:"last_error,omitempty"`
}

// StatsProvider реализуют каналы, которые ведут статистику
type StatsProvider interface {
	Stats() []Stats
}

// counter - потокобезопасные счетчики для встраивания в нотификаторы
type counter struct {
	mu    sync.Mutex
	stats Stats
}

func (c *counter) record(channel string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Channel = channel
	if err != nil {
		c.stats.Failed++
		c.stats.LastError = err.Error()
		return
	}
	c.stats.Sent++
	c.stats.LastSentTime = time.Now()
	c.stats.LastError = ""
}

func (c *counter) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Composite отправляет через основной канал и дублирует в зеркала.
// Результат определяется только основным каналом.
type Composite struct {
	primary Notifier
	mirrors []Notifier
}

// NewComposite создает композитный нотификатор
func NewComposite(primary Notifier, mirrors ...Notifier) *Composite {
	return &Composite{primary: primary, mirrors: mirrors}
}

// AddMirror добавляет зеркало. Должен вызываться до первой отправки.
func (c *Composite) AddMirror(n Notifier) {
	c.mirrors = append(c.mirrors, n)
}

// Send отправляет сообщение через основной канал и все зеркала
func (c *Composite) Send(ctx context.Context, msg types.Message) error {
	err := c.primary.Send(ctx, msg)
	if err != nil {
		logger.Error("❌ [Notifier] Ошибка отправки через %s: %v", c.primary.Name(), err)
	}

	for _, m := range c.mirrors {
		if mErr := m.Send(ctx, msg); mErr != nil {
			logger.Warn("⚠️ [Notifier] Зеркало %s не получило сообщение: %v", m.Name(), mErr)
		}
	}

	return err
}

// Name возвращает имя основного канала
func (c *Composite) Name() string {
	return c.primary.Name()
}

// Stats объединяет статистику основного канала и зеркал
func (c *Composite) Stats() []Stats {
	var all []Stats
	for _, n := range append([]Notifier{c.primary}, c.mirrors...) {
		if sp, ok := n.(StatsProvider); ok {
			all = append(all, sp.Stats()...)
		}
	}
	return all
}
