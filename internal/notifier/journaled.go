// internal/notifier/journaled.go
package notifier

import (
	"context"
	"time"

	"weather-alert-bot/internal/infrastructure/persistence/journal"
	"weather-alert-bot/internal/types"
	"weather-alert-bot/pkg/logger"

	"github.com/google/uuid"
)

// DeliveryRecorder сохраняет попытки доставки
type DeliveryRecorder interface {
	Record(ctx context.Context, d journal.Delivery) error
}

// Journaled записывает каждую попытку отправки в журнал.
// Ошибка журнала не влияет на результат отправки.
type Journaled struct {
	next     Notifier
	recorder DeliveryRecorder
}

// NewJournaled оборачивает канал журналом доставок
func NewJournaled(next Notifier, recorder DeliveryRecorder) *Journaled {
	return &Journaled{next: next, recorder: recorder}
}

// Send отправляет сообщение и фиксирует результат
func (j *Journaled) Send(ctx context.Context, msg types.Message) error {
	sendErr := j.next.Send(ctx, msg)

	d := journal.Delivery{
		ID:        uuid.NewString(),
		Kind:      string(msg.Kind),
		Level:     string(msg.Level),
		Title:     msg.Title,
		Channel:   j.next.Name(),
		Success:   sendErr == nil,
		CreatedAt: time.Now(),
	}
	if sendErr != nil {
		d.Error = sendErr.Error()
	}

	if err := j.recorder.Record(context.WithoutCancel(ctx), d); err != nil {
		logger.Warn("⚠️ [Journal] Не удалось записать доставку %s: %v", d.ID, err)
	}
	return sendErr
}

// Name возвращает имя вложенного канала
func (j *Journaled) Name() string {
	return j.next.Name()
}

// Stats пробрасывает статистику вложенного канала
func (j *Journaled) Stats() []Stats {
	if sp, ok := j.next.(StatsProvider); ok {
		return sp.Stats()
	}
	return nil
}
