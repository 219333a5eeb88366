// internal/notifier/rate_limiter.go
package notifier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"weather-alert-bot/internal/types"
	"weather-alert-bot/pkg/logger"
)

// Limiter - ограничитель частоты отправок по ключу
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter - ограничитель в памяти процесса: token bucket на ключ,
// емкость limit, пополнение limit токенов за window
type MemoryLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewMemoryLimiter создает ограничитель: не более limit отправок за window
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		limit:    rate.Inf,
		burst:    limit,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
	if limit > 0 && window > 0 {
		l.limit = rate.Every(window / time.Duration(limit))
	}
	return l
}

// Allow проверяет, можно ли отправлять сообщение
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	return lim.AllowN(l.now(), 1), nil
}

// RateLimited ограничивает частоту отправок через вложенный канал
type RateLimited struct {
	next    Notifier
	limiter Limiter
}

// NewRateLimited оборачивает канал ограничителем
func NewRateLimited(next Notifier, limiter Limiter) *RateLimited {
	return &RateLimited{next: next, limiter: limiter}
}

// Send отправляет сообщение, если квота не исчерпана.
// Недоступный ограничитель не блокирует отправку.
func (r *RateLimited) Send(ctx context.Context, msg types.Message) error {
	allowed, err := r.limiter.Allow(ctx, r.next.Name())
	if err != nil {
		logger.Warn("⚠️ [Notifier] Ограничитель недоступен, отправляем без проверки: %v", err)
		allowed = true
	}
	if !allowed {
		logger.Warn("⏳ [Notifier] Превышен лимит отправок через %s, сообщение %q пропущено", r.next.Name(), msg.Title)
		return &NotifyError{Channel: r.next.Name(), Err: ErrRateLimited}
	}
	return r.next.Send(ctx, msg)
}

// Name возвращает имя вложенного канала
func (r *RateLimited) Name() string {
	return r.next.Name()
}

// Stats пробрасывает статистику вложенного канала
func (r *RateLimited) Stats() []Stats {
	if sp, ok := r.next.(StatsProvider); ok {
		return sp.Stats()
	}
	return nil
}
