// application/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"weather-alert-bot/pkg/logger"
)

const defaultJobTimeout = 5 * time.Minute

// Clock - источник времени планировщика
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Schedule определяет расписание задачи
type Schedule struct {
	// DailyAt: раз в день в HH:MM по часовому поясу loc
	// Every: через равные интервалы, выровненные от полуночи
	kind     scheduleKind
	hour     int
	minute   int
	interval time.Duration
	loc      *time.Location
}

type scheduleKind int

const (
	kindDaily    scheduleKind = iota // раз в сутки в HH:MM
	kindInterval                     // каждые N единиц времени
)

// DailyAt создает расписание "каждый день в HH:MM" в поясе loc
func DailyAt(hour, minute int, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.Local
	}
	return Schedule{kind: kindDaily, hour: hour, minute: minute, loc: loc}
}

// Every создает расписание "каждые d", кратное d от местной полуночи.
// Every(15*time.Minute) срабатывает в :00, :15, :30 и :45.
func Every(d time.Duration, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.Local
	}
	return Schedule{kind: kindInterval, interval: d, loc: loc}
}

// Next возвращает первый момент запуска строго после after
func (s Schedule) Next(after time.Time) time.Time {
	t := after.In(s.loc)
	y, m, d := t.Date()

	switch s.kind {
	case kindDaily:
		next := time.Date(y, m, d, s.hour, s.minute, 0, 0, s.loc)
		if !next.After(t) {
			next = time.Date(y, m, d+1, s.hour, s.minute, 0, 0, s.loc)
		}
		return next
	case kindInterval:
		if s.interval <= 0 {
			return t.Add(time.Minute)
		}
		midnight := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
		nextMidnight := time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)
		next := midnight.Add((t.Sub(midnight)/s.interval + 1) * s.interval)
		if !next.Before(nextMidnight) {
			next = nextMidnight
		}
		return next
	default:
		return t.Add(24 * time.Hour)
	}
}

func (s Schedule) String() string {
	if s.kind == kindDaily {
		return fmt.Sprintf("daily at %02d:%02d %s", s.hour, s.minute, s.loc)
	}
	return fmt.Sprintf("every %v", s.interval)
}

// Job описывает одну планируемую задачу
type Job struct {
	Name        string
	Description string
	Schedule    Schedule
	Handler     func(ctx context.Context) error
	RunOnStart  bool // первый запуск сразу при старте цикла

	mu      sync.Mutex
	nextRun time.Time
	lastRun time.Time
	lastErr error
	runs    int
}

// Status возвращает текущее состояние задачи
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := JobStatus{
		Name:        j.Name,
		Description: j.Description,
		Schedule:    j.Schedule.String(),
		NextRun:     j.nextRun,
		LastRun:     j.lastRun,
		LastErr:     j.lastErr,
		Runs:        j.runs,
	}
	if j.lastErr != nil {
		st.LastError = j.lastErr.Error()
	}
	return st
}

// JobStatus снапшот состояния задачи
type JobStatus struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastErr     error     `json:"-"`
	LastError   string    `json:"last_error,omitempty"`
	Runs        int       `json:"runs"`
}

// Option настраивает планировщик
type Option func(*Scheduler)

// WithClock подменяет источник времени (используется в тестах)
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithJobTimeout ограничивает время одного запуска задачи
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.jobTimeout = d }
}

// Scheduler - однопоточный цикл: спит до ближайшей задачи,
// затем по очереди выполняет все наступившие.
type Scheduler struct {
	clock      Clock
	jobTimeout time.Duration
	jobs       []*Job
	mu         sync.RWMutex
}

// New создает новый планировщик
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:      realClock{},
		jobTimeout: defaultJobTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register добавляет задачу в планировщик.
// Должен вызываться до Run().
func (s *Scheduler) Register(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	job.mu.Lock()
	job.nextRun = job.Schedule.Next(now)
	if job.RunOnStart {
		job.nextRun = now
	}
	nextRun := job.nextRun
	job.mu.Unlock()

	s.jobs = append(s.jobs, job)

	logger.Info("📋 [Scheduler] Зарегистрирована задача %q (%s), первый запуск в %s",
		job.Name, job.Schedule, nextRun.Format("2006-01-02 15:04:05 MST"))
}

// Jobs возвращает статус всех задач
func (s *Scheduler) Jobs() []JobStatus {
	jobs := s.snapshot()
	statuses := make([]JobStatus, len(jobs))
	for i, j := range jobs {
		statuses[i] = j.Status()
	}
	return statuses
}

func (s *Scheduler) snapshot() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	return jobs
}

// Run крутит цикл до отмены ctx. Ошибки и паники задач не прерывают цикл.
func (s *Scheduler) Run(ctx context.Context) error {
	jobs := s.snapshot()
	if len(jobs) == 0 {
		return fmt.Errorf("scheduler: no jobs registered")
	}

	logger.Info("✅ [Scheduler] Запущен (%d задач)", len(jobs))
	defer logger.Info("🛑 [Scheduler] Остановлен")

	for {
		if ctx.Err() != nil {
			return nil
		}

		wake := nearest(jobs)
		wait := wake.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		logger.Debug("💤 [Scheduler] Ожидание %v до %s", wait.Round(time.Second), wake.Format("15:04:05"))

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(wait):
		}

		now := s.clock.Now()
		for _, job := range jobs {
			if ctx.Err() != nil {
				return nil
			}
			job.mu.Lock()
			due := !now.Before(job.nextRun)
			job.mu.Unlock()

			if due {
				s.run(ctx, job)
			}
		}
	}
}

func nearest(jobs []*Job) time.Time {
	var wake time.Time
	for _, job := range jobs {
		job.mu.Lock()
		next := job.nextRun
		job.mu.Unlock()
		if wake.IsZero() || next.Before(wake) {
			wake = next
		}
	}
	return wake
}

// run выполняет одну задачу в защищенной области и обновляет её состояние
func (s *Scheduler) run(ctx context.Context, job *Job) {
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	logger.Info("▶️ [Scheduler] Запуск задачи %q", job.Name)
	start := s.clock.Now()

	err := guard(jobCtx, job.Handler)

	finished := s.clock.Now()
	elapsed := finished.Sub(start)

	job.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	job.runs++
	job.nextRun = job.Schedule.Next(finished)
	nextRun := job.nextRun
	job.mu.Unlock()

	if err != nil {
		logger.Error("❌ [Scheduler] Задача %q завершилась с ошибкой за %v: %v", job.Name, elapsed, err)
	} else {
		logger.Info("✅ [Scheduler] Задача %q выполнена за %v. Следующий запуск: %s",
			job.Name, elapsed, nextRun.Format("2006-01-02 15:04:05 MST"))
	}
}

// guard превращает панику обработчика в ошибку
func guard(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("💥 [Scheduler] Паника: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
