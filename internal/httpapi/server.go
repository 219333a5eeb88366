// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"weather-alert-bot/application/scheduler"
	"weather-alert-bot/internal/infrastructure/persistence/journal"
	"weather-alert-bot/internal/notifier"
	"weather-alert-bot/pkg/logger"
)

const (
	defaultDeliveryLimit = 20
	maxDeliveryLimit     = 200
)

// JobLister отдает статусы задач планировщика
type JobLister interface {
	Jobs() []scheduler.JobStatus
}

// DeliveryLister отдает последние записи журнала доставки
type DeliveryLister interface {
	Recent(ctx context.Context, limit int) ([]journal.Delivery, error)
}

// HealthChecker проверяет внешнюю зависимость для /healthz
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps - источники данных для эндпоинтов. Stats, Deliveries и Checks опциональны.
type Deps struct {
	Service    string
	Jobs       JobLister
	Stats      notifier.StatsProvider
	Deliveries DeliveryLister
	Checks     map[string]HealthChecker
	Now        func() time.Time
}

// Server - read-only эндпоинт состояния
type Server struct {
	deps    Deps
	started time.Time
	router  *mux.Router
	http    *http.Server
}

// New создает сервер и регистрирует маршруты
func New(addr string, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps, started: deps.Now(), router: mux.NewRouter()}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/jobs", s.jobsHandler).Methods(http.MethodGet)
	if s.deps.Stats != nil {
		s.router.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	}
	if s.deps.Deliveries != nil {
		s.router.HandleFunc("/deliveries", s.deliveriesHandler).Methods(http.MethodGet)
	}
}

// Handler возвращает маршрутизатор (используется в тестах)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start слушает адрес в фоне. Ошибка bind возвращается сразу.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	logger.Info("🌐 [HTTP] Эндпоинт состояния слушает %s", ln.Addr())

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ [HTTP] Сервер остановлен с ошибкой: %v", err)
		}
	}()
	return nil
}

// Shutdown останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("🛑 [HTTP] Остановка эндпоинта состояния")
	return s.http.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":  "ok",
		"service": s.deps.Service,
		"uptime":  s.deps.Now().Sub(s.started).Round(time.Second).String(),
	}
	status := http.StatusOK
	for name, check := range s.deps.Checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			logger.Warn("⚠️ [HTTP] Проверка %s не прошла: %v", name, err)
			body[name] = err.Error()
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	writeJSON(w, status, body)
}

func (s *Server) jobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if s.deps.Jobs != nil {
		jobs = append(jobs, s.deps.Jobs.Jobs()...)
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Stats.Stats())
}

func (s *Server) deliveriesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDeliveryLimit {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be an integer between 1 and " + strconv.Itoa(maxDeliveryLimit),
			})
			return
		}
		limit = n
	}

	deliveries, err := s.deps.Deliveries.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("❌ [HTTP] Не удалось прочитать журнал: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	if deliveries == nil {
		deliveries = []journal.Delivery{}
	}
	writeJSON(w, http.StatusOK, deliveries)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("⚠️ [HTTP] Ошибка кодирования ответа: %v", err)
	}
}
