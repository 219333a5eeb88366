// internal/infrastructure/cache/redis/redis_service.go
package redis

import (
	"context"
	"fmt"
	"time"

	"weather-alert-bot/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// Options - параметры подключения
type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr возвращает адрес host:port
func (o Options) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// RedisService владеет клиентом Redis
type RedisService struct {
	opts   Options
	client *redis.Client
}

// NewRedisService создает сервис. Подключение - в Start.
func NewRedisService(opts Options) *RedisService {
	return &RedisService{opts: opts}
}

// Start подключается и проверяет соединение
func (rs *RedisService) Start(ctx context.Context) error {
	if rs.client != nil {
		return fmt.Errorf("redis service already running")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rs.opts.Addr(),
		Password: rs.opts.Password,
		DB:       rs.opts.DB,

		PoolSize:     4,
		MinIdleConns: 1,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logger.Info("📡 [Redis] Подключение к %s (DB: %d)", rs.opts.Addr(), rs.opts.DB)
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", rs.opts.Addr(), err)
	}

	rs.client = client
	logger.Info("✅ [Redis] Подключен")
	return nil
}

// Stop закрывает клиента
func (rs *RedisService) Stop() error {
	if rs.client == nil {
		return nil
	}
	err := rs.client.Close()
	rs.client = nil
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	logger.Info("🛑 [Redis] Отключен")
	return nil
}

// Client возвращает клиент Redis, nil до Start
func (rs *RedisService) Client() *redis.Client {
	return rs.client
}

// HealthCheck проверяет доступность Redis
func (rs *RedisService) HealthCheck(ctx context.Context) error {
	if rs.client == nil {
		return fmt.Errorf("redis service is not running")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return rs.client.Ping(ctx).Err()
}
