// internal/infrastructure/persistence/journal/journal.go
package journal

import (
	"context"
	"fmt"
	"time"

	"weather-alert-bot/pkg/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Delivery - одна попытка доставки уведомления
type Delivery struct {
	ID        string    `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	Level     string    `db:"level" json:"level"`
	Title     string    `db:"title" json:"title"`
	Channel   string    `db:"channel" json:"channel"`
	Success   bool      `db:"success" json:"success"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS deliveries (
		id VARCHAR(36) PRIMARY KEY,
		kind VARCHAR(16) NOT NULL,
		level VARCHAR(16) NOT NULL,
		title TEXT NOT NULL,
		channel VARCHAR(32) NOT NULL,
		success BOOLEAN NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries(created_at)`,
}

// Store - журнал доставок поверх sqlite3 или postgres
type Store struct {
	db *sqlx.DB
}

// Open подключается к базе и создает таблицу журнала
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if driver == "sqlite3" {
		// sqlite не поддерживает параллельную запись
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("✅ [Journal] Журнал доставок подключен (%s)", driver)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate journal: %w", err)
		}
	}
	return nil
}

// Record сохраняет попытку доставки
func (s *Store) Record(ctx context.Context, d Delivery) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.CreatedAt = d.CreatedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO deliveries (id, kind, level, title, channel, success, error, created_at)
		VALUES (:id, :kind, :level, :title, :channel, :success, :error, :created_at)`, d)
	if err != nil {
		return fmt.Errorf("failed to record delivery %s: %w", d.ID, err)
	}
	return nil
}

// Recent возвращает последние limit записей, новые первыми
func (s *Store) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	var deliveries []Delivery
	query := s.db.Rebind(`
		SELECT id, kind, level, title, channel, success, error, created_at
		FROM deliveries
		ORDER BY created_at DESC
		LIMIT ?`)
	if err := s.db.SelectContext(ctx, &deliveries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	return deliveries, nil
}

// Close закрывает соединение
func (s *Store) Close() error {
	return s.db.Close()
}
