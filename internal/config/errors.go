package config

import (
	"fmt"
	"strings"
)

// Error - ошибка загрузки конфигурации. Фатальна при старте.
type Error struct {
	Path     string
	Problems []string // по одной записи на каждый некорректный ключ
	Err      error
}

func (e *Error) Error() string {
	path := e.Path
	if path == "" {
		path = "<values>"
	}
	if e.Err != nil {
		return fmt.Sprintf("config %s: %v", path, e.Err)
	}
	return fmt.Sprintf("config %s: %d invalid setting(s): %s",
		path, len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *Error) Unwrap() error {
	return e.Err
}
