// pkg/logger/global.go
package logger

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var globalLogger atomic.Pointer[Logger]

func init() {
	globalLogger.Store(NewWithWriter(os.Stdout, slog.LevelInfo))
}

// SetGlobal подменяет глобальный логгер (используется в тестах)
func SetGlobal(l *Logger) {
	if l != nil {
		globalLogger.Store(l)
	}
}

func GetLogger() *Logger {
	return globalLogger.Load()
}

// Глобальные методы для удобства
func Debug(format string, v ...interface{}) {
	GetLogger().Debug(format, v...)
}

func Info(format string, v ...interface{}) {
	GetLogger().Info(format, v...)
}

func Warn(format string, v ...interface{}) {
	GetLogger().Warn(format, v...)
}

func Error(format string, v ...interface{}) {
	GetLogger().Error(format, v...)
}
