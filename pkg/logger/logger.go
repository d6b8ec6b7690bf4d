// Package logger собирает JSON-логгер сервиса с уровнем из конфигурации.
package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New создает логгер с JSON-форматом и заданным уровнем.
// Некорректный уровень молча заменяется на info.
func New(logLevel string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}
