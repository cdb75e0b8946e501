package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New создает JSON-логгер в stdout
func New(logLevel string) *logrus.Logger {
	return NewWithOutput(logLevel, os.Stdout)
}

// NewWithOutput создает JSON-логгер с произвольным выводом.
// Агент пишет логи в stderr, чтобы stdout оставался для результатов команд.
func NewWithOutput(logLevel string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(out)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel // Уровень по умолчанию, если передан некорректный
	}
	log.SetLevel(level)
	return log
}
