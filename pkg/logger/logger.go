package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tripadmin/pkg/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *logrus.Logger

// Initialize sets up the global logger
func Initialize(cfg *config.Config) error {
	l, err := New(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// New builds a logger writing to console, plus a rotated file when FilePath is set.
// An unknown level falls back to info.
func New(cfg config.LogConfig, console io.Writer) (*logrus.Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := console
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		out = io.MultiWriter(console, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	l.SetOutput(out)

	return l, nil
}

// GetLogger returns the global logger, or logrus' standard logger before Initialize runs.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return logrus.StandardLogger()
	}
	return Logger
}

// Component tags entries with the emitting subsystem
func Component(name string) *logrus.Entry {
	return GetLogger().WithField("component", name)
}
