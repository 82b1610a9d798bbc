// Package logger настраивает zap для сервиса.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Zap оборачивает *zap.Logger, чтобы компоненты получали логгер одного типа.
type Zap struct {
	*zap.Logger
}

// New создает логгер: JSON-конфигурация для env=prod, консольная для остальных окружений.
func New(env, level string) (*Zap, error) {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("неверный LOG_LEVEL %q: %w", level, err)
	}
	cfg.Level = lvl

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Zap{Logger: l.Named("browsir")}, nil
}

// Nop возвращает логгер, который ничего не пишет.
func Nop() *Zap {
	return &Zap{Logger: zap.NewNop()}
}
