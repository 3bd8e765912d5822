package logger

import (
	"fmt"

	"gamestore/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はGO_ENVに合わせてzapのloggerを作る。
func New(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l.With(zap.String("env", cfg.GoEnv)), nil
}
