package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nakatash/pokeca-search/internal/config"
)

const appName = "pokeca-collector"

// New builds the process logger. Unknown levels fall back to info and any
// encoding other than console is treated as json.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	zc := buildConfig(cfg)
	return zc.Build(zap.Fields(zap.String("app", appName)))
}

func buildConfig(cfg config.LogConfig) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(strings.TrimSpace(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := "json"
	encoder := zap.NewProductionEncoderConfig()
	if strings.EqualFold(strings.TrimSpace(cfg.Encoding), "console") {
		encoding = "console"
		encoder = zap.NewDevelopmentEncoderConfig()
	}
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		EncoderConfig:     encoder,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}
	return zc
}
