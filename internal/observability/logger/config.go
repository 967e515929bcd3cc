package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describe cómo arma ledgerd su logger de proceso.
type Config struct {
	Env         string // "prod" => JSON; cualquier otro valor => consola
	Level       string // debug, info, warn, error; vacío => info
	ServiceName string
	Version     string
	NodeID      string // id raft; vacío en modo local
}

func (c Config) production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "prod")
}

// build nunca falla: si zap no puede abrir las salidas cae a NewProduction.
func build(cfg Config) *zap.Logger {
	var zc zap.Config
	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}

	if cfg.production() {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := zc.Build(opts...)
	if err != nil {
		l, _ = zap.NewProduction()
	}
	return withBase(l, cfg)
}

// withBase fija service, version y node_id cuando vienen configurados.
func withBase(l *zap.Logger, cfg Config) *zap.Logger {
	base := make([]zap.Field, 0, 3)
	for _, kv := range [...]struct{ key, val string }{
		{keyService, cfg.ServiceName},
		{keyVersion, cfg.Version},
		{keyNodeID, cfg.NodeID},
	} {
		if kv.val != "" {
			base = append(base, zap.String(kv.key, kv.val))
		}
	}
	if len(base) == 0 {
		return l
	}
	return l.With(base...)
}

var levels = map[string]zapcore.Level{
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
	"dpanic":  zapcore.DPanicLevel,
	"panic":   zapcore.PanicLevel,
	"fatal":   zapcore.FatalLevel,
}

// parseLevel es tolerante: nivel desconocido => info.
func parseLevel(s string) zapcore.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zapcore.InfoLevel
}
