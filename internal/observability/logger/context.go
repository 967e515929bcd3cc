package logger

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ToContext guarda l en ctx. El middleware de request id y el relay lo usan
// para que los handlers hereden request_id o sink.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From devuelve el logger de ctx o, si no hay, el de proceso.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// Scoped suma fields al logger que ya trae ctx.
func Scoped(ctx context.Context, fields ...zap.Field) context.Context {
	return ToContext(ctx, From(ctx).With(fields...))
}
