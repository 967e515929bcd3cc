package middlewares

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

// responseMeter registra el primer status escrito y cuántos bytes salieron.
type responseMeter struct {
	http.ResponseWriter
	code    int
	written int
}

func (m *responseMeter) WriteHeader(code int) {
	if m.code != 0 {
		return
	}
	m.code = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(p []byte) (int, error) {
	if m.code == 0 {
		m.code = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(p)
	m.written += n
	return n, err
}

func (m *responseMeter) status() int {
	if m.code == 0 {
		return http.StatusOK
	}
	return m.code
}

// accessLevel: 5xx error, 4xx warn, el resto info.
func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// WithLogging escribe una línea de acceso por request y deja en el contexto
// un logger con request_id para los handlers. Va después de WithRequestID.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			log := logger.L().With(
				logger.RequestID(GetRequestID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.ClientIP(remoteHost(r.RemoteAddr)),
			)
			ctx, access := withAccessRecord(logger.ToContext(r.Context(), log))
			meter := &responseMeter{ResponseWriter: w}
			next.ServeHTTP(meter, r.WithContext(ctx))

			status := meter.status()
			fields := []zap.Field{
				logger.Status(status),
				zap.Int("bytes", meter.written),
				logger.Duration(time.Since(began)),
			}
			if access.operator != "" {
				fields = append(fields, logger.String("operator", access.operator))
			}
			if ce := log.Check(accessLevel(status), "http request"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
