package logger

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	current  atomic.Pointer[zap.Logger]
	initOnce sync.Once
)

// Init instala el logger de proceso. Solo la primera llamada cuenta; ledgerd
// la hace en serve antes de abrir el commit log.
func Init(cfg Config) {
	initOnce.Do(func() {
		current.Store(build(cfg))
	})
}

// L devuelve el logger de proceso. Sin Init previo arranca uno de consola en
// nivel info, que es lo que ven los tests y los subcomandos cortos.
func L() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	return current.Load()
}

// Named devuelve un hijo con nombre de componente (fsm, relay, raft...).
func Named(name string) *zap.Logger { return L().Named(name) }

// With devuelve un hijo con fields fijos.
func With(fields ...zap.Field) *zap.Logger { return L().With(fields...) }

// Sync vacía los buffers del logger de proceso, si hay uno.
func Sync() error {
	l := current.Load()
	if l == nil {
		return nil
	}
	return l.Sync()
}
