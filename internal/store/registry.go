// Package store provee el registry de sinks de eventos.
//
// Cada adapter se registra en su init(); quien arma el nodo importa los
// adapters con blank import y abre los sinks por nombre.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
)

// SinkFactory crea un sink a partir de la configuración del nodo.
type SinkFactory func(ctx context.Context, cfg *config.Config) (repository.EventSink, error)

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	factories  = make(map[string]SinkFactory)
)

// RegisterSink registra un sink en el registry global.
// Llamar en init() de cada adapter.
func RegisterSink(name string, f SinkFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("sink: %q already registered", name))
	}
	factories[name] = f
}

// ListSinks retorna los nombres registrados, ordenados.
func ListSinks() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenSink abre el sink registrado como name.
func OpenSink(ctx context.Context, name string, cfg *config.Config) (repository.EventSink, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sink: %q not registered", name)
	}
	s, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sink %s: %w", name, err)
	}
	return s, nil
}
