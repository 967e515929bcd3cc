// Package repository define los puertos de infraestructura del ledger.
//
// Las implementaciones concretas viven en internal/store/adapters/:
//
//	┌─────────────────────────────────────────────────────┐
//	│        facade / events relay / http                 │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│   domain/repository (CommitLog, EventSink)          │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	      ┌─────────────┬───┴─────────┬─────────────┐
//	      ▼             ▼             ▼             ▼
//	┌──────────┐  ┌──────────┐  ┌──────────┐  ┌──────────┐
//	│   raft   │  │  local   │  │    pg    │  │  redis   │
//	└──────────┘  └──────────┘  └──────────┘  └──────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de infraestructura están en errors.go; los de negocio en internal/ledger
package repository
