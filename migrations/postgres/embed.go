// Package migrations embeds SQL migration files.
package migrations

import "embed"

// PostgresFS contiene las migraciones de la proyección de eventos.
//
//go:embed *.sql
var PostgresFS embed.FS

// PostgresDir es el directorio dentro de PostgresFS donde viven las migraciones.
const PostgresDir = "."
