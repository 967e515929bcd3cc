package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockID es la clave del advisory lock que toman los nodos al
// migrar. Varios ledgerd con el sink postgres arrancan a la vez contra la
// misma base; el lock los pone en fila.
const migrationLockID int64 = 0x6c65646765720001

// Los archivos se llaman {version}_{name}.sql; el resto se ignora.
var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migrator aplica las migraciones del read model de eventos. Es flat: solo
// lee los archivos que están directamente en dir.
type Migrator struct {
	fsys fs.FS
	dir  string
}

func NewMigrator(fsys fs.FS, dir string) *Migrator {
	return &Migrator{fsys: fsys, dir: dir}
}

type Migration struct {
	Version int
	Name    string
	SQL     string
}

type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// ParseMigrations devuelve las migraciones de dir ordenadas por versión.
// Dos archivos con la misma versión (0001_a y 001_b) son error.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.dir, err)
	}
	byVersion := make(map[int]Migration, len(entries))
	for _, e := range entries {
		parts := migrationFile.FindStringSubmatch(e.Name())
		if e.IsDir() || parts == nil {
			continue
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%s: version: %w", e.Name(), err)
		}
		if prev, dup := byVersion[v]; dup {
			return nil, fmt.Errorf("migration version %d used by %s and %s", v, prev.Name, parts[2])
		}
		body, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		byVersion[v] = Migration{Version: v, Name: parts[2], SQL: string(body)}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		out = append(out, mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Run aplica las migraciones pendientes bajo el advisory lock. Cada una
// corre en su propia transacción junto con su fila en ledger_schema.
func (m *Migrator) Run(ctx context.Context, pool *pgxpool.Pool) (*MigrationResult, error) {
	began := time.Now()
	res := &MigrationResult{}
	defer func() { res.Duration = time.Since(began) }()

	pending, err := m.ParseMigrations()
	if err != nil {
		return res, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return res, fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return res, fmt.Errorf("migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS ledger_schema (
		version    INT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return res, fmt.Errorf("schema table: %w", err)
	}

	done, err := schemaVersions(ctx, conn.Conn())
	if err != nil {
		return res, err
	}
	for _, mig := range pending {
		if _, ok := done[mig.Version]; ok {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO ledger_schema (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		}); err != nil {
			return res, fmt.Errorf("migration %04d_%s: %w", mig.Version, mig.Name, err)
		}
		res.Applied = append(res.Applied, mig.Version)
	}
	return res, nil
}

func schemaVersions(ctx context.Context, conn *pgx.Conn) (map[int]struct{}, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM ledger_schema`)
	if err != nil {
		return nil, fmt.Errorf("schema versions: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("schema versions: %w", err)
	}
	out := make(map[int]struct{}, len(versions))
	for _, v := range versions {
		out[v] = struct{}{}
	}
	return out, nil
}
