package store

import (
	"context"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// requiredColumn is a column a pre-existing table must carry. def is the
// ALTER TABLE ADD COLUMN definition; backfill, when set, fills rows that
// predate the column.
type requiredColumn struct {
	table    string
	name     string
	def      string
	backfill string
}

// requiredColumns lists columns older databases may lack. Primary keys are
// not listed: a table without its key cannot be repaired in place.
//
//nolint:gochecknoglobals // static schema table
var requiredColumns = []requiredColumn{
	{table: "tasks", name: "title", def: `TEXT NOT NULL DEFAULT ''`},
	{table: "tasks", name: "description", def: `TEXT NOT NULL DEFAULT ''`},
	{table: "tasks", name: "status", def: `TEXT NOT NULL DEFAULT 'todo'`},
	{table: "tasks", name: "priority", def: `TEXT NOT NULL DEFAULT 'medium'`},
	{table: "tasks", name: "created_at", def: `TEXT NOT NULL DEFAULT ''`,
		backfill: `UPDATE tasks SET created_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE created_at = ''`},
	{table: "tasks", name: "updated_at", def: `TEXT NOT NULL DEFAULT ''`,
		backfill: `UPDATE tasks SET updated_at = created_at WHERE updated_at = ''`},
	{table: "tasks", name: "tags", def: `TEXT NOT NULL DEFAULT ''`},
	{table: "sprints", name: "status", def: `TEXT NOT NULL DEFAULT 'Planned'`},
	{table: "sprints", name: "created_at", def: `TEXT NOT NULL DEFAULT ''`,
		backfill: `UPDATE sprints SET created_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE created_at = ''`},
}

// InitSchema brings the schema up to date. It is safe to call repeatedly and
// against databases written by older versions: missing columns are added in
// place, nothing is dropped. File-backed databases are migrated under an
// advisory lock so two processes do not race.
func (g *Gateway) InitSchema(ctx context.Context) error {
	if !isMemoryPath(g.path) && !strings.HasPrefix(g.path, "file:") {
		lock, err := acquireMigrationLock(g.path)
		if err != nil {
			return unavailable("migration lock", err)
		}
		defer lock.release()
	}

	if err := RetryWithBackoff(func() error { return g.runMigrations(ctx) }); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

func (g *Gateway) runMigrations(ctx context.Context) error {
	// Columns first: the index migration needs status/priority on old tables.
	if err := g.ensureColumns(ctx); err != nil {
		return fmt.Errorf("column migration: %w", err)
	}

	if err := configureGoose(); err != nil {
		return err
	}

	versionBefore, _ := goose.GetDBVersionContext(ctx, g.db)
	if err := goose.UpContext(ctx, g.db, "migrations"); err != nil {
		return err
	}
	versionAfter, _ := goose.GetDBVersionContext(ctx, g.db)
	if versionAfter != versionBefore {
		g.logger.Info("schema migrated", "from_version", versionBefore, "to_version", versionAfter, "db_path", g.path)
	}
	return nil
}

func configureGoose() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetVerbose(false)
	goose.SetLogger(goose.NopLogger())

	// goose uses "sqlite3" as its dialect name regardless of the underlying driver.
	// We use modernc.org/sqlite (registered as "sqlite"), but goose's dialect
	// controls SQL generation, not the driver name.
	return goose.SetDialect("sqlite3")
}

// ensureColumns adds any requiredColumns missing from tables that already
// exist. Tables that do not exist yet are left to the migrations.
func (g *Gateway) ensureColumns(ctx context.Context) error {
	existing := map[string]map[string]bool{}
	for _, col := range requiredColumns {
		cols, ok := existing[col.table]
		if !ok {
			var err error
			cols, err = tableColumns(ctx, g.db, col.table)
			if err != nil {
				return err
			}
			existing[col.table] = cols
		}
		if len(cols) == 0 || cols[col.name] {
			continue
		}

		//nolint:gosec // G201: table/column names come from the static requiredColumns list
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, col.table, col.name, col.def)
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add %s.%s: %w", col.table, col.name, err)
		}
		if col.backfill != "" {
			if _, err := g.db.ExecContext(ctx, col.backfill); err != nil {
				return fmt.Errorf("backfill %s.%s: %w", col.table, col.name, err)
			}
		}
		cols[col.name] = true
		g.logger.Warn("added missing column to legacy table", "table", col.table, "column", col.name)
	}
	return nil
}

// tableColumns returns the column names of table; empty when the table does not exist.
func tableColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	// PRAGMA arguments cannot be bound; the name comes from requiredColumns.
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM pragma_table_info('%s')`, table)) //nolint:gosec // G201: static table name
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// SchemaVersion returns the current and latest migration versions.
// current comes from goose_db_version; latest is the highest version
// in the embedded migration files. Returns (0, latest, nil) for a fresh DB.
func (g *Gateway) SchemaVersion(ctx context.Context) (current int64, latest int64, err error) {
	if err := configureGoose(); err != nil {
		return 0, 0, fmt.Errorf("set dialect: %w", err)
	}

	current, err = goose.GetDBVersionContext(ctx, g.db)
	if err != nil {
		current = 0
	}

	latest, err = latestMigrationVersion()
	if err != nil {
		return current, 0, fmt.Errorf("determine latest version: %w", err)
	}
	return current, latest, nil
}

// latestMigrationVersion reads the embedded migrations directory and returns
// the highest version number found.
func latestMigrationVersion() (int64, error) {
	entries, err := embedMigrations.ReadDir("migrations")
	if err != nil {
		return 0, fmt.Errorf("read migrations dir: %w", err)
	}
	var maxVersion int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		// Parse version from filename prefix "00002_name.sql" -> 2
		idx := strings.IndexByte(name, '_')
		if idx <= 0 {
			continue
		}
		v, err := strconv.ParseInt(name[:idx], 10, 64)
		if err != nil {
			continue
		}
		if v > maxVersion {
			maxVersion = v
		}
	}
	return maxVersion, nil
}
