package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dotcommander/scrum/internal/app"
	_ "modernc.org/sqlite"
)

// Gateway owns the connection to the SQLite file and the schema. Every
// repository holds one; there is no package-level handle.
type Gateway struct {
	db            *sql.DB
	path          string
	logger        *slog.Logger
	busyTimeoutMS int
}

// Option configures a Gateway at Open time.
type Option func(*Gateway)

// WithLogger sets the logger used for schema and tolerant-read messages.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithBusyTimeout overrides the SQLite busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(g *Gateway) {
		if ms > 0 {
			g.busyTimeoutMS = ms
		}
	}
}

// OpenDefault resolves the database path and busy timeout from the app
// configuration and opens it.
func OpenDefault(opts ...Option) (*Gateway, error) {
	dbPath, err := app.GetDBPath()
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithBusyTimeout(app.BusyTimeoutMS())}, opts...)
	return Open(dbPath, opts...)
}

// Open initializes the database connection with SQLite + WAL mode
// and brings the schema up to date.
func Open(dbPath string, opts ...Option) (*Gateway, error) {
	if _, err := app.EnsureDBDir(dbPath); err != nil {
		return nil, err
	}

	g := &Gateway{
		path:          dbPath,
		logger:        slog.Default(),
		busyTimeoutMS: app.DefaultBusyTimeoutMS,
	}
	for _, opt := range opts {
		opt(g)
	}

	// modernc.org/sqlite is strict about DSNs. Use a file: URI with mode=rwc
	// so the database can be created/written consistently across platforms.
	db, err := sql.Open("sqlite", normalizeSQLiteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: every operation is a short scoped transaction and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	g.db = db

	//   busy_timeout:       writers wait up to N ms for the lock.
	//   synchronous=NORMAL: no fsync per commit under WAL.
	//   journal_mode=WAL:   readers in other processes do not block the writer.
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", g.busyTimeoutMS),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA journal_mode=WAL",
	}

	for _, pragma := range pragmas {
		if err := RetryWithBackoff(func() error {
			_, err := db.ExecContext(context.Background(), pragma)
			return err
		}); err != nil {
			_ = db.Close()
			return nil, &StoreUnavailableError{Op: "open", Err: fmt.Errorf("failed to set pragma %q: %w", pragma, err)}
		}
	}

	if err := g.InitSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return g, nil
}

// Close releases the database handle.
func (g *Gateway) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Path returns the path the gateway was opened with.
func (g *Gateway) Path() string {
	return g.path
}

// Logger returns the gateway's logger.
func (g *Gateway) Logger() *slog.Logger {
	return g.logger
}

// Ping checks the store answers a trivial query.
func (g *Gateway) Ping(ctx context.Context) error {
	var one int
	if err := g.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func normalizeSQLiteDSN(dbPath string) string {
	// Support an explicit file: DSN as-is.
	if strings.HasPrefix(dbPath, "file:") {
		return dbPath
	}

	// Provide a predictable in-memory option when callers use the common token.
	if dbPath == ":memory:" {
		return "file::memory:?cache=shared"
	}

	// mode=rwc => read/write/create. Without this, some environments open read-only.
	return "file:" + dbPath + "?mode=rwc"
}

func isMemoryPath(dbPath string) bool {
	return strings.Contains(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory")
}
