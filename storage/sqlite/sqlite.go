// Package sqlite is a storage backend holding content in a single
// SQLite table.
//
// Connections come from a zombiezen sqlitex pool initialized with WAL
// journaling, NORMAL synchronous and a busy timeout, so concurrent
// readers never block the single writer.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	zs "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

const schema = `CREATE TABLE IF NOT EXISTS objects (
	cid  TEXT PRIMARY KEY,
	data BLOB NOT NULL
) WITHOUT ROWID;`

// Config holds the parameters for opening a Backend. Path is required.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize defaults to max(runtime.NumCPU(), 4).
	PoolSize int

	Logger *slog.Logger
}

type Backend struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

var (
	_ storage.Getter  = (*Backend)(nil)
	_ storage.Putter  = (*Backend)(nil)
	_ storage.Deleter = (*Backend)(nil)
)

// Open creates the pool. The schema is applied lazily as each
// connection is first taken. The caller must call Close.
func Open(cfg Config) (*Backend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", cfg.Path, err)
	}
	logger.Info("sqlite backend opened", "path", cfg.Path, "pool_size", poolSize)
	return &Backend{pool: pool, logger: logger, path: cfg.Path}, nil
}

func prepareConn(conn *zs.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteScript(conn, schema, nil)
}

// Close blocks until every borrowed connection is returned.
func (b *Backend) Close() error {
	if err := b.pool.Close(); err != nil {
		b.logger.Error("sqlite backend close error", "path", b.path, "error", err)
		return fmt.Errorf("sqlite: closing %s: %w", b.path, err)
	}
	b.logger.Info("sqlite backend closed", "path", b.path)
	return nil
}

func (b *Backend) Get(ctx context.Context, id cid.CID) ([]byte, error) {
	if id.IsZero() {
		return nil, storage.ErrInvalidCID
	}
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: take: %w", err)
	}
	defer b.pool.Put(conn)

	var (
		data  []byte
		found bool
	)
	err = sqlitex.Execute(conn, `SELECT data FROM objects WHERE cid = ?`, &sqlitex.ExecOptions{
		Args: []any{id.String()},
		ResultFunc: func(stmt *zs.Stmt) error {
			data = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, data)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

// Put inserts or replaces the content for id.
func (b *Backend) Put(ctx context.Context, id cid.CID, data []byte) error {
	if id.IsZero() {
		return storage.ErrInvalidCID
	}
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: take: %w", err)
	}
	defer b.pool.Put(conn)

	if data == nil {
		data = []byte{}
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO objects (cid, data) VALUES (?, ?)
		 ON CONFLICT (cid) DO UPDATE SET data = excluded.data`,
		&sqlitex.ExecOptions{Args: []any{id.String(), data}})
	if err != nil {
		return fmt.Errorf("sqlite: put: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, id cid.CID) error {
	if id.IsZero() {
		return storage.ErrInvalidCID
	}
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: take: %w", err)
	}
	defer b.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM objects WHERE cid = ?`, &sqlitex.ExecOptions{
		Args: []any{id.String()},
	})
	if err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	if conn.Changes() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the number of stored objects.
func (b *Backend) Count(ctx context.Context) (int, error) {
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: take: %w", err)
	}
	defer b.pool.Put(conn)

	n, err := sqlitex.ResultInt(conn.Prep(`SELECT count(*) FROM objects`))
	if err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}
