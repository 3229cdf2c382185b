package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const documentKey = "bot_config"

// SQLiteBackend keeps the document as a single row of the documents table.
type SQLiteBackend struct {
	sql *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	b := &SQLiteBackend{sql: sqldb}
	if err := b.migrate(context.Background()); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			key TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := b.sql.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (b *SQLiteBackend) Read(ctx context.Context) ([]byte, error) {
	var body string
	err := b.sql.QueryRowContext(ctx, `SELECT body FROM documents WHERE key=?`, documentKey).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (b *SQLiteBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.sql.ExecContext(ctx,
		`INSERT INTO documents(key,body,updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		documentKey, string(data), time.Now().Unix())
	return err
}

// UpdatedAt reports when the document was last written.
func (b *SQLiteBackend) UpdatedAt(ctx context.Context) (time.Time, bool, error) {
	var ts int64
	err := b.sql.QueryRowContext(ctx, `SELECT updated_at FROM documents WHERE key=?`, documentKey).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(ts, 0), true, nil
}

// BackupTo creates a consistent SQLite snapshot at dstPath using VACUUM INTO.
// This works even when WAL mode is enabled.
func (b *SQLiteBackend) BackupTo(ctx context.Context, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		return err
	}
	escaped := strings.ReplaceAll(dstPath, "'", "''")
	_, err := b.sql.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s';", escaped))
	return err
}

func (b *SQLiteBackend) Close() error {
	return b.sql.Close()
}
