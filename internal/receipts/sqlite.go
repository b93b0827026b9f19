package receipts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	name         TEXT PRIMARY KEY,
	version      TEXT NOT NULL,
	prefix       TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	installed_at TEXT NOT NULL,
	build_deps   TEXT NOT NULL,
	runtime_deps TEXT NOT NULL
);`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the receipt database at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory: %w", err)
	}
	source, err := dsn(path)
	if err != nil {
		return nil, fmt.Errorf("invalid receipts path %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipts database %s: %w", path, err)
	}
	// Writers are serialized by SQLite anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate receipts database %s: %w", path, err)
	}
	logger.Debug("Opened receipts database.", "path", path)
	return &SQLiteStore{db: db}, nil
}

// dsn builds the SQLite URI of the database file at path. The path is
// percent-encoded, so `?`, `#` and `%` stay part of the file name.
func dsn(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "_pragma=busy_timeout(5000)"}
	return u.String(), nil
}

func (s *SQLiteStore) Put(ctx context.Context, r Receipt) error {
	build, err := encodeList(r.BuildDeps)
	if err != nil {
		return err
	}
	runtime, err := encodeList(r.RuntimeDeps)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO receipts (name, version, prefix, run_id, installed_at, build_deps, runtime_deps)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	version = excluded.version,
	prefix = excluded.prefix,
	run_id = excluded.run_id,
	installed_at = excluded.installed_at,
	build_deps = excluded.build_deps,
	runtime_deps = excluded.runtime_deps`,
		r.Name, r.Version, r.Prefix, r.RunID, r.InstalledAt.UTC().Format(time.RFC3339Nano), build, runtime)
	if err != nil {
		return fmt.Errorf("failed to store receipt for %q: %w", r.Name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT name, version, prefix, run_id, installed_at, build_deps, runtime_deps
FROM receipts WHERE name = ?`, name)
	r, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Receipt{}, ErrNotFound
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to read receipt for %q: %w", name, err)
	}
	return r, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, version, prefix, run_id, installed_at, build_deps, runtime_deps
FROM receipts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list receipts: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(sc scanner) (Receipt, error) {
	var (
		r                      Receipt
		installedAt            string
		buildDeps, runtimeDeps string
	)
	if err := sc.Scan(&r.Name, &r.Version, &r.Prefix, &r.RunID, &installedAt, &buildDeps, &runtimeDeps); err != nil {
		return Receipt{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, installedAt)
	if err != nil {
		return Receipt{}, fmt.Errorf("invalid installed_at %q: %w", installedAt, err)
	}
	r.InstalledAt = t
	if r.BuildDeps, err = decodeList(buildDeps); err != nil {
		return Receipt{}, err
	}
	if r.RuntimeDeps, err = decodeList(runtimeDeps); err != nil {
		return Receipt{}, err
	}
	return r, nil
}

func encodeList(list []string) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode dependency list: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, fmt.Errorf("invalid dependency list %q: %w", s, err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}
