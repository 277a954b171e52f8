// Package store implements the local vault database: an in-memory SQLite
// instance holding the decrypted credential tables, plus the generic
// last-write-wins merge engine and tombstone cleanup that operate on it.
//
// The decrypted vault must never touch disk in plaintext form, so every
// store lives in memory; the only on-disk artifacts are short-lived temp
// files used for snapshot import/export, removed immediately afterwards.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/google/uuid"
)

// VaultTimeLayout is the timestamp format used in every CreatedAt/UpdatedAt
// column. Lexicographic order of these strings equals chronological order,
// which the cleanup job relies on for its cutoff comparison.
const VaultTimeLayout = "2006-01-02 15:04:05"

// VaultStore owns one in-memory SQLite database holding a decrypted vault.
//
// The store is not safe for concurrent mutation; the vault service is the
// single writer and serializes access. A store is disposable: merge
// candidates and scratch copies are opened, used for one pass and closed.
type VaultStore struct {
	db  *sql.DB
	log *logger.Logger

	descriptors []TableDescriptor
}

// OpenVaultStore creates a new, empty in-memory vault database.
//
// The connection pool is pinned to a single connection: an in-memory SQLite
// database exists per connection, so a second pooled connection would see an
// empty database.
func OpenVaultStore(log *logger.Logger) (*VaultStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory vault database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping in-memory vault database: %w", err)
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &VaultStore{db: db, log: log}, nil
}

// DB exposes the underlying database handle for schema migrations and
// application-level table access.
func (s *VaultStore) DB() *sql.DB {
	return s.db
}

// Close releases the in-memory database. The decrypted vault is gone after
// this call.
func (s *VaultStore) Close() error {
	return s.db.Close()
}

// Now returns the current UTC time formatted as a vault timestamp.
func Now() string {
	return time.Now().UTC().Format(VaultTimeLayout)
}

// ExportSnapshot serializes the whole database into a portable SQLite file
// image and returns its bytes. The snapshot is produced with VACUUM INTO, so
// it is compact and self-consistent regardless of in-flight page state.
func (s *VaultStore) ExportSnapshot(ctx context.Context) ([]byte, error) {
	path := tempSnapshotPath()
	defer os.Remove(path)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("vacuum vault into snapshot: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vault snapshot: %w", err)
	}

	return data, nil
}

// ImportSnapshot replaces the entire contents of the store with the given
// SQLite file image: every existing table is dropped, then the snapshot's
// schema and rows are copied in via ATTACH. Foreign keys are suspended for
// the duration because tables arrive in arbitrary order.
func (s *VaultStore) ImportSnapshot(ctx context.Context, data []byte) error {
	path := tempSnapshotPath()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	defer os.Remove(path)

	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF;"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := s.dropAllTables(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "ATTACH DATABASE ? AS importDb", path); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}

	err := s.copyFromAttached(ctx)

	if _, detachErr := s.db.ExecContext(ctx, "DETACH DATABASE importDb"); detachErr != nil && err == nil {
		err = fmt.Errorf("detach snapshot: %w", detachErr)
	}
	if _, fkErr := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); fkErr != nil && err == nil {
		err = fmt.Errorf("re-enable foreign keys: %w", fkErr)
	}

	s.invalidateDescriptors()
	return err
}

func (s *VaultStore) dropAllTables(ctx context.Context) error {
	names, err := s.objectSQL(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return fmt.Errorf("list tables to drop: %w", err)
	}

	for _, name := range names {
		if _, err = s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q;", name)); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}

	return nil
}

func (s *VaultStore) copyFromAttached(ctx context.Context) error {
	// Recreate the snapshot's tables in main.
	creates, err := s.objectSQL(ctx,
		`SELECT sql FROM importDb.sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return fmt.Errorf("read snapshot schema: %w", err)
	}
	for _, stmt := range creates {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("recreate snapshot table: %w", err)
		}
	}

	// Copy every row.
	names, err := s.objectSQL(ctx,
		`SELECT name FROM importDb.sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return fmt.Errorf("list snapshot tables: %w", err)
	}
	for _, name := range names {
		stmt := fmt.Sprintf("INSERT INTO main.%q SELECT * FROM importDb.%q;", name, name)
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("copy snapshot table %s: %w", name, err)
		}
	}

	// Indexes are not strictly required for correctness but keep lookups on
	// large vaults fast after an import.
	indexes, err := s.objectSQL(ctx,
		`SELECT sql FROM importDb.sqlite_master WHERE type = 'index' AND sql IS NOT NULL;`)
	if err != nil {
		return fmt.Errorf("read snapshot indexes: %w", err)
	}
	for _, stmt := range indexes {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("recreate snapshot index: %w", err)
		}
	}

	return nil
}

// objectSQL runs a single-column query against sqlite_master and collects the
// string results, skipping NULLs.
func (s *VaultStore) objectSQL(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err = rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}

	return out, rows.Err()
}

func tempSnapshotPath() string {
	return filepath.Join(os.TempDir(), "vault-"+uuid.NewString()+".sqlite")
}
