// Package migrations owns the vault schema: the ordered upgrade scripts
// embedded at build time and the catalog mapping script revisions to
// human-readable vault versions.
//
// The applied revision is recorded inside the vault database itself, so it
// travels with every encrypted snapshot and survives import on any client.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedMigrations embed.FS

// ErrUnknownVersion is returned when the vault's recorded schema revision
// does not map to any entry of the compiled-in catalog. The vault was most
// likely produced by a newer client build; migrating it here could destroy
// data, so the caller must fail closed.
var ErrUnknownVersion = errors.New("vault schema version unknown to this client")

func setup() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	return nil
}

// CurrentRevision reports the schema revision recorded inside the vault
// database. A freshly opened, never-migrated database reports 0.
func CurrentRevision(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("db is nil")
	}
	if err := setup(); err != nil {
		return 0, err
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("migration error reading vault revision: %w", err)
	}

	return version, nil
}

// Upgrade applies every migration script after the vault's current revision
// up to and including toRevision, in order. It refuses to run when either the
// current or the target revision is not in the catalog.
func Upgrade(db *sql.DB, toRevision int64) error {
	if db == nil {
		return errors.New("db is nil")
	}

	current, err := CurrentRevision(db)
	if err != nil {
		return err
	}
	if _, ok := VersionForRevision(current); !ok {
		return fmt.Errorf("revision %d: %w", current, ErrUnknownVersion)
	}
	if _, ok := VersionForRevision(toRevision); !ok {
		return fmt.Errorf("revision %d: %w", toRevision, ErrUnknownVersion)
	}

	if err := goose.UpTo(db, ".", toRevision); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}

// CreateNewVault bootstraps an empty database to the latest schema by
// applying every script in the catalog in one pass. Used only when the
// server reports an empty vault blob for a brand-new account.
func CreateNewVault(db *sql.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if err := setup(); err != nil {
		return err
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
