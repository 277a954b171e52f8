package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/eversafe/go-vault-sync/migrations"
)

// newTestStore opens an in-memory store bootstrapped to the latest schema.
func newTestStore(t *testing.T) *VaultStore {
	t.Helper()

	st, err := OpenVaultStore(logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, migrations.CreateNewVault(st.DB()))
	st.InvalidateDescriptors()

	return st
}

func mustExec(t *testing.T, st *VaultStore, query string, args ...any) {
	t.Helper()
	_, err := st.db.Exec(query, args...)
	require.NoError(t, err)
}

func insertAlias(t *testing.T, st *VaultStore, id, email, updatedAt string, deleted bool) {
	t.Helper()
	mustExec(t, st, `
		INSERT INTO "Aliases" ("Id", "FirstName", "BirthDate", "Email", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, 'Test', '1990-01-01', ?, ?, ?, ?);`,
		id, email, updatedAt, updatedAt, boolToInt(deleted))
}

func insertService(t *testing.T, st *VaultStore, id, name, updatedAt string) {
	t.Helper()
	mustExec(t, st, `
		INSERT INTO "Services" ("Id", "Name", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, ?, ?, ?, 0);`,
		id, name, updatedAt, updatedAt)
}

func insertCredential(t *testing.T, st *VaultStore, id, aliasID, serviceID, username, updatedAt string, deleted bool) {
	t.Helper()
	mustExec(t, st, `
		INSERT INTO "Credentials" ("Id", "AliasId", "ServiceId", "Username", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, ?, ?, ?, ?, ?, ?);`,
		id, aliasID, serviceID, username, updatedAt, updatedAt, boolToInt(deleted))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// credentialField reads one column of a Credentials row.
func credentialField(t *testing.T, st *VaultStore, id, column string) string {
	t.Helper()
	var value string
	query := fmt.Sprintf(`SELECT CAST(%q AS TEXT) FROM "Credentials" WHERE "Id" = ?;`, column)
	require.NoError(t, st.db.QueryRow(query, id).Scan(&value))
	return value
}

func countRows(t *testing.T, st *VaultStore, table string) int {
	t.Helper()
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %q;`, table)
	require.NoError(t, st.db.QueryRow(query).Scan(&n))
	return n
}

func testCtx() context.Context {
	return context.Background()
}
