package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRetention = 7 * 24 * time.Hour

func vaultTimeAgo(d time.Duration) string {
	return time.Now().UTC().Add(-d).Format(VaultTimeLayout)
}

func TestPurgeExpiredTombstones_RemovesExpired(t *testing.T) {
	st := newTestStore(t)
	insertAlias(t, st, "alias-old", "old@mail.example.com", vaultTimeAgo(8*24*time.Hour), true)
	insertAlias(t, st, "alias-live", "live@mail.example.com", vaultTimeAgo(8*24*time.Hour), false)

	purged, err := st.PurgeExpiredTombstones(testCtx(), testRetention)

	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
	assert.Equal(t, 1, countRows(t, st, "Aliases"))
}

func TestPurgeExpiredTombstones_KeepsRecentTombstones(t *testing.T) {
	st := newTestStore(t)
	insertAlias(t, st, "alias-recent", "recent@mail.example.com", vaultTimeAgo(24*time.Hour), true)

	purged, err := st.PurgeExpiredTombstones(testCtx(), testRetention)

	require.NoError(t, err)
	assert.Zero(t, purged)
	// A tombstone younger than the retention window must survive so other
	// clients can still observe the deletion through a merge.
	assert.Equal(t, 1, countRows(t, st, "Aliases"))
}

func TestPurgeExpiredTombstones_AllMergeableTables(t *testing.T) {
	st := newTestStore(t)
	expired := vaultTimeAgo(30 * 24 * time.Hour)

	insertAlias(t, st, "alias-1", "a1@mail.example.com", expired, true)
	insertService(t, st, "svc-1", "Service 1", expired)
	mustExec(t, st, `UPDATE "Services" SET "IsDeleted" = 1 WHERE "Id" = 'svc-1';`)

	purged, err := st.PurgeExpiredTombstones(testCtx(), testRetention)

	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)
	assert.Equal(t, 0, countRows(t, st, "Aliases"))
	assert.Equal(t, 0, countRows(t, st, "Services"))
}

func TestPurgeExpiredTombstones_EmptyVault(t *testing.T) {
	st := newTestStore(t)

	purged, err := st.PurgeExpiredTombstones(testCtx(), testRetention)

	require.NoError(t, err)
	assert.Zero(t, purged)
}
