package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeOld   = "2025-05-01 10:00:00"
	timeMid   = "2025-05-02 10:00:00"
	timeNewer = "2025-05-03 10:00:00"
)

// seedLinkedRows inserts a consistent alias/service/credential triple.
func seedLinkedRows(t *testing.T, st *VaultStore, suffix, username, updatedAt string) {
	t.Helper()
	insertAlias(t, st, "alias-"+suffix, "a"+suffix+"@mail.example.com", updatedAt, false)
	insertService(t, st, "svc-"+suffix, "Service "+suffix, updatedAt)
	insertCredential(t, st, "cred-"+suffix, "alias-"+suffix, "svc-"+suffix, username, updatedAt, false)
}

func TestMerge_InsertsMissingRows(t *testing.T) {
	base := newTestStore(t)
	candidate := newTestStore(t)
	seedLinkedRows(t, candidate, "1", "user-one", timeOld)

	require.NoError(t, Merge(testCtx(), base, candidate))

	assert.Equal(t, 1, countRows(t, base, "Aliases"))
	assert.Equal(t, 1, countRows(t, base, "Services"))
	assert.Equal(t, 1, countRows(t, base, "Credentials"))
	assert.Equal(t, "user-one", credentialField(t, base, "cred-1", "Username"))
}

func TestMerge_NewerCandidateWins(t *testing.T) {
	base := newTestStore(t)
	seedLinkedRows(t, base, "1", "stale-name", timeOld)

	candidate := newTestStore(t)
	seedLinkedRows(t, candidate, "1", "fresh-name", timeNewer)

	require.NoError(t, Merge(testCtx(), base, candidate))

	assert.Equal(t, 1, countRows(t, base, "Credentials"))
	assert.Equal(t, "fresh-name", credentialField(t, base, "cred-1", "Username"))
	assert.Equal(t, timeNewer, credentialField(t, base, "cred-1", "UpdatedAt"))
}

func TestMerge_OlderCandidateLoses(t *testing.T) {
	base := newTestStore(t)
	seedLinkedRows(t, base, "1", "current-name", timeNewer)

	candidate := newTestStore(t)
	seedLinkedRows(t, candidate, "1", "ancient-name", timeOld)

	require.NoError(t, Merge(testCtx(), base, candidate))

	assert.Equal(t, "current-name", credentialField(t, base, "cred-1", "Username"))
	assert.Equal(t, timeNewer, credentialField(t, base, "cred-1", "UpdatedAt"))
}

func TestMerge_TombstonePropagates(t *testing.T) {
	base := newTestStore(t)
	seedLinkedRows(t, base, "1", "user-one", timeOld)

	candidate := newTestStore(t)
	insertAlias(t, candidate, "alias-1", "a1@mail.example.com", timeOld, false)
	insertService(t, candidate, "svc-1", "Service 1", timeOld)
	insertCredential(t, candidate, "cred-1", "alias-1", "svc-1", "user-one", timeNewer, true)

	require.NoError(t, Merge(testCtx(), base, candidate))

	// The deletion is the newest write; the base row must become a tombstone,
	// not disappear.
	assert.Equal(t, 1, countRows(t, base, "Credentials"))
	assert.Equal(t, "1", credentialField(t, base, "cred-1", "IsDeleted"))
}

func TestMerge_Idempotent(t *testing.T) {
	base := newTestStore(t)
	seedLinkedRows(t, base, "1", "base-user", timeMid)

	candidate := newTestStore(t)
	seedLinkedRows(t, candidate, "1", "cand-user", timeNewer)
	seedLinkedRows(t, candidate, "2", "extra-user", timeOld)

	require.NoError(t, Merge(testCtx(), base, candidate))
	firstUsername := credentialField(t, base, "cred-1", "Username")
	firstCount := countRows(t, base, "Credentials")

	require.NoError(t, Merge(testCtx(), base, candidate))

	assert.Equal(t, firstUsername, credentialField(t, base, "cred-1", "Username"))
	assert.Equal(t, firstCount, countRows(t, base, "Credentials"))
}

func TestMerge_EqualTimestampsDeterministic(t *testing.T) {
	// Two stores hold conflicting rows with the identical UpdatedAt. Whichever
	// side is merged into the other, the surviving content must be the same.
	buildA := func(t *testing.T) *VaultStore {
		st := newTestStore(t)
		seedLinkedRows(t, st, "1", "content-a", timeMid)
		return st
	}
	buildB := func(t *testing.T) *VaultStore {
		st := newTestStore(t)
		seedLinkedRows(t, st, "1", "content-b", timeMid)
		return st
	}

	baseAB := buildA(t)
	require.NoError(t, Merge(testCtx(), baseAB, buildB(t)))
	winnerAB := credentialField(t, baseAB, "cred-1", "Username")

	baseBA := buildB(t)
	require.NoError(t, Merge(testCtx(), baseBA, buildA(t)))
	winnerBA := credentialField(t, baseBA, "cred-1", "Username")

	assert.Equal(t, winnerAB, winnerBA)
}

func TestMerge_DisjointCandidatesCommute(t *testing.T) {
	buildCandidates := func(t *testing.T) (*VaultStore, *VaultStore) {
		c1 := newTestStore(t)
		seedLinkedRows(t, c1, "1", "user-one", timeOld)
		c2 := newTestStore(t)
		seedLinkedRows(t, c2, "2", "user-two", timeMid)
		return c1, c2
	}

	forward := newTestStore(t)
	c1, c2 := buildCandidates(t)
	require.NoError(t, Merge(testCtx(), forward, c1, c2))

	reverse := newTestStore(t)
	c1, c2 = buildCandidates(t)
	require.NoError(t, Merge(testCtx(), reverse, c2, c1))

	for _, table := range []string{"Aliases", "Services", "Credentials"} {
		assert.Equal(t, countRows(t, forward, table), countRows(t, reverse, table), table)
	}
	assert.Equal(t, "user-one", credentialField(t, forward, "cred-1", "Username"))
	assert.Equal(t, "user-two", credentialField(t, reverse, "cred-2", "Username"))
}

func TestMerge_IntegrityViolationAborts(t *testing.T) {
	base := newTestStore(t)

	candidate := newTestStore(t)
	// A credential pointing at rows that exist nowhere. FK enforcement on the
	// candidate must be bypassed to stage the broken state.
	mustExec(t, candidate, "PRAGMA foreign_keys = OFF;")
	insertCredential(t, candidate, "cred-orphan", "alias-missing", "svc-missing", "ghost", timeOld, false)

	err := Merge(testCtx(), base, candidate)

	assert.ErrorIs(t, err, ErrMergeIntegrity)
}

func TestMerge_SkipsTablesWithoutSyncColumns(t *testing.T) {
	base := newTestStore(t)

	candidate := newTestStore(t)
	require.NoError(t, candidate.PutSetting(testCtx(), "DefaultEmailDomain", "mail.example.com"))

	require.NoError(t, Merge(testCtx(), base, candidate))

	// Settings is keyed on Key and carries no Id column; merges must leave it
	// alone.
	_, found, err := base.Setting(testCtx(), "DefaultEmailDomain")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMerge_CandidateMissingTable(t *testing.T) {
	base := newTestStore(t)

	candidate := newTestStore(t)
	seedLinkedRows(t, candidate, "1", "user-one", timeOld)
	mustExec(t, candidate, `DROP TABLE "TotpCodes";`)
	candidate.InvalidateDescriptors()

	// An older-schema candidate without the table merges fine; the table is
	// simply skipped.
	require.NoError(t, Merge(testCtx(), base, candidate))
	assert.Equal(t, 1, countRows(t, base, "Credentials"))
	assert.Equal(t, 0, countRows(t, base, "TotpCodes"))
}

func TestMerge_MultipleCandidatesLatestWins(t *testing.T) {
	base := newTestStore(t)
	seedLinkedRows(t, base, "1", "oldest", timeOld)

	c1 := newTestStore(t)
	seedLinkedRows(t, c1, "1", "middle", timeMid)
	c2 := newTestStore(t)
	seedLinkedRows(t, c2, "1", "newest", timeNewer)

	require.NoError(t, Merge(testCtx(), base, c1, c2))

	assert.Equal(t, "newest", credentialField(t, base, "cred-1", "Username"))
}

func TestMerge_UnparseableTimestampKeepsBase(t *testing.T) {
	base := newTestStore(t)
	seedLinkedRows(t, base, "1", "base-user", timeMid)

	candidate := newTestStore(t)
	insertAlias(t, candidate, "alias-1", "a1@mail.example.com", timeMid, false)
	insertService(t, candidate, "svc-1", "Service 1", timeMid)
	insertCredential(t, candidate, "cred-1", "alias-1", "svc-1", "cand-user", "not a timestamp", false)

	require.NoError(t, Merge(testCtx(), base, candidate))

	assert.Equal(t, "base-user", credentialField(t, base, "cred-1", "Username"))
}
