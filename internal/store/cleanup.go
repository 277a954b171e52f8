package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// PurgeExpiredTombstones permanently deletes soft-deleted rows whose
// UpdatedAt is at or before now-retention, from every mergeable table.
// Returns the total number of rows removed.
//
// The cutoff comparison is done on the stored timestamp strings directly:
// VaultTimeLayout sorts lexicographically in chronological order.
func (s *VaultStore) PurgeExpiredTombstones(ctx context.Context, retention time.Duration) (int64, error) {
	descriptors, err := s.Descriptors(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-retention).Format(VaultTimeLayout)

	var purged int64
	for _, d := range descriptors {
		if !d.Mergeable() {
			continue
		}

		del := sq.Delete(fmt.Sprintf("%q", d.Name)).
			Where(sq.Eq{`"IsDeleted"`: 1}).
			Where(sq.LtOrEq{`"UpdatedAt"`: cutoff})
		res, err := del.RunWith(s.db).ExecContext(ctx)
		if err != nil {
			return purged, fmt.Errorf("purge tombstones from %s: %w", d.Name, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return purged, fmt.Errorf("count purged rows in %s: %w", d.Name, err)
		}
		purged += n
	}

	return purged, nil
}
