package store

import (
	"context"
	"fmt"
)

// TableDescriptor captures the merge-relevant shape of one vault table. The
// descriptor list is built once per imported schema and then drives the merge
// generically, instead of re-querying schema metadata per row.
type TableDescriptor struct {
	Name    string
	Columns []string

	HasID        bool
	HasUpdatedAt bool
	HasIsDeleted bool
}

// Mergeable reports whether the table participates in vault merges. A table
// qualifies only when it carries all three synchronization columns: a stable
// row identity (Id), a conflict clock (UpdatedAt) and a tombstone flag
// (IsDeleted). Anything else (schema bookkeeping, key/value settings) is
// skipped entirely.
func (d TableDescriptor) Mergeable() bool {
	return d.HasID && d.HasUpdatedAt && d.HasIsDeleted
}

// Descriptors introspects the store's schema and returns a descriptor per
// table. The result is cached until the next import or migration.
func (s *VaultStore) Descriptors(ctx context.Context) ([]TableDescriptor, error) {
	if s.descriptors != nil {
		return s.descriptors, nil
	}

	names, err := s.objectSQL(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list vault tables: %w", err)
	}

	descriptors := make([]TableDescriptor, 0, len(names))
	for _, name := range names {
		d := TableDescriptor{Name: name}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q);", name))
		if err != nil {
			return nil, fmt.Errorf("table info for %s: %w", name, err)
		}
		for rows.Next() {
			var (
				cid        int
				colName    string
				colType    string
				notNull    int
				defaultVal any
				pk         int
			)
			if err = rows.Scan(&cid, &colName, &colType, &notNull, &defaultVal, &pk); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan table info for %s: %w", name, err)
			}

			d.Columns = append(d.Columns, colName)
			switch colName {
			case "Id":
				d.HasID = true
			case "UpdatedAt":
				d.HasUpdatedAt = true
			case "IsDeleted":
				d.HasIsDeleted = true
			}
		}
		if err = rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate table info for %s: %w", name, err)
		}
		rows.Close()

		descriptors = append(descriptors, d)
	}

	s.descriptors = descriptors
	return descriptors, nil
}

// InvalidateDescriptors drops the cached descriptor list. Must be called
// after any schema change (import or migration).
func (s *VaultStore) InvalidateDescriptors() {
	s.invalidateDescriptors()
}

func (s *VaultStore) invalidateDescriptors() {
	s.descriptors = nil
}

func quoted(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = fmt.Sprintf("%q", c)
	}
	return out
}
