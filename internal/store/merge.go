package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Merge combines every candidate store into base using a per-row
// last-write-wins rule, then verifies referential integrity.
//
// For each mergeable table of base, each candidate row either does not exist
// in base (it is inserted as-is) or conflicts on Id. Conflicts are resolved
// by UpdatedAt: a strictly newer candidate overwrites the whole base row,
// tombstone flag included. Equal timestamps fall back to a deterministic
// content-hash comparison so the outcome never depends on the order the
// candidates are applied in.
//
// Foreign keys are suspended for the duration of the pass because a merge may
// transiently produce dangling references (e.g. a credential arriving before
// its service). A violation that survives to the end of the pass aborts the
// merge with ErrMergeIntegrity; the caller must discard base in that case,
// its contents are not trustworthy.
func Merge(ctx context.Context, base *VaultStore, candidates ...*VaultStore) error {
	descriptors, err := base.Descriptors(ctx)
	if err != nil {
		return err
	}

	if _, err = base.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF;"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}

	for _, candidate := range candidates {
		for _, d := range descriptors {
			if !d.Mergeable() {
				continue
			}
			if err = mergeTable(ctx, base, candidate, d); err != nil {
				return fmt.Errorf("merge table %s: %w", d.Name, err)
			}
		}
	}

	if _, err = base.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("re-enable foreign keys: %w", err)
	}

	return verifyIntegrity(ctx, base)
}

// mergeTable applies every row of the candidate's table onto base.
//
// The candidate may have been produced by a different schema revision and
// lack columns base has (or vice versa); only the intersection of both
// column sets is carried over, missing columns keep their defaults.
func mergeTable(ctx context.Context, base, candidate *VaultStore, d TableDescriptor) error {
	columns, err := sharedColumns(ctx, base, candidate, d)
	if err != nil {
		return err
	}
	if columns == nil {
		// Table absent from the candidate: nothing to merge.
		return nil
	}

	idIdx, updatedIdx := indexOf(columns, "Id"), indexOf(columns, "UpdatedAt")
	if idIdx < 0 || updatedIdx < 0 {
		return nil
	}

	candidateRows, err := readRows(ctx, candidate.db, d.Name, columns)
	if err != nil {
		return err
	}

	for _, row := range candidateRows {
		id := row[idIdx]

		baseRow, found, err := readRowByID(ctx, base.db, d.Name, columns, id)
		if err != nil {
			return err
		}

		if !found {
			insert := sq.Insert(fmt.Sprintf("%q", d.Name)).
				Columns(quoted(columns)...).
				Values(row...)
			if _, err = insert.RunWith(base.db).ExecContext(ctx); err != nil {
				return fmt.Errorf("insert row %v: %w", id, err)
			}
			continue
		}

		if !candidateWins(row, baseRow, updatedIdx) {
			continue
		}

		setMap := make(map[string]any, len(columns))
		for i, col := range columns {
			setMap[fmt.Sprintf("%q", col)] = row[i]
		}
		update := sq.Update(fmt.Sprintf("%q", d.Name)).
			SetMap(setMap).
			Where(sq.Eq{`"Id"`: id})
		if _, err = update.RunWith(base.db).ExecContext(ctx); err != nil {
			return fmt.Errorf("update row %v: %w", id, err)
		}
	}

	return nil
}

// candidateWins decides the conflict between two rows sharing an Id. The row
// with the strictly newer UpdatedAt wins. Identical timestamps are broken by
// comparing content hashes, with base keeping ties, so the winner is the
// same no matter which side happened to be loaded as base.
func candidateWins(candidateRow, baseRow []any, updatedIdx int) bool {
	candidateAt, err1 := parseVaultTime(candidateRow[updatedIdx])
	baseAt, err2 := parseVaultTime(baseRow[updatedIdx])
	if err1 != nil || err2 != nil {
		// Unparseable clock on either side: keep base, never guess.
		return false
	}

	switch {
	case candidateAt.After(baseAt):
		return true
	case candidateAt.Before(baseAt):
		return false
	default:
		return rowHash(candidateRow) < rowHash(baseRow)
	}
}

func verifyIntegrity(ctx context.Context, base *VaultStore) error {
	rows, err := base.db.QueryContext(ctx, "PRAGMA foreign_key_check;")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var (
			table  string
			rowid  any
			parent string
			fkid   any
		)
		_ = rows.Scan(&table, &rowid, &parent, &fkid)
		return fmt.Errorf("%w: table %s references missing %s row", ErrMergeIntegrity, table, parent)
	}

	return rows.Err()
}

// sharedColumns returns base's column order restricted to columns the
// candidate also has, or nil when the candidate lacks the table.
func sharedColumns(ctx context.Context, base, candidate *VaultStore, d TableDescriptor) ([]string, error) {
	candDescs, err := candidate.Descriptors(ctx)
	if err != nil {
		return nil, err
	}

	for _, cd := range candDescs {
		if cd.Name != d.Name {
			continue
		}
		have := make(map[string]bool, len(cd.Columns))
		for _, c := range cd.Columns {
			have[c] = true
		}
		shared := make([]string, 0, len(d.Columns))
		for _, c := range d.Columns {
			if have[c] {
				shared = append(shared, c)
			}
		}
		return shared, nil
	}

	return nil, nil
}

func readRows(ctx context.Context, db *sql.DB, table string, columns []string) ([][]any, error) {
	query := sq.Select(quoted(columns)...).From(fmt.Sprintf("%q", table))
	rows, err := query.RunWith(db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		row, err := scanRow(rows, len(columns))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func readRowByID(ctx context.Context, db *sql.DB, table string, columns []string, id any) ([]any, bool, error) {
	query := sq.Select(quoted(columns)...).
		From(fmt.Sprintf("%q", table)).
		Where(sq.Eq{`"Id"`: id})
	rows, err := query.RunWith(db).QueryContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("read row %v: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}

	row, err := scanRow(rows, len(columns))
	if err != nil {
		return nil, false, err
	}

	return row, true, rows.Err()
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	values := make([]any, n)
	pointers := make([]any, n)
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := rows.Scan(pointers...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return values, nil
}

// rowHash produces a stable digest of a row's values in column order. Used
// only as the deterministic tie-break for identical UpdatedAt timestamps.
func rowHash(row []any) string {
	h := sha256.New()
	for _, v := range row {
		h.Write(valueBytes(v))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func valueBytes(v any) []byte {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return t
	case string:
		return []byte(t)
	case time.Time:
		return []byte(t.UTC().Format(time.RFC3339Nano))
	default:
		return []byte(fmt.Sprintf("%v", t))
	}
}

// parseVaultTime interprets an UpdatedAt column value. Vaults written by this
// client use VaultTimeLayout, but snapshots produced elsewhere may carry
// RFC3339 or fractional-second variants; all chronologically equivalent
// encodings compare equal after parsing.
func parseVaultTime(v any) (time.Time, error) {
	var raw string
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}

	layouts := []string{
		VaultTimeLayout,
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
