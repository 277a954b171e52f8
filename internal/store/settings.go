package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting reads one value from the Settings key/value table. The second
// return value is false when the key has no live (non-deleted) row; that is
// an ordinary condition, not an error.
func (s *VaultStore) Setting(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT "Value" FROM "Settings" WHERE "Key" = ? AND "IsDeleted" = 0;`, key)

	var value sql.NullString
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}

	return value.String, true, nil
}

// PutSetting inserts or overwrites a Settings row, stamping UpdatedAt so the
// change propagates through merges like any other mutation.
func (s *VaultStore) PutSetting(ctx context.Context, key, value string) error {
	now := Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO "Settings" ("Key", "Value", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT("Key") DO UPDATE SET "Value" = excluded."Value", "UpdatedAt" = excluded."UpdatedAt", "IsDeleted" = 0;`,
		key, value, now, now)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}

	return nil
}

// CredentialsCount returns the number of live (non-deleted) credentials.
func (s *VaultStore) CredentialsCount(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM "Credentials" WHERE "IsDeleted" = 0;`)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}

	return count, nil
}

// EmailAddresses returns the distinct email addresses of all live aliases.
func (s *VaultStore) EmailAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT "Email" FROM "Aliases"
		WHERE "Email" IS NOT NULL AND "Email" != '' AND "IsDeleted" = 0;`)
	if err != nil {
		return nil, fmt.Errorf("list alias emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err = rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan alias email: %w", err)
		}
		emails = append(emails, email)
	}

	return emails, rows.Err()
}
