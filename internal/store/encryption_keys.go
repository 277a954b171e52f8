package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eversafe/go-vault-sync/models"
	"github.com/google/uuid"
)

// PrimaryEncryptionKey returns the vault's primary asymmetric keypair. The
// second return value is false when no primary key exists yet, which is the
// normal state of a vault before its first save.
func (s *VaultStore) PrimaryEncryptionKey(ctx context.Context) (models.EncryptionKey, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT "Id", "PublicKey", "PrivateKey", "IsPrimary", "CreatedAt", "UpdatedAt", "IsDeleted"
		FROM "EncryptionKeys"
		WHERE "IsPrimary" = 1 AND "IsDeleted" = 0
		LIMIT 1;`)

	var key models.EncryptionKey
	err := row.Scan(&key.ID, &key.PublicKey, &key.PrivateKey, &key.IsPrimary,
		&key.CreatedAt, &key.UpdatedAt, &key.IsDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EncryptionKey{}, false, nil
		}
		return models.EncryptionKey{}, false, fmt.Errorf("read primary encryption key: %w", err)
	}

	return key, true, nil
}

// InsertEncryptionKey stores a new keypair row. An empty ID is assigned a
// fresh UUID; empty timestamps are stamped with the current time.
func (s *VaultStore) InsertEncryptionKey(ctx context.Context, key models.EncryptionKey) (models.EncryptionKey, error) {
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	if key.CreatedAt == "" {
		key.CreatedAt = Now()
	}
	if key.UpdatedAt == "" {
		key.UpdatedAt = Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO "EncryptionKeys" ("Id", "PublicKey", "PrivateKey", "IsPrimary", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, ?, ?, ?, ?, ?, ?);`,
		key.ID, key.PublicKey, key.PrivateKey, key.IsPrimary, key.CreatedAt, key.UpdatedAt, key.IsDeleted)
	if err != nil {
		return models.EncryptionKey{}, fmt.Errorf("insert encryption key: %w", err)
	}

	return key, nil
}
