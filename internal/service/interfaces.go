package service

import (
	"context"
	"time"
)

// VaultSaveJob defines the contract for a background worker that periodically
// flushes unsaved vault changes to the server.
type VaultSaveJob interface {
	// Start launches the background save goroutine. It checks every interval,
	// defaulting to 5 minutes if interval is zero or negative, and uploads the
	// vault when it is dirty. Any previously running job is stopped before
	// the new one begins.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()
}
