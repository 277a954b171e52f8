package service

import (
	"context"
	"sync"
	"time"
)

type saveJob struct {
	vault *VaultService

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSaveJob creates a saveJob that flushes unsaved vault changes to the
// server on a ticker. The job is idle until Start is called.
func NewSaveJob(vault *VaultService) VaultSaveJob {
	return &saveJob{vault: vault}
}

// Start implements VaultSaveJob. It stops any previously running job, then
// launches a background goroutine that uploads the vault every interval while
// it is dirty and initialized. If interval is zero or negative it defaults to
// 5 minutes. The goroutine exits when ctx is cancelled or Stop is called.
func (j *saveJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				if !j.vault.Dirty() || !j.vault.State().Current().IsInitialized() {
					continue
				}
				_ = j.vault.SaveToServer(jobCtx)
			}
		}
	}()
}

// Stop implements VaultSaveJob. It cancels the background goroutine's context
// and blocks until the goroutine has fully exited. Safe to call when the job
// is not running (no-op in that case).
func (j *saveJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
