package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eversafe/go-vault-sync/models"
)

func newReadyService(t *testing.T, stub *stubAdapter) *VaultService {
	t.Helper()

	stub.getVaultFn = func() (models.VaultGetResponse, error) {
		return models.VaultGetResponse{
			Status: models.VaultStatusOk,
			Vault:  &models.Vault{Username: "alice", Blob: ""},
		}, nil
	}
	stub.saveVaultFn = acceptSaves()

	svc := newTestService(t, stub)
	require.NoError(t, svc.InitializeVault(context.Background()))
	return svc
}

func (s *stubAdapter) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCalls
}

func TestSaveJob_FlushesDirtyVault(t *testing.T) {
	stub := &stubAdapter{}
	svc := newReadyService(t, stub)
	baseline := stub.saveCount()

	svc.MarkDirty()

	job := NewSaveJob(svc)
	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	require.Eventually(t, func() bool {
		return stub.saveCount() > baseline
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, svc.Dirty())
}

func TestSaveJob_SkipsCleanVault(t *testing.T) {
	stub := &stubAdapter{}
	svc := newReadyService(t, stub)
	baseline := stub.saveCount()

	job := NewSaveJob(svc)
	job.Start(context.Background(), 5*time.Millisecond)
	defer job.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, baseline, stub.saveCount())
}

func TestSaveJob_SkipsUninitializedVault(t *testing.T) {
	stub := &stubAdapter{}
	svc := newTestService(t, stub)
	svc.MarkDirty()

	job := NewSaveJob(svc)
	job.Start(context.Background(), 5*time.Millisecond)
	defer job.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, stub.saveCount())
}

func TestSaveJob_StopWithoutStart(t *testing.T) {
	job := NewSaveJob(nil)
	job.Stop()
	job.Stop()
}

func TestSaveJob_RestartReplacesRunningJob(t *testing.T) {
	stub := &stubAdapter{}
	svc := newReadyService(t, stub)

	job := NewSaveJob(svc)
	job.Start(context.Background(), time.Hour)
	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	baseline := stub.saveCount()
	svc.MarkDirty()
	require.Eventually(t, func() bool {
		return stub.saveCount() > baseline
	}, 2*time.Second, 5*time.Millisecond)
}
