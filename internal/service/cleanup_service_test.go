package service

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCleanupService_RemovesExpiredEntries(t *testing.T) {
	store := newMemoryStore()

	// 만료된 엔트리를 직접 심는다
	store.mu.Lock()
	store.clock = time.Now().Add(-time.Hour)
	store.mu.Unlock()
	store.Insert("user-stale", 1)

	store.mu.Lock()
	store.clock = time.Now()
	store.mu.Unlock()
	store.Insert("user-fresh", 1)

	cleanup := NewCleanupService(store, 10*time.Minute, 20*time.Millisecond, zap.NewNop())
	if err := cleanup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer cleanup.Stop()

	deadline := time.After(2 * time.Second)
	for {
		stale, _ := store.FindByUserID("user-stale")
		if stale == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expired entry was not removed")
		case <-time.After(20 * time.Millisecond):
		}
	}

	fresh, err := store.FindByUserID("user-fresh")
	if err != nil {
		t.Fatalf("FindByUserID failed: %v", err)
	}
	if fresh == nil {
		t.Error("fresh entry was removed by the cleanup sweep")
	}
}
