package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/internal/repository"
)

// memoryStore 대기열/페어링/매치 저장소의 인메모리 구현.
// Pair는 실제 구현과 동일하게 하나의 임계 구역 안에서
// 상대 선택, 양쪽 엔트리 삭제, 매치 삽입을 모두 수행한다.
type memoryStore struct {
	mu      sync.Mutex
	entries []models.WaitlistEntry
	matches []*models.Match
	nextID  int64
	clock   time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{clock: time.Now()}
}

func (s *memoryStore) Insert(userID string, locationID int64) (*models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.UserID == userID {
			return nil, repository.ErrDuplicateEntry
		}
	}

	s.nextID++
	s.clock = s.clock.Add(time.Millisecond)
	entry := models.WaitlistEntry{
		ID:         fmt.Sprintf("entry-%d", s.nextID),
		UserID:     userID,
		LocationID: locationID,
		CreatedAt:  s.clock,
	}
	s.entries = append(s.entries, entry)
	return &entry, nil
}

func (s *memoryStore) Delete(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.UserID == userID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) FindByUserID(userID string) (*models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.UserID == userID {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) FindOldest(limit int) ([]models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]models.WaitlistEntry, len(s.entries))
	copy(sorted, s.entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (s *memoryStore) DeleteExpired(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

func (s *memoryStore) Pair(ctx context.Context, userID string, resolve repository.ResolveFunc) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownIdx := -1
	for i, e := range s.entries {
		if e.UserID == userID {
			ownIdx = i
			break
		}
	}
	if ownIdx == -1 {
		return nil, repository.ErrNotWaiting
	}
	own := s.entries[ownIdx]

	oppIdx := -1
	for i, e := range s.entries {
		if e.UserID == userID {
			continue
		}
		if oppIdx == -1 || e.CreatedAt.Before(s.entries[oppIdx].CreatedAt) {
			oppIdx = i
		}
	}
	if oppIdx == -1 {
		return nil, nil
	}
	opponent := s.entries[oppIdx]

	result1, result2, err := resolve(own.LocationID, opponent.LocationID)
	if err != nil {
		return nil, err
	}

	match := &models.Match{
		ID:                fmt.Sprintf("match-%d", len(s.matches)+1),
		Player1ID:         own.UserID,
		Player2ID:         opponent.UserID,
		Player1LocationID: own.LocationID,
		Player2LocationID: opponent.LocationID,
		Player1Result:     result1,
		Player2Result:     result2,
		CreatedAt:         time.Now(),
	}
	s.matches = append(s.matches, match)

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.UserID == own.UserID || e.UserID == opponent.UserID {
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept

	return match, nil
}

func (s *memoryStore) FindByID(id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) FindLatestByUserID(userID string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Match
	for _, m := range s.matches {
		if !m.Involves(userID) {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	return latest, nil
}

func (s *memoryStore) allMatches() []*models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]*models.Match, len(s.matches))
	copy(matches, s.matches)
	return matches
}

func (s *memoryStore) waitingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// failingSource Load가 항상 실패해 내장 폴백 카탈로그를 쓰게 만든다
type failingSource struct{}

func (failingSource) FindAll() ([]models.Location, error) {
	return nil, errors.New("source unavailable")
}

func newTestMatchmaker(t *testing.T) (*MatchmakerService, *memoryStore) {
	t.Helper()

	store := newMemoryStore()
	catalog := NewCatalogService(failingSource{}, zap.NewNop())
	catalog.Load()

	battle := NewBattleServiceWithSource(rand.NewSource(1))
	notifier := NewMatchNotifier(zap.NewNop())

	matchmaker := NewMatchmakerService(
		store, store, store,
		catalog, battle, notifier,
		zap.NewNop(),
		time.Hour,            // 테스트에서는 백그라운드 스윕을 돌리지 않음
		10*time.Millisecond,  // AwaitMatch 폴링 주기
	)
	return matchmaker, store
}

func TestMatchmakerService_JoinPairsTwoUsers(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)
	ctx := context.Background()

	entry, err := matchmaker.Join(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("Join(user-1) failed: %v", err)
	}
	if entry.UserID != "user-1" || entry.LocationID != 1 {
		t.Errorf("Join returned entry %+v", entry)
	}

	// 혼자서는 매치가 생기지 않는다
	if store.waitingCount() != 1 {
		t.Fatalf("waiting count = %d after first join, want 1", store.waitingCount())
	}

	if _, err := matchmaker.Join(ctx, "user-2", 2); err != nil {
		t.Fatalf("Join(user-2) failed: %v", err)
	}

	matches := store.allMatches()
	if len(matches) != 1 {
		t.Fatalf("matches = %d after second join, want 1", len(matches))
	}
	if store.waitingCount() != 0 {
		t.Errorf("waiting count = %d after pairing, want 0", store.waitingCount())
	}

	match := matches[0]
	if !match.Involves("user-1") || !match.Involves("user-2") {
		t.Errorf("match does not involve both users: %+v", match)
	}
	if match.Player1Result == match.Player2Result {
		t.Errorf("both players got result %q", match.Player1Result)
	}
}

func TestMatchmakerService_JoinRejectsDuplicate(t *testing.T) {
	matchmaker, _ := newTestMatchmaker(t)
	ctx := context.Background()

	if _, err := matchmaker.Join(ctx, "user-1", 1); err != nil {
		t.Fatalf("first Join failed: %v", err)
	}

	_, err := matchmaker.Join(ctx, "user-1", 2)
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("second Join error = %v, want ErrDuplicateEntry", err)
	}
}

func TestMatchmakerService_JoinUnknownLocation(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)

	_, err := matchmaker.Join(context.Background(), "user-1", 999)
	if !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Join error = %v, want ErrLocationNotFound", err)
	}
	if store.waitingCount() != 0 {
		t.Errorf("waiting count = %d, want 0 (rejected join must not enqueue)", store.waitingCount())
	}
}

func TestMatchmakerService_CancelIsIdempotent(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)
	ctx := context.Background()

	if _, err := matchmaker.Join(ctx, "user-1", 1); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if err := matchmaker.Cancel(ctx, "user-1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if store.waitingCount() != 0 {
		t.Errorf("waiting count = %d after cancel, want 0", store.waitingCount())
	}

	// 이미 빠져 있어도 에러가 아니어야 한다
	if err := matchmaker.Cancel(ctx, "user-1"); err != nil {
		t.Errorf("second Cancel failed: %v", err)
	}
	if err := matchmaker.Cancel(ctx, "never-joined"); err != nil {
		t.Errorf("Cancel for unknown user failed: %v", err)
	}
}

func TestMatchmakerService_CancelledUserIsNotPaired(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)
	ctx := context.Background()

	if _, err := matchmaker.Join(ctx, "user-1", 1); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := matchmaker.Cancel(ctx, "user-1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if _, err := matchmaker.Join(ctx, "user-2", 2); err != nil {
		t.Fatalf("Join(user-2) failed: %v", err)
	}

	if len(store.allMatches()) != 0 {
		t.Errorf("cancelled user was paired: %+v", store.allMatches()[0])
	}
}

func TestMatchmakerService_PollReturnsExistingMatch(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)
	ctx := context.Background()

	matchmaker.Join(ctx, "user-1", 1)
	matchmaker.Join(ctx, "user-2", 2)

	match, err := matchmaker.Poll(ctx, "user-1")
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if match == nil {
		t.Fatal("Poll returned nil for a matched user")
	}

	// 기존 매치가 있으면 새 페어링을 시도하지 않는다
	matchmaker.Join(ctx, "user-3", 3)
	again, err := matchmaker.Poll(ctx, "user-1")
	if err != nil {
		t.Fatalf("second Poll failed: %v", err)
	}
	if again.ID != match.ID {
		t.Errorf("Poll returned a different match %q, want %q", again.ID, match.ID)
	}
	if len(store.allMatches()) != 1 {
		t.Errorf("matched user triggered a new pairing, matches = %d", len(store.allMatches()))
	}
}

func TestMatchmakerService_PollWithoutMatch(t *testing.T) {
	matchmaker, _ := newTestMatchmaker(t)

	match, err := matchmaker.Poll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if match != nil {
		t.Errorf("Poll returned %+v for an idle user, want nil", match)
	}
}

func TestMatchmakerService_GetMatch(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)
	ctx := context.Background()

	matchmaker.Join(ctx, "user-1", 1)
	matchmaker.Join(ctx, "user-2", 2)

	created := store.allMatches()[0]
	match, err := matchmaker.GetMatch(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if match.ID != created.ID {
		t.Errorf("GetMatch returned %q, want %q", match.ID, created.ID)
	}

	if _, err := matchmaker.GetMatch(ctx, "no-such-match"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("GetMatch error = %v, want ErrMatchNotFound", err)
	}
}

func TestMatchmakerService_ConcurrentJoinsPairExactlyOnce(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)
	ctx := context.Background()

	const users = 40
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			if _, err := matchmaker.Join(ctx, userID, int64(i%3+1)); err != nil {
				t.Errorf("Join(%s) failed: %v", userID, err)
			}
		}(i)
	}
	wg.Wait()

	// 참가 트리거는 경합할 수 있으므로 스윕으로 잔여 대기자를 마저 페어링
	matchmaker.runSweep()

	matches := store.allMatches()
	if len(matches) != users/2 {
		t.Fatalf("matches = %d, want %d", len(matches), users/2)
	}
	if store.waitingCount() != 0 {
		t.Errorf("waiting count = %d, want 0", store.waitingCount())
	}

	// 모든 유저가 정확히 한 매치에만 속해야 한다
	seen := make(map[string]int)
	for _, m := range matches {
		if m.Player1ID == m.Player2ID {
			t.Errorf("self-match: %+v", m)
		}
		seen[m.Player1ID]++
		seen[m.Player2ID]++
	}
	for userID, count := range seen {
		if count != 1 {
			t.Errorf("user %s appears in %d matches", userID, count)
		}
	}
	if len(seen) != users {
		t.Errorf("paired users = %d, want %d", len(seen), users)
	}
}

func TestMatchmakerService_AwaitMatchViaPush(t *testing.T) {
	matchmaker, _ := newTestMatchmaker(t)
	ctx := context.Background()

	if _, err := matchmaker.Join(ctx, "user-1", 1); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	done := make(chan *models.Match, 1)
	go func() {
		match, err := matchmaker.AwaitMatch(ctx, "user-1")
		if err != nil {
			t.Errorf("AwaitMatch failed: %v", err)
		}
		done <- match
	}()

	// 구독이 걸릴 시간을 준 다음 상대를 투입
	time.Sleep(20 * time.Millisecond)
	if _, err := matchmaker.Join(ctx, "user-2", 2); err != nil {
		t.Fatalf("Join(user-2) failed: %v", err)
	}

	select {
	case match := <-done:
		if match == nil || !match.Involves("user-1") {
			t.Errorf("AwaitMatch returned %+v", match)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitMatch did not return after the match was created")
	}
}

func TestMatchmakerService_AwaitMatchSeesEarlierMatch(t *testing.T) {
	matchmaker, _ := newTestMatchmaker(t)
	ctx := context.Background()

	// 구독 전에 이미 매치가 성립한 상태
	matchmaker.Join(ctx, "user-1", 1)
	matchmaker.Join(ctx, "user-2", 2)

	match, err := matchmaker.AwaitMatch(ctx, "user-1")
	if err != nil {
		t.Fatalf("AwaitMatch failed: %v", err)
	}
	if match == nil || !match.Involves("user-1") {
		t.Errorf("AwaitMatch returned %+v", match)
	}
}

func TestMatchmakerService_AwaitMatchCancellation(t *testing.T) {
	matchmaker, _ := newTestMatchmaker(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := matchmaker.AwaitMatch(ctx, "user-1")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("AwaitMatch error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitMatch did not return after context cancellation")
	}
}

func TestMatchmakerService_SweepPairsQuietWaiters(t *testing.T) {
	matchmaker, store := newTestMatchmaker(t)

	// Join 트리거를 우회해 저장소에 직접 투입 (둘 다 조용히 대기 중인 상황)
	store.Insert("user-1", 1)
	store.Insert("user-2", 2)

	matchmaker.runSweep()

	if len(store.allMatches()) != 1 {
		t.Fatalf("matches = %d after sweep, want 1", len(store.allMatches()))
	}
	if store.waitingCount() != 0 {
		t.Errorf("waiting count = %d after sweep, want 0", store.waitingCount())
	}
}

// recordingPusher 허브 대역. 푸시 호출을 기록한다.
type recordingPusher struct {
	mu      sync.Mutex
	matches []*models.Match
}

func (p *recordingPusher) SendMatchFound(match *models.Match) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matches = append(p.matches, match)
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.matches)
}

func TestMatchmakerService_PublishReachesPusher(t *testing.T) {
	matchmaker, _ := newTestMatchmaker(t)
	ctx := context.Background()

	pusher := &recordingPusher{}
	matchmaker.SetPusher(pusher)

	matchmaker.Join(ctx, "user-1", 1)
	matchmaker.Join(ctx, "user-2", 2)

	if pusher.count() != 1 {
		t.Errorf("pusher received %d matches, want 1", pusher.count())
	}
}

func TestMatchmakerService_HandleRemoteMatch(t *testing.T) {
	matchmaker, _ := newTestMatchmaker(t)

	pusher := &recordingPusher{}
	matchmaker.SetPusher(pusher)

	remote := &models.Match{
		ID:            "remote-1",
		Player1ID:     "user-1",
		Player2ID:     "user-2",
		Player1Result: models.ResultLose,
		Player2Result: models.ResultWin,
		CreatedAt:     time.Now(),
	}
	matchmaker.HandleRemoteMatch(remote)

	if pusher.count() != 1 {
		t.Errorf("pusher received %d matches, want 1", pusher.count())
	}
	matchmaker.HandleRemoteMatch(nil)
	if pusher.count() != 1 {
		t.Errorf("nil remote match must be ignored, pusher count = %d", pusher.count())
	}
}

func TestMatchmakerService_StartStop(t *testing.T) {
	store := newMemoryStore()
	catalog := NewCatalogService(failingSource{}, zap.NewNop())
	catalog.Load()

	matchmaker := NewMatchmakerService(
		store, store, store,
		catalog,
		NewBattleServiceWithSource(rand.NewSource(1)),
		NewMatchNotifier(zap.NewNop()),
		zap.NewNop(),
		10*time.Millisecond,
		10*time.Millisecond,
	)

	store.Insert("user-1", 1)
	store.Insert("user-2", 2)

	matchmaker.Start()
	matchmaker.Start() // 중복 시작은 no-op

	deadline := time.After(2 * time.Second)
	for len(store.allMatches()) == 0 {
		select {
		case <-deadline:
			t.Fatal("background sweep did not pair waiting users")
		case <-time.After(10 * time.Millisecond):
		}
	}

	matchmaker.Stop()
	matchmaker.Stop() // 중복 정지도 no-op
}
