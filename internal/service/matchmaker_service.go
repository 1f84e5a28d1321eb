package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/internal/repository"
)

// sweepBatchSize 한 번의 백그라운드 스윕에서 살펴볼 최대 대기 엔트리 수
const sweepBatchSize = 64

// WaitlistStore 대기열 저장소
type WaitlistStore interface {
	Insert(userID string, locationID int64) (*models.WaitlistEntry, error)
	Delete(userID string) (bool, error)
	FindByUserID(userID string) (*models.WaitlistEntry, error)
	FindOldest(limit int) ([]models.WaitlistEntry, error)
	DeleteExpired(olderThan time.Duration) (int64, error)
}

// PairingStore 원자적 페어링 트랜잭션 실행자
type PairingStore interface {
	Pair(ctx context.Context, userID string, resolve repository.ResolveFunc) (*models.Match, error)
}

// MatchStore 매치 저장소 (읽기 전용)
type MatchStore interface {
	FindByID(id string) (*models.Match, error)
	FindLatestByUserID(userID string) (*models.Match, error)
}

// MatchPusher 매치 성립 즉시 푸시 경로 (WebSocket 허브)
type MatchPusher interface {
	SendMatchFound(match *models.Match)
}

// MatchAnnouncer 다른 인스턴스로의 매치 이벤트 전파 (Redis Pub/Sub)
type MatchAnnouncer interface {
	AnnounceMatch(ctx context.Context, match *models.Match) error
}

// SweepLocker 다중 인스턴스에서 백그라운드 스윕의 동시 실행 방지
type SweepLocker interface {
	TrySweepLock(ctx context.Context, ttl time.Duration) (release func(), acquired bool, err error)
}

// MatchmakerService 대기열 참가/취소/페어링을 관장하는 상태 머신.
// 페어링 자체는 PairingStore의 단일 트랜잭션이 담당하며,
// 이 서비스는 트리거(참가 직후, 폴링, 백그라운드 스윕)를 하나의 멱등한
// TryPair 연산으로 모은다.
type MatchmakerService struct {
	waitlist  WaitlistStore
	pairing   PairingStore
	matches   MatchStore
	catalog   *CatalogService
	battle    *BattleService
	notifier  *MatchNotifier
	pusher    MatchPusher    // nil 가능
	announcer MatchAnnouncer // nil 가능 (단일 인스턴스 모드)
	locker    SweepLocker    // nil 가능 (단일 인스턴스 모드)

	logger       *zap.Logger
	interval     time.Duration
	pollInterval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewMatchmakerService(
	waitlist WaitlistStore,
	pairing PairingStore,
	matches MatchStore,
	catalog *CatalogService,
	battle *BattleService,
	notifier *MatchNotifier,
	logger *zap.Logger,
	interval time.Duration,
	pollInterval time.Duration,
) *MatchmakerService {
	return &MatchmakerService{
		waitlist:     waitlist,
		pairing:      pairing,
		matches:      matches,
		catalog:      catalog,
		battle:       battle,
		notifier:     notifier,
		logger:       logger,
		interval:     interval,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

// SetPusher WebSocket 푸시 경로 연결
func (s *MatchmakerService) SetPusher(p MatchPusher) {
	s.pusher = p
}

// SetAnnouncer 인스턴스 간 전파 경로 연결
func (s *MatchmakerService) SetAnnouncer(a MatchAnnouncer) {
	s.announcer = a
}

// SetSweepLocker 스윕 분산 락 연결
func (s *MatchmakerService) SetSweepLocker(l SweepLocker) {
	s.locker = l
}

// Join 대기열 참가. 참가 직후 즉시 페어링을 1회 시도한다.
func (s *MatchmakerService) Join(ctx context.Context, userID string, locationID int64) (*models.WaitlistEntry, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.catalog.GetLocation(locationID); err != nil {
		return nil, ErrLocationNotFound
	}

	entry, err := s.waitlist.Insert(userID, locationID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicateEntry
		}
		return nil, fmt.Errorf("failed to join waitlist: %w", err)
	}

	s.logger.Info("User joined waitlist",
		zap.String("userId", userID),
		zap.Int64("locationId", locationID))

	// 참가 직후 1회 페어링 시도. 실패해도 참가 자체는 유효하며
	// 다음 폴링이나 백그라운드 스윕이 다시 시도한다.
	if _, err := s.TryPair(ctx, userID); err != nil {
		s.logger.Warn("Pairing attempt on join failed",
			zap.String("userId", userID),
			zap.Error(err))
	}

	return entry, nil
}

// Cancel 대기열 탈퇴 (멱등: 엔트리가 없어도 성공)
func (s *MatchmakerService) Cancel(ctx context.Context, userID string) error {
	removed, err := s.waitlist.Delete(userID)
	if err != nil {
		return fmt.Errorf("failed to cancel waitlist: %w", err)
	}

	if removed {
		s.logger.Info("User left waitlist", zap.String("userId", userID))
	}
	return nil
}

// Poll 유저의 매치 조회. 기존 매치가 있으면 반환하고, 없고 대기 중이면
// 페어링을 1회 시도한다. 매치가 없는 상태는 에러가 아니다.
func (s *MatchmakerService) Poll(ctx context.Context, userID string) (*models.Match, error) {
	match, err := s.matches.FindLatestByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to poll match: %w", err)
	}
	if match != nil {
		return match, nil
	}

	return s.TryPair(ctx, userID)
}

// GetMatch ID로 매치 조회
func (s *MatchmakerService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matches.FindByID(matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// TryPair 멱등한 페어링 시도. 어느 트리거에서 호출돼도 안전하다:
// 경합에서 지거나 본인 엔트리가 이미 소비됐으면 "매치 없음"으로 흡수된다.
func (s *MatchmakerService) TryPair(ctx context.Context, userID string) (*models.Match, error) {
	match, err := s.pairing.Pair(ctx, userID, s.resolveByLocationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotWaiting) || errors.Is(err, repository.ErrPairingConflict) {
			s.logger.Debug("Pairing race absorbed",
				zap.String("userId", userID),
				zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pair: %w", err)
	}

	if match == nil {
		// 상대 없음: 계속 대기
		return nil, nil
	}

	s.logger.Info("Match created",
		zap.String("matchId", match.ID),
		zap.String("player1", match.Player1ID),
		zap.String("player2", match.Player2ID),
		zap.String("player1Result", string(match.Player1Result)))

	s.publishMatch(ctx, match)
	return match, nil
}

// AwaitMatch 유저의 다음 매치 1건을 기다린다. 푸시 구독과 폴링 티커가
// 동시에 돌고, 먼저 도착한 쪽이 승리한다. ctx 취소 시 둘 다 해제된다.
func (s *MatchmakerService) AwaitMatch(ctx context.Context, userID string) (*models.Match, error) {
	ch, unsubscribe := s.notifier.Subscribe(userID)
	defer unsubscribe()

	// 구독 이전에 이미 성립한 매치를 놓치지 않도록 즉시 1회 확인
	if match, err := s.Poll(ctx, userID); err == nil && match != nil {
		return match, nil
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case match, ok := <-ch:
			if ok && match != nil {
				return match, nil
			}
			// 구독이 외부에서 해제됨: 폴링 경로만으로 계속
			ch = nil

		case <-ticker.C:
			match, err := s.Poll(ctx, userID)
			if err != nil {
				// 일시적 저장소 오류는 다음 틱에 재시도
				s.logger.Warn("Poll tick failed",
					zap.String("userId", userID),
					zap.Error(err))
				continue
			}
			if match != nil {
				return match, nil
			}
		}
	}
}

// HandleRemoteMatch 다른 인스턴스에서 성립한 매치를 로컬 구독자에게 전달
func (s *MatchmakerService) HandleRemoteMatch(match *models.Match) {
	if match == nil {
		return
	}
	s.notifier.Publish(match)
	if s.pusher != nil {
		s.pusher.SendMatchFound(match)
	}
}

// Start 백그라운드 페어링 스윕 시작
func (s *MatchmakerService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting MatchmakerService", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.pairingLoop()
}

// Stop 백그라운드 페어링 스윕 중지
func (s *MatchmakerService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping MatchmakerService")
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("MatchmakerService stopped")
}

// pairingLoop 주기적 페어링 스윕 실행
func (s *MatchmakerService) pairingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// 시작 시 한번 실행
	s.runSweep()

	for {
		select {
		case <-ticker.C:
			s.runSweep()
		case <-s.stopChan:
			return
		}
	}
}

// runSweep 대기 중인 유저들을 오래 기다린 순으로 페어링.
// 참가/폴링 트리거를 놓친 유저(예: 둘 다 조용히 대기 중)를 위한 안전망이다.
func (s *MatchmakerService) runSweep() {
	ctx := context.Background()

	if s.locker != nil {
		release, acquired, err := s.locker.TrySweepLock(ctx, s.interval*2)
		if err != nil {
			s.logger.Error("Failed to acquire sweep lock", zap.Error(err))
			return
		}
		if !acquired {
			// 다른 인스턴스가 스윕 중
			return
		}
		defer release()
	}

	entries, err := s.waitlist.FindOldest(sweepBatchSize)
	if err != nil {
		s.logger.Error("Failed to list waiting entries", zap.Error(err))
		return
	}

	if len(entries) < 2 {
		return
	}

	matched := 0
	processed := make(map[string]bool)

	for _, entry := range entries {
		if processed[entry.UserID] {
			continue
		}

		match, err := s.TryPair(ctx, entry.UserID)
		if err != nil {
			s.logger.Error("Sweep pairing failed",
				zap.String("userId", entry.UserID),
				zap.Error(err))
			continue
		}
		if match == nil {
			continue
		}

		processed[match.Player1ID] = true
		processed[match.Player2ID] = true
		matched++
	}

	if matched > 0 {
		s.logger.Info("Pairing sweep completed",
			zap.Int("waiting", len(entries)),
			zap.Int("matchesCreated", matched))
	}
}

// resolveByLocationID 페어링 트랜잭션 내부에서 호출되는 배틀 해석 콜백.
// 카탈로그는 메모리 조회라 트랜잭션을 붙잡지 않는다.
func (s *MatchmakerService) resolveByLocationID(player1LocationID, player2LocationID int64) (models.BattleResult, models.BattleResult, error) {
	loc1, err := s.catalog.GetLocation(player1LocationID)
	if err != nil {
		return "", "", fmt.Errorf("player1 location %d: %w", player1LocationID, err)
	}

	loc2, err := s.catalog.GetLocation(player2LocationID)
	if err != nil {
		return "", "", fmt.Errorf("player2 location %d: %w", player2LocationID, err)
	}

	result1, result2 := s.battle.Resolve(loc1, loc2)
	return result1, result2, nil
}

// publishMatch 성립한 매치를 모든 전달 경로로 내보낸다:
// 로컬 구독자, WebSocket 허브, 그리고 다른 인스턴스(설정된 경우).
func (s *MatchmakerService) publishMatch(ctx context.Context, match *models.Match) {
	s.notifier.Publish(match)

	if s.pusher != nil {
		s.pusher.SendMatchFound(match)
	}

	if s.announcer != nil {
		if err := s.announcer.AnnounceMatch(ctx, match); err != nil {
			s.logger.Error("Failed to announce match",
				zap.String("matchId", match.ID),
				zap.Error(err))
		}
	}
}
