package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 이벤트 타입
const (
	EventMatchCreated = "match_created"
)

// MatchEvent 인스턴스 간 매치 이벤트
type MatchEvent struct {
	Type      string          `json:"type"`
	Origin    string          `json:"origin"` // 발행 인스턴스 ID
	Match     json.RawMessage `json:"match,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// MatchCoordinator Redis Pub/Sub 기반 매치 이벤트 조정자.
// 한 인스턴스에서 성립한 매치를 다른 인스턴스의 구독자/WebSocket 클라이언트에게
// 전달하고, 백그라운드 스윕의 중복 실행을 분산 락으로 막는다.
type MatchCoordinator struct {
	client      *redis.Client
	lockManager *RedisLockManager
	logger      *zap.Logger
	instanceID  string

	eventChannel string
	sweepLockKey string
	stopChan     chan struct{}
	cancelSub    context.CancelFunc
}

// NewMatchCoordinator 조정자 생성
func NewMatchCoordinator(client *redis.Client, logger *zap.Logger) *MatchCoordinator {
	return &MatchCoordinator{
		client:       client,
		lockManager:  NewRedisLockManager(client),
		logger:       logger,
		instanceID:   uuid.New().String(),
		eventChannel: "toilet-smash:match-events",
		sweepLockKey: "toilet-smash:pairing:sweep-lock",
		stopChan:     make(chan struct{}),
	}
}

// InstanceID 인스턴스 고유 ID 반환
func (c *MatchCoordinator) InstanceID() string {
	return c.instanceID
}

// Start 이벤트 수신 시작. 구독 확인까지만 동기로 수행하고 수신 루프는
// 고루틴으로 돌린다. 자기 자신이 발행한 이벤트는 건너뛴다.
func (c *MatchCoordinator) Start(ctx context.Context, onMatchCreated func(match json.RawMessage)) error {
	subCtx, cancel := context.WithCancel(ctx)
	c.cancelSub = cancel

	pubsub := c.client.Subscribe(subCtx, c.eventChannel)

	// 구독 확인
	if _, err := pubsub.Receive(subCtx); err != nil {
		pubsub.Close()
		cancel()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logger.Info("Match coordinator listening",
		zap.String("instanceId", c.instanceID),
		zap.String("channel", c.eventChannel))

	go c.listen(subCtx, pubsub, onMatchCreated)
	return nil
}

// listen Pub/Sub 수신 루프
func (c *MatchCoordinator) listen(ctx context.Context, pubsub *redis.PubSub, onMatchCreated func(match json.RawMessage)) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event MatchEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.logger.Error("Failed to unmarshal match event", zap.Error(err))
				continue
			}

			// 로컬에서 이미 전달한 이벤트
			if event.Origin == c.instanceID {
				continue
			}

			if event.Type == EventMatchCreated && onMatchCreated != nil {
				c.logger.Debug("Received remote match event",
					zap.String("origin", event.Origin))
				onMatchCreated(event.Match)
			}

		case <-c.stopChan:
			c.logger.Info("Match coordinator stopped")
			return

		case <-ctx.Done():
			return
		}
	}
}

// Stop 이벤트 수신 중지
func (c *MatchCoordinator) Stop() {
	close(c.stopChan)
	if c.cancelSub != nil {
		c.cancelSub()
	}
}

// PublishMatchCreated 매치 성립 이벤트 발행
func (c *MatchCoordinator) PublishMatchCreated(ctx context.Context, match json.RawMessage) error {
	event := MatchEvent{
		Type:      EventMatchCreated,
		Origin:    c.instanceID,
		Match:     match,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal match event: %w", err)
	}

	if err := c.client.Publish(ctx, c.eventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish match event: %w", err)
	}

	return nil
}

// TrySweepLock 백그라운드 스윕용 분산 락 획득 시도.
// 다른 인스턴스가 이미 스윕 중이면 (nil, false, nil).
func (c *MatchCoordinator) TrySweepLock(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	lock, err := c.lockManager.AcquireLock(ctx, c.sweepLockKey, c.instanceID, ttl)
	if err == ErrLockNotAcquired {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	release := func() {
		if err := lock.Release(context.Background()); err != nil {
			c.logger.Error("Failed to release sweep lock", zap.Error(err))
		}
	}
	return release, true, nil
}
