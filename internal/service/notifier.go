package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
)

// matchSub 유저별 1회성 구독
type matchSub struct {
	userID string
	ch     chan *models.Match
}

// MatchNotifier 매치 생성 이벤트의 유저별 전달 싱크.
// 푸시(허브/코디네이터)와 폴링 어댑터가 모두 여기로 합류하며,
// 구독은 매치 1건을 전달받는 즉시 제거되므로 중복 전달이 구조적으로 불가능하다.
type MatchNotifier struct {
	mu     sync.Mutex
	subs   map[uint64]*matchSub
	nextID uint64
	logger *zap.Logger
}

// NewMatchNotifier 노티파이어 생성
func NewMatchNotifier(logger *zap.Logger) *MatchNotifier {
	return &MatchNotifier{
		subs:   make(map[uint64]*matchSub),
		logger: logger,
	}
}

// Subscribe 유저의 다음 매치 1건 구독.
// 반환 채널은 버퍼 1이며 매치 전달 후 닫힌다. 두 번째 반환값은 해제 함수 (멱등).
func (n *MatchNotifier) Subscribe(userID string) (<-chan *models.Match, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	sub := &matchSub{
		userID: userID,
		ch:     make(chan *models.Match, 1),
	}
	n.subs[id] = sub

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if existing, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(existing.ch)
		}
	}

	return sub.ch, unsubscribe
}

// Publish 매치를 양쪽 플레이어의 구독자에게 전달.
// 전달된 구독은 즉시 제거되므로 같은 매치가 두 경로(푸시/폴링)로 들어와도
// 두 번째 호출은 no-op이 된다.
func (n *MatchNotifier) Publish(match *models.Match) {
	if match == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	delivered := 0
	for id, sub := range n.subs {
		if !match.Involves(sub.userID) {
			continue
		}
		sub.ch <- match
		close(sub.ch)
		delete(n.subs, id)
		delivered++
	}

	if delivered > 0 {
		n.logger.Debug("Match delivered to subscribers",
			zap.String("matchId", match.ID),
			zap.Int("subscribers", delivered))
	}
}

// SubscriberCount 현재 구독 수 (테스트/관측용)
func (n *MatchNotifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
