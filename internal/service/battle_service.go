package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
)

// 배틀 파워 가중치 (전 로케이션 공통 고정값)
const (
	weightAttack      = 2.0
	weightDefense     = 1.5
	weightCleanliness = 1.2
	weightLocation    = 1.0
	weightCrowding    = 0.8
	weightToiletCount = 0.7
	weightUniqueness  = 1.3
)

// randomFactor player1 측에만 적용되는 변동 폭 (±20%)
const randomFactor = 0.2

// BattleService 배틀 승패 계산 서비스 (순수 계산, I/O 없음)
type BattleService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBattleService 배틀 서비스 생성
func NewBattleService() *BattleService {
	return NewBattleServiceWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewBattleServiceWithSource 시드 고정이 필요한 테스트용 생성자
func NewBattleServiceWithSource(src rand.Source) *BattleService {
	return &BattleService{rng: rand.New(src)}
}

// Power 가중 합산 전투력 계산
func (s *BattleService) Power(loc *models.Location) float64 {
	return loc.AttackPower*weightAttack +
		loc.DefensePower*weightDefense +
		loc.CleanlinessLevel*weightCleanliness +
		loc.LocationLevel*weightLocation +
		loc.CrowdingLevel*weightCrowding +
		loc.ToiletCountLevel*weightToiletCount +
		loc.UniquenessLevel*weightUniqueness
}

// Resolve 두 로케이션의 승패 계산.
// 랜덤 변동은 player1 쪽에만 곱해지며, 비교는 strict greater라 동점은 player2 승.
func (s *BattleService) Resolve(player1Loc, player2Loc *models.Location) (models.BattleResult, models.BattleResult) {
	power1 := s.Power(player1Loc)
	power2 := s.Power(player2Loc)

	// rand.Rand는 동시 사용이 안전하지 않음
	s.mu.Lock()
	modifier := 1 + (s.rng.Float64()*2-1)*randomFactor
	s.mu.Unlock()

	if power1*modifier > power2 {
		return models.ResultWin, models.ResultLose
	}
	return models.ResultLose, models.ResultWin
}
