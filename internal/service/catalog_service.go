package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
)

// LocationSource 로케이션 기본 데이터 소스
type LocationSource interface {
	FindAll() ([]models.Location, error)
}

// CatalogService 로케이션 카탈로그 (읽기 전용, fetch-with-fallback)
type CatalogService struct {
	source LocationSource
	logger *zap.Logger

	mu            sync.RWMutex
	byID          map[int64]models.Location
	ordered       []models.Location
	usingFallback bool
}

// NewCatalogService 카탈로그 서비스 생성
func NewCatalogService(source LocationSource, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		source: source,
		logger: logger,
		byID:   make(map[int64]models.Location),
	}
}

// Load 기본 소스에서 로케이션 로드. 실패하거나 비어 있으면 내장 폴백으로 대체해
// 오프라인/장애 상태에서도 게임이 동작하도록 유지한다.
func (s *CatalogService) Load() {
	locations, err := s.source.FindAll()
	usingFallback := false

	if err != nil || len(locations) == 0 {
		s.logger.Warn("Falling back to embedded locations",
			zap.Int("primaryCount", len(locations)),
			zap.Error(err))
		locations = FallbackLocations()
		usingFallback = true
	}

	byID := make(map[int64]models.Location, len(locations))
	for _, loc := range locations {
		byID[loc.ID] = loc
	}

	s.mu.Lock()
	s.byID = byID
	s.ordered = locations
	s.usingFallback = usingFallback
	s.mu.Unlock()

	s.logger.Info("Location catalog loaded",
		zap.Int("count", len(locations)),
		zap.Bool("fallback", usingFallback))
}

// GetLocation ID로 로케이션 조회
func (s *CatalogService) GetLocation(id int64) (*models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.byID[id]
	if !ok {
		return nil, ErrLocationNotFound
	}
	return &loc, nil
}

// ListLocations 전체 로케이션 반환
func (s *CatalogService) ListLocations() []models.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Location, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// UsingFallback 현재 폴백 데이터로 동작 중인지 확인
func (s *CatalogService) UsingFallback() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usingFallback
}
