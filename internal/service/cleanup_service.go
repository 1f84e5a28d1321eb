package service

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// CleanupService 방치된 대기 엔트리를 주기적으로 정리.
// 만료된 세션이 대기열에 무한히 쌓이는 것을 막는다.
type CleanupService struct {
	waitlist  WaitlistStore
	ttl       time.Duration
	interval  time.Duration
	logger    *zap.Logger
	scheduler gocron.Scheduler
}

func NewCleanupService(waitlist WaitlistStore, ttl, interval time.Duration, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		waitlist: waitlist,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Start 정리 스케줄 시작
func (s *CleanupService) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweep),
	); err != nil {
		return err
	}

	scheduler.Start()
	s.scheduler = scheduler

	s.logger.Info("CleanupService started",
		zap.Duration("ttl", s.ttl),
		zap.Duration("interval", s.interval))
	return nil
}

// Stop 정리 스케줄 중지
func (s *CleanupService) Stop() {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error("Failed to shut down cleanup scheduler", zap.Error(err))
	}
}

// sweep 만료 엔트리 삭제 실행
func (s *CleanupService) sweep() {
	removed, err := s.waitlist.DeleteExpired(s.ttl)
	if err != nil {
		s.logger.Error("Failed to delete expired waitlist entries", zap.Error(err))
		return
	}

	if removed > 0 {
		s.logger.Info("Expired waitlist entries removed", zap.Int64("count", removed))
	}
}
