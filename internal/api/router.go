package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/shunnagahara/van-toilet-smash/internal/api/handlers"
	"github.com/shunnagahara/van-toilet-smash/internal/api/middleware"
	"github.com/shunnagahara/van-toilet-smash/internal/config"
	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/internal/repository"
	"github.com/shunnagahara/van-toilet-smash/internal/service"
	"github.com/shunnagahara/van-toilet-smash/internal/websocket"
	"github.com/shunnagahara/van-toilet-smash/pkg/database"
	"github.com/shunnagahara/van-toilet-smash/pkg/distributed"
	"github.com/shunnagahara/van-toilet-smash/pkg/logger"
	"github.com/shunnagahara/van-toilet-smash/pkg/ratelimit"
)

// matchAnnouncerAdapter MatchCoordinator를 service.MatchAnnouncer로 연결
type matchAnnouncerAdapter struct {
	coordinator *distributed.MatchCoordinator
}

func (a *matchAnnouncerAdapter) AnnounceMatch(ctx context.Context, match *models.Match) error {
	payload, err := json.Marshal(match)
	if err != nil {
		return err
	}
	return a.coordinator.PublishMatchCreated(ctx, payload)
}

// App 라우터와 백그라운드 서비스 묶음
type App struct {
	Router *gin.Engine

	matchmaker  *service.MatchmakerService
	cleanup     *service.CleanupService
	coordinator *distributed.MatchCoordinator
}

// SetupApp API 라우터 및 백그라운드 서비스 설정
func SetupApp(cfg *config.Config, db *database.DB, redisClient *redis.Client) *App {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Repository 초기화
	locationRepo := repository.NewLocationRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	matchmakingRepo := repository.NewMatchmakingRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	// Service 초기화
	catalog := service.NewCatalogService(locationRepo, logger.L())
	catalog.Load()

	battle := service.NewBattleService()
	notifier := service.NewMatchNotifier(logger.L())

	matchmaker := service.NewMatchmakerService(
		waitlistRepo,
		matchmakingRepo,
		matchRepo,
		catalog,
		battle,
		notifier,
		logger.L(),
		cfg.PairingInterval,
		cfg.PollInterval,
	)

	// WebSocket Hub 초기화 및 시작
	wsHub := websocket.NewHub(logger.L())
	go wsHub.Run()
	matchmaker.SetPusher(wsHub)

	// Redis가 설정된 경우에만 다중 인스턴스 조율 활성화
	var coordinator *distributed.MatchCoordinator
	if redisClient != nil {
		coordinator = distributed.NewMatchCoordinator(redisClient, logger.L())
		if err := coordinator.Start(context.Background(), func(payload json.RawMessage) {
			var match models.Match
			if err := json.Unmarshal(payload, &match); err != nil {
				logger.Error("Failed to decode remote match event", "error", err)
				return
			}
			matchmaker.HandleRemoteMatch(&match)
		}); err != nil {
			logger.Error("Failed to start match coordinator, running single-instance", "error", err)
			coordinator = nil
		} else {
			matchmaker.SetAnnouncer(&matchAnnouncerAdapter{coordinator: coordinator})
			matchmaker.SetSweepLocker(coordinator)
			logger.Info("Match coordinator started", "instanceId", coordinator.InstanceID())
		}
	}

	matchmaker.Start()
	logger.Info("Matchmaker started", "interval", cfg.PairingInterval.String())

	// 만료된 대기 엔트리 정리
	cleanup := service.NewCleanupService(waitlistRepo, cfg.WaitlistTTL, cfg.WaitlistTTL/2, logger.L())
	if err := cleanup.Start(); err != nil {
		logger.Error("Failed to start cleanup service", "error", err)
	}

	// Handler 초기화
	sessionHandler := handlers.NewSessionHandler(cfg)
	locationHandler := handlers.NewLocationHandler(catalog)
	waitlistHandler := handlers.NewWaitlistHandler(matchmaker)
	matchHandler := handlers.NewMatchHandler(matchmaker)
	wsHandler := handlers.NewWebSocketHandler(wsHub)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// 세션 발급 제한: Redis가 있으면 인스턴스 전체에 걸친 분산 한도 적용
	sessionLimit := middleware.SessionRateLimit()
	if redisClient != nil {
		redisLimiter := ratelimit.NewRedisRateLimiter(redisClient, "")
		sessionLimit = middleware.RedisRateLimit(redisLimiter, 10, time.Minute, middleware.IPKeyFunc)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		// 게스트 세션
		v1.POST("/session", sessionLimit, sessionHandler.Create)

		// Location routes
		locations := v1.Group("/locations")
		{
			locations.GET("", locationHandler.ListLocations)
			locations.GET("/:id", locationHandler.GetLocation)
		}

		// Waitlist routes
		waitlist := v1.Group("/waitlist")
		waitlist.Use(middleware.Auth(cfg))
		{
			waitlist.POST("", middleware.JoinRateLimit(), waitlistHandler.Join)
			waitlist.DELETE("", waitlistHandler.Cancel)
		}

		// Match routes
		matches := v1.Group("/matches")
		matches.Use(middleware.Auth(cfg))
		{
			matches.GET("/my", matchHandler.PollMyMatch)
			matches.GET("/:id", matchHandler.GetMatch)
		}

		// WebSocket route
		v1.GET("/ws", middleware.Auth(cfg), wsHandler.HandleWebSocket)
	}

	return &App{
		Router:      router,
		matchmaker:  matchmaker,
		cleanup:     cleanup,
		coordinator: coordinator,
	}
}

// Shutdown 백그라운드 서비스 정지
func (a *App) Shutdown() {
	a.matchmaker.Stop()
	a.cleanup.Stop()
	if a.coordinator != nil {
		a.coordinator.Stop()
	}
}
