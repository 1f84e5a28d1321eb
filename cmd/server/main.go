package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shunnagahara/van-toilet-smash/internal/api"
	"github.com/shunnagahara/van-toilet-smash/internal/config"
	"github.com/shunnagahara/van-toilet-smash/pkg/database"
	"github.com/shunnagahara/van-toilet-smash/pkg/logger"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting Van Toilet Smash Backend",
		"port", cfg.Port,
		"env", cfg.Env,
	)

	// 데이터베이스 연결
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Redis 연결 (선택). 실패 시 단일 인스턴스 모드로 계속 진행
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("Invalid REDIS_URL, running single-instance", "error", err)
		} else {
			redisClient = redis.NewClient(opt)
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				logger.Warn("Redis unavailable, running single-instance", "error", err)
				redisClient.Close()
				redisClient = nil
			} else {
				logger.Info("Redis connection established")
			}
			cancel()
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// 라우터 및 백그라운드 서비스 설정
	app := api.SetupApp(cfg, db, redisClient)

	// 서버 설정
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      app.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 서버 시작 (고루틴)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	app.Shutdown()

	// 10초 타임아웃으로 종료
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
