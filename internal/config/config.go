package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis (선택: 비어 있으면 단일 인스턴스 모드)
	RedisURL string

	// JWT (게스트 세션 토큰)
	JWTSecret     string
	JWTExpiration time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Matchmaking
	PairingInterval time.Duration // 백그라운드 페어링 주기
	PollInterval    time.Duration // 매치 폴링 주기
	WaitlistTTL     time.Duration // 대기 엔트리 만료 시간
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", "toilet-smash-dev-secret"),
		JWTExpiration:   parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),
		PairingInterval: parseDuration(getEnv("PAIRING_INTERVAL", "3s"), 3*time.Second),
		PollInterval:    parseDuration(getEnv("POLL_INTERVAL", "1s"), time.Second),
		WaitlistTTL:     parseDuration(getEnv("WAITLIST_TTL", "10m"), 10*time.Minute),
		CORSAllowedOrigins: splitAndTrim(getEnv(
			"CORS_ALLOWED_ORIGINS",
			"http://localhost:3000,http://localhost:5173",
		)),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
