package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shunnagahara/van-toilet-smash/internal/config"
	jwtutil "github.com/shunnagahara/van-toilet-smash/pkg/jwt"
	"github.com/shunnagahara/van-toilet-smash/pkg/logger"
)

type SessionHandler struct {
	jwtManager *jwtutil.JWTManager
}

func NewSessionHandler(cfg *config.Config) *SessionHandler {
	return &SessionHandler{
		jwtManager: jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration),
	}
}

type SessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Create 게스트 세션 발급
func (h *SessionHandler) Create(c *gin.Context) {
	userID := uuid.NewString()

	token, err := h.jwtManager.Generate(userID)
	if err != nil {
		logger.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create session",
		})
		return
	}

	logger.Info("Guest session created", "userId", userID)

	c.JSON(http.StatusCreated, SessionResponse{
		Token:  token,
		UserID: userID,
	})
}
