package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shunnagahara/van-toilet-smash/internal/config"
	jwtutil "github.com/shunnagahara/van-toilet-smash/pkg/jwt"
)

// Auth 게스트 세션 토큰 검증 미들웨어.
// Authorization 헤더 또는 쿼리 파라미터(WebSocket 용)에서 토큰을 읽는다.
func Auth(cfg *config.Config) gin.HandlerFunc {
	jwtManager := jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Session token required",
			})
			c.Abort()
			return
		}

		// 토큰 검증
		claims, err := jwtManager.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session token",
			})
			c.Abort()
			return
		}

		// 검증 성공 - userID를 context에 저장
		c.Set("userID", claims.UserID)

		c.Next()
	}
}

// extractToken "Bearer <token>" 헤더 우선, 없으면 token 쿼리 파라미터
// (브라우저 WebSocket API는 커스텀 헤더를 지원하지 않음)
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	return c.Query("token")
}
