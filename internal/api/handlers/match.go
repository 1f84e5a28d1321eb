package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/internal/service"
)

type MatchHandler struct {
	matchmaker *service.MatchmakerService
}

func NewMatchHandler(matchmaker *service.MatchmakerService) *MatchHandler {
	return &MatchHandler{
		matchmaker: matchmaker,
	}
}

type MatchResponse struct {
	Match  *models.Match       `json:"match"`
	Result models.BattleResult `json:"result"`
}

// PollMyMatch 내 매칭 결과 폴링
func (h *MatchHandler) PollMyMatch(c *gin.Context) {
	userID := c.GetString("userID")

	match, err := h.matchmaker.Poll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to poll match",
		})
		return
	}

	if match == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		Match:  match,
		Result: match.ResultFor(userID),
	})
}

// GetMatch 특정 매치 조회
func (h *MatchHandler) GetMatch(c *gin.Context) {
	match, err := h.matchmaker.GetMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrMatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Match not found",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get match",
		})
		return
	}

	c.JSON(http.StatusOK, match)
}
