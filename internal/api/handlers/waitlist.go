package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shunnagahara/van-toilet-smash/internal/service"
)

type WaitlistHandler struct {
	matchmaker *service.MatchmakerService
}

func NewWaitlistHandler(matchmaker *service.MatchmakerService) *WaitlistHandler {
	return &WaitlistHandler{
		matchmaker: matchmaker,
	}
}

type JoinRequest struct {
	LocationID int64 `json:"locationId" binding:"required"`
}

// Join 매칭 대기열 등록
func (h *WaitlistHandler) Join(c *gin.Context) {
	userID := c.GetString("userID")

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	entry, err := h.matchmaker.Join(c.Request.Context(), userID, req.LocationID)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Already waiting for a match",
			})
			return
		}
		if errors.Is(err, service.ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Location not found",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to join waitlist",
		})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Cancel 매칭 대기 취소
func (h *WaitlistHandler) Cancel(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.matchmaker.Cancel(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel waiting",
		})
		return
	}

	c.Status(http.StatusNoContent)
}
