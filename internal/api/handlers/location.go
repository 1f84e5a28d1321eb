package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shunnagahara/van-toilet-smash/internal/service"
)

type LocationHandler struct {
	catalog *service.CatalogService
}

func NewLocationHandler(catalog *service.CatalogService) *LocationHandler {
	return &LocationHandler{
		catalog: catalog,
	}
}

// ListLocations 전체 로케이션 목록 조회
func (h *LocationHandler) ListLocations(c *gin.Context) {
	locations := h.catalog.ListLocations()

	c.JSON(http.StatusOK, gin.H{
		"locations": locations,
		"total":     len(locations),
		"fallback":  h.catalog.UsingFallback(),
	})
}

// GetLocation 특정 로케이션 조회
func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid location ID",
		})
		return
	}

	location, err := h.catalog.GetLocation(id)
	if err != nil {
		if errors.Is(err, service.ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Location not found",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get location",
		})
		return
	}

	c.JSON(http.StatusOK, location)
}
