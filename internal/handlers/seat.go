package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mental-gin-backend/internal/services"
)

type SeatHandler struct {
	gameEngine *services.GameEngine
}

func NewSeatHandler(gameEngine *services.GameEngine) *SeatHandler {
	return &SeatHandler{gameEngine: gameEngine}
}

// GetCurrentSeat tells a token holder which game and seat it is bound to.
func (h *SeatHandler) GetCurrentSeat(c *gin.Context) {
	gameID, seat, ok := seatOf(c)
	if !ok {
		return
	}

	info, err := h.gameEngine.SeatInfo(gameID, seat)
	if errors.Is(err, services.ErrGameNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load seat"})
		return
	}

	c.JSON(http.StatusOK, info)
}
