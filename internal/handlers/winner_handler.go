package handlers

import (
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WinnerHandler handles draw result requests
type WinnerHandler struct {
	winnerService services.WinnerService
}

// NewWinnerHandler creates a new WinnerHandler
func NewWinnerHandler(winnerService services.WinnerService) *WinnerHandler {
	return &WinnerHandler{winnerService: winnerService}
}

// ListWinners handles GET /winners
func (h *WinnerHandler) ListWinners(c *gin.Context) {
	winners, err := h.winnerService.ListWinners(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": winners})
}

// RecordWinner handles POST /admin/raffles/:id/winner
func (h *WinnerHandler) RecordWinner(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req models.RecordWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	winner, err := h.winnerService.RecordWinner(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, winner)
}

// ClaimWinner handles POST /admin/winners/:id/claim
func (h *WinnerHandler) ClaimWinner(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	winner, err := h.winnerService.ClaimWinner(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}
