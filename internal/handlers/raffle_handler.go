package handlers

import (
	"net/http"
	"strconv"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// RaffleHandler handles raffle-related HTTP requests
type RaffleHandler struct {
	raffleService   services.RaffleService
	purchaseService services.PurchaseService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(raffleService services.RaffleService, purchaseService services.PurchaseService) *RaffleHandler {
	return &RaffleHandler{
		raffleService:   raffleService,
		purchaseService: purchaseService,
	}
}

// ListRaffles handles GET /raffles
func (h *RaffleHandler) ListRaffles(c *gin.Context) {
	raffles, err := h.raffleService.ListRaffles(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": raffles})
}

// GetRaffle handles GET /raffles/:id
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	raffle, err := h.raffleService.GetRaffle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// GetAvailableTickets handles GET /raffles/:id/available
func (h *RaffleHandler) GetAvailableTickets(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	numbers, err := h.raffleService.GetAvailableTickets(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raffleId": id, "count": len(numbers), "numbers": numbers})
}

// QuotePurchase handles GET /raffles/:id/quote?count=n
func (h *RaffleHandler) QuotePurchase(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil {
		badRequest(c, "count must be an integer")
		return
	}
	quote, err := h.purchaseService.QuotePurchase(c.Request.Context(), id, count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// CreateRaffle handles POST /admin/raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	var req models.CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	raffle, err := h.raffleService.CreateRaffle(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

// SetRaffleStatus handles PUT /admin/raffles/:id/status
func (h *RaffleHandler) SetRaffleStatus(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}
	raffle, err := h.raffleService.SetRaffleStatus(c.Request.Context(), id, request.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}
