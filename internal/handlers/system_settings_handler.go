package handlers

import (
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/currency"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// SystemSettingsHandler handles exchange-rate settings requests
type SystemSettingsHandler struct {
	rateService   services.ExchangeRateService
	localCurrency currency.Code
}

// NewSystemSettingsHandler creates a new SystemSettingsHandler
func NewSystemSettingsHandler(rateService services.ExchangeRateService, localCurrency currency.Code) *SystemSettingsHandler {
	return &SystemSettingsHandler{
		rateService:   rateService,
		localCurrency: localCurrency,
	}
}

type exchangeRateResponse struct {
	From string        `json:"from"`
	To   string        `json:"to"`
	Rate currency.Rate `json:"rate"`
}

// GetExchangeRate handles GET /exchange-rate
func (h *SystemSettingsHandler) GetExchangeRate(c *gin.Context) {
	c.JSON(http.StatusOK, h.response(h.rateService.GetExchangeRate(c.Request.Context())))
}

// UpdateExchangeRate handles PUT /admin/exchange-rate
func (h *SystemSettingsHandler) UpdateExchangeRate(c *gin.Context) {
	var request struct {
		Rate float64 `json:"rate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err.Error())
		return
	}
	admin, ok := currentIdentity(c)
	if !ok {
		return
	}
	rate, err := h.rateService.SetExchangeRate(c.Request.Context(), request.Rate, admin.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.response(rate))
}

func (h *SystemSettingsHandler) response(rate currency.Rate) exchangeRateResponse {
	return exchangeRateResponse{From: string(currency.USD), To: string(h.localCurrency), Rate: rate}
}
