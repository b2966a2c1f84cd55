package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketHandler handles purchase and payment review requests
type TicketHandler struct {
	purchaseService services.PurchaseService
	reviewService   services.ReviewService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(purchaseService services.PurchaseService, reviewService services.ReviewService) *TicketHandler {
	return &TicketHandler{
		purchaseService: purchaseService,
		reviewService:   reviewService,
	}
}

// PurchaseTickets handles POST /raffles/:id/purchase
func (h *TicketHandler) PurchaseTickets(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	buyer, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := h.purchaseService.PurchaseTickets(c.Request.Context(), buyer, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetMyTickets handles GET /me/tickets
func (h *TicketHandler) GetMyTickets(c *gin.Context) {
	buyer, ok := currentIdentity(c)
	if !ok {
		return
	}
	tickets, err := h.purchaseService.GetUserTickets(c.Request.Context(), buyer.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tickets})
}

// ListPendingPayments handles GET /admin/payments/pending
func (h *TicketHandler) ListPendingPayments(c *gin.Context) {
	tickets, err := h.reviewService.ListPendingPayments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tickets})
}

// ConfirmTicket handles POST /admin/tickets/:id/confirm
func (h *TicketHandler) ConfirmTicket(c *gin.Context) {
	h.review(c, h.reviewService.ConfirmTicket)
}

// FailTicket handles POST /admin/tickets/:id/fail
func (h *TicketHandler) FailTicket(c *gin.Context) {
	h.review(c, h.reviewService.FailTicket)
}

type reviewFunc func(ctx context.Context, id primitive.ObjectID, reviewer models.Identity, comment string) (*models.Ticket, error)

func (h *TicketHandler) review(c *gin.Context, fn reviewFunc) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	reviewer, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req models.ReviewRequest
	// the body is optional
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}
	}
	ticket, err := fn(c.Request.Context(), id, reviewer, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
