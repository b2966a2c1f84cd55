package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/middleware"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var statusByKind = map[services.ErrorKind]int{
	services.KindInvalidAmount:          http.StatusBadRequest,
	services.KindInvalidTicketSelection: http.StatusBadRequest,
	services.KindInvalidStatus:          http.StatusBadRequest,
	services.KindInvalidRequest:         http.StatusBadRequest,
	services.KindNotFound:               http.StatusNotFound,
	services.KindTicketsAlreadyTaken:    http.StatusConflict,
	services.KindInvalidStateTransition: http.StatusConflict,
	services.KindRaffleNotAvailable:     http.StatusConflict,
	services.KindUnauthorized:           http.StatusUnauthorized,
	services.KindForbidden:              http.StatusForbidden,
	services.KindInternal:               http.StatusInternalServerError,
}

type errorBody struct {
	Kind    services.ErrorKind `json:"kind"`
	Message string             `json:"message"`
	Numbers []int              `json:"numbers,omitempty"`
}

// respondError writes err as {"error": {...}}. Errors that are not service
// errors are reported as INTERNAL with a generic message.
func respondError(c *gin.Context, err error) {
	body := errorBody{Kind: services.KindOf(err)}
	var se *services.Error
	if errors.As(err, &se) {
		body.Message = se.Message
		body.Numbers = se.Numbers
	}
	if body.Kind == services.KindInternal {
		body.Message = "an internal error occurred, please try again later"
		_ = c.Error(err)
	}
	status, ok := statusByKind[body.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": body})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: services.KindInvalidRequest, Message: message}})
}

// objectIDParam parses a hex id path parameter, answering 404 when malformed
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errorBody{Kind: services.KindNotFound, Message: name + " not found"}})
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentIdentity returns the verified caller, answering 401 when absent
func currentIdentity(c *gin.Context) (models.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		respondError(c, &services.Error{Kind: services.KindUnauthorized, Message: "authentication required"})
	}
	return id, ok
}
