package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError переводит ошибки домена в HTTP-статус
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validation *model.ValidationError
		notFound   *model.NotFoundError
		conflict   *model.ConflictError
		state      *model.InvalidStateError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Err.Error()})
	case errors.As(err, &state):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": state.Err.Error(), "current_state": state.Current})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
