package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	fundingdomain "github.com/principalgrid/billing/internal/funding/domain"
	"github.com/principalgrid/billing/internal/ledger"
	payoutdomain "github.com/principalgrid/billing/internal/payout/domain"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, fundingdomain.ErrInsufficientFunds),
		errors.Is(err, payoutdomain.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_balance",
			Message: "insufficient balance",
		}
	case errors.Is(err, usagedomain.ErrInvalidAccount),
		errors.Is(err, usagedomain.ErrInvalidResource),
		errors.Is(err, fundingdomain.ErrInvalidAccount),
		errors.Is(err, payoutdomain.ErrInvalidAccount),
		errors.Is(err, payoutdomain.ErrInvalidAmount),
		errors.Is(err, payoutdomain.ErrInvalidDestination):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, payoutdomain.ErrTransferFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "transfer_failed",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
