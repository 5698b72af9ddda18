package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	payoutdomain "github.com/principalgrid/billing/internal/payout/domain"
)

func (s *Server) ProcessPayout(c *gin.Context) {
	var req payoutdomain.ProcessPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, payoutdomain.ErrInvalidAmount)
		return
	}

	result, err := s.payoutSvc.ProcessPayout(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListPayouts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := s.payoutSvc.List(c.Request.Context(), c.Query("account_id"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": rows})
}
