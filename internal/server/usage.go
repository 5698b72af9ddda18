package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
)

func (s *Server) RecordUsage(c *gin.Context) {
	var req usagedomain.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, usagedomain.ErrInvalidAccount)
		return
	}

	if err := s.usageSvc.RecordUsage(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (s *Server) ListUsage(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := s.usageSvc.List(c.Request.Context(), usagedomain.ListUsageRequest{
		AccountID: c.Query("account_id"),
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage_records": records})
}

func (s *Server) MonthlySpend(c *gin.Context) {
	spent, err := s.usageSvc.MonthlySpend(c.Request.Context(), c.Query("account_id"), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"spent": strconv.FormatInt(spent, 10)})
}
