package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	fundingdomain "github.com/principalgrid/billing/internal/funding/domain"
)

func (s *Server) EnsureFunded(c *gin.Context) {
	if err := s.fundingSvc.EnsureFunded(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "funded"})
}

type billingConfigRequest struct {
	AutoReloadThreshold int64  `json:"auto_reload_threshold"`
	AutoReloadTarget    int64  `json:"auto_reload_target"`
	MonthlySpendLimit   int64  `json:"monthly_spend_limit"`
	StripeCustomerID    string `json:"stripe_customer_id"`
}

func (s *Server) UpsertBillingConfig(c *gin.Context) {
	var req billingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fundingdomain.ErrInvalidAccount)
		return
	}

	cfg := fundingdomain.BillingConfig{
		AccountID:           c.Param("id"),
		AutoReloadThreshold: req.AutoReloadThreshold,
		AutoReloadTarget:    req.AutoReloadTarget,
		MonthlySpendLimit:   req.MonthlySpendLimit,
		StripeCustomerID:    req.StripeCustomerID,
	}
	if err := s.fundingSvc.UpsertConfig(c.Request.Context(), cfg); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
