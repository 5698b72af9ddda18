package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/principalgrid/billing/internal/ledger"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
)

func (s *Server) AccountBalance(c *gin.Context) {
	id, err := ledger.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, usagedomain.ErrInvalidAccount)
		return
	}

	account, err := s.ledgerSvc.LookupAccount(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id": account.ID.String(),
		"available":  strconv.FormatInt(ledger.Available(*account), 10),
		"pending":    strconv.FormatInt(account.DebitsPending, 10),
	})
}
