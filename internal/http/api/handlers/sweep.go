package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardspring/rewardsledger/internal/ledger"
)

// SweepHandler serves the on-demand expiration sweep.
type SweepHandler struct {
	ledger *ledger.Service
}

// NewSweepHandler wires a sweep handler.
func NewSweepHandler(svc *ledger.Service) *SweepHandler {
	return &SweepHandler{ledger: svc}
}

// Run sweeps expired lots immediately. Safe to call at any time; the
// sweep is idempotent.
func (h *SweepHandler) Run(c *gin.Context) {
	expired, errSweep := h.ledger.SweepExpired(c.Request.Context())
	if errSweep != nil {
		respondLedgerError(c, errSweep)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired_count": expired})
}
