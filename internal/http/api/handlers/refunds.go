package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardspring/rewardsledger/internal/ledger"
)

// RefundHandler serves refund-triggered point clawbacks.
type RefundHandler struct {
	ledger *ledger.Service
}

// NewRefundHandler wires a refund handler.
func NewRefundHandler(svc *ledger.Service) *RefundHandler {
	return &RefundHandler{ledger: svc}
}

// clawbackRequest captures the payload posted by the refund processor.
type clawbackRequest struct {
	PaymentID      uint64  `json:"payment_id"`      // Refunded payment.
	RefundAmount   float64 `json:"refund_amount"`   // Refunded dollar amount.
	OriginalAmount float64 `json:"original_amount"` // Original payment amount.
}

// Clawback claws back the refunded share of the points a payment earned.
// Any unrecoverable deficit is part of the response body, not an error.
func (h *RefundHandler) Clawback(c *gin.Context) {
	var body clawbackRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errReverse := h.ledger.ReverseForRefund(c.Request.Context(), body.PaymentID, body.RefundAmount, body.OriginalAmount)
	if errReverse != nil {
		respondLedgerError(c, errReverse)
		return
	}
	c.JSON(http.StatusOK, result)
}
