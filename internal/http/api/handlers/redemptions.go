package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardspring/rewardsledger/internal/ledger"
)

// RedemptionHandler serves redemption and cancellation operations.
type RedemptionHandler struct {
	ledger *ledger.Service
}

// NewRedemptionHandler wires a redemption handler.
func NewRedemptionHandler(svc *ledger.Service) *RedemptionHandler {
	return &RedemptionHandler{ledger: svc}
}

// redeemRequest captures the payload for a redemption.
type redeemRequest struct {
	Points int64 `json:"points"` // Points to redeem.
}

// RedeemCustomer redeems points from the customer's balance, oldest lots
// first.
func (h *RedemptionHandler) RedeemCustomer(c *gin.Context) {
	customerID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var body redeemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errRedeem := h.ledger.Redeem(c.Request.Context(), customerID, body.Points)
	if errRedeem != nil {
		respondLedgerError(c, errRedeem)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RedeemLot redeems points from a single lot.
func (h *RedemptionHandler) RedeemLot(c *gin.Context) {
	lotID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var body redeemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errRedeem := h.ledger.RedeemFromLot(c.Request.Context(), lotID, body.Points)
	if errRedeem != nil {
		respondLedgerError(c, errRedeem)
		return
	}
	c.JSON(http.StatusOK, result)
}

// cancelRequest captures the payload for a redemption cancellation.
type cancelRequest struct {
	LotID          uint64   `json:"lot_id"`                     // Lot whose redemption is reversed.
	Points         int64    `json:"points,omitempty"`           // 0 means everything redeemed on the lot.
	FeeRatePercent *float64 `json:"fee_rate_percent,omitempty"` // Omitted means the configured default.
	Reason         string   `json:"reason"`                     // Required audit reason.
}

// Cancel reverses a redemption, restoring points minus the fee.
func (h *RedemptionHandler) Cancel(c *gin.Context) {
	var body cancelRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	feeRate := h.ledger.CancellationFeePercent()
	if body.FeeRatePercent != nil {
		feeRate = *body.FeeRatePercent
	}

	result, errCancel := h.ledger.CancelRedemption(c.Request.Context(), body.LotID, body.Points, feeRate, body.Reason)
	if errCancel != nil {
		respondLedgerError(c, errCancel)
		return
	}
	c.JSON(http.StatusOK, result)
}
