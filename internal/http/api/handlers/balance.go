package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cardspring/rewardsledger/internal/ledger"
	"github.com/cardspring/rewardsledger/internal/models"
)

// BalanceHandler serves balance and redemption-history reads.
type BalanceHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewBalanceHandler wires a balance handler.
func NewBalanceHandler(db *gorm.DB, svc *ledger.Service) *BalanceHandler {
	return &BalanceHandler{db: db, ledger: svc}
}

// Balance returns the customer's current point position.
func (h *BalanceHandler) Balance(c *gin.Context) {
	customerID, ok := parseIDParam(c)
	if !ok {
		return
	}
	summary, errBalance := h.ledger.Balance(c.Request.Context(), customerID)
	if errBalance != nil {
		respondLedgerError(c, errBalance)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// historyEntry is one redemption-history row.
type historyEntry struct {
	models.RewardLot
	RedeemedDollarValue float64 `json:"redeemed_dollar_value"` // Dollar value of points redeemed on the lot.
}

// History returns lots the customer has redeemed from, newest redemption
// first, with optional redeemed-date filters.
func (h *BalanceHandler) History(c *gin.Context) {
	customerID, ok := parseIDParam(c)
	if !ok {
		return
	}
	page, perPage := parsePagination(c)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.RewardLot{}).
		Where("customer_id = ? AND points_redeemed > 0", customerID)
	var okRange bool
	if query, okRange = applyDateRange(c, query, "redeemed_date"); !okRange {
		return
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load history failed"})
		return
	}

	var lots []models.RewardLot
	if errFind := query.
		Order("redeemed_date DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&lots).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load history failed"})
		return
	}

	history := make([]historyEntry, 0, len(lots))
	var totalRedeemed int64
	for i := range lots {
		history = append(history, historyEntry{
			RewardLot:           lots[i],
			RedeemedDollarValue: ledger.DollarValueFloat(lots[i].PointsRedeemed),
		})
	}
	if errSum := h.db.WithContext(c.Request.Context()).
		Model(&models.RewardLot{}).
		Where("customer_id = ?", customerID).
		Select("COALESCE(SUM(points_redeemed), 0)").
		Scan(&totalRedeemed).Error; errSum != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load history failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customer_id": customerID,
		"history":     history,
		"summary": gin.H{
			"total_points_redeemed":       totalRedeemed,
			"total_dollar_value_redeemed": ledger.DollarValueFloat(totalRedeemed),
		},
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}
