package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cardspring/rewardsledger/internal/ledger"
	"github.com/cardspring/rewardsledger/internal/models"
)

// LotHandler serves lot creation and lookups.
type LotHandler struct {
	db     *gorm.DB        // Database handle for read paths.
	ledger *ledger.Service // Ledger service for mutations.
}

// NewLotHandler wires a lot handler.
func NewLotHandler(db *gorm.DB, svc *ledger.Service) *LotHandler {
	return &LotHandler{db: db, ledger: svc}
}

// createLotRequest captures the payload for an earn event.
type createLotRequest struct {
	CustomerID  uint64  `json:"customer_id"`           // Owning customer.
	Points      int64   `json:"points"`                // Points earned.
	Source      string  `json:"source"`                // payment, manual_grant or welcome_bonus.
	PaymentID   *uint64 `json:"payment_id,omitempty"`  // Required for payment source.
	Description string  `json:"description,omitempty"` // Grant or bonus description.
	ExpiryDate  *string `json:"expiry_date,omitempty"` // RFC 3339; omitted means source default.
}

// Create records an earn event as a new lot.
func (h *LotHandler) Create(c *gin.Context) {
	var body createLotRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var expiry *time.Time
	if body.ExpiryDate != nil && strings.TrimSpace(*body.ExpiryDate) != "" {
		parsed, errParse := time.Parse(time.RFC3339, *body.ExpiryDate)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expiry_date, use RFC 3339"})
			return
		}
		expiry = &parsed
	}

	lot, errEarn := h.ledger.EarnPoints(c.Request.Context(), ledger.EarnRequest{
		CustomerID:  body.CustomerID,
		Points:      body.Points,
		Source:      models.LotSource(body.Source),
		PaymentID:   body.PaymentID,
		Description: body.Description,
		ExpiryDate:  expiry,
	})
	if errEarn != nil {
		respondLedgerError(c, errEarn)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// Get returns one lot by ID.
func (h *LotHandler) Get(c *gin.Context) {
	lotID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var lot models.RewardLot
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ?", lotID).
		First(&lot).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lot not found"})
		return
	}
	c.JSON(http.StatusOK, lot)
}

// ListByCustomer returns a customer's lots, newest earned first, with
// optional status and earned-date filters.
func (h *LotHandler) ListByCustomer(c *gin.Context) {
	customerID, ok := parseIDParam(c)
	if !ok {
		return
	}
	page, perPage := parsePagination(c)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.RewardLot{}).
		Where("customer_id = ?", customerID)

	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		switch models.LotStatus(status) {
		case models.LotStatusEarned, models.LotStatusRedeemed, models.LotStatusExpired:
			query = query.Where("status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status, valid: EARNED, REDEEMED, EXPIRED"})
			return
		}
	}
	var okRange bool
	if query, okRange = applyDateRange(c, query, "earned_date"); !okRange {
		return
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list lots failed"})
		return
	}

	var lots []models.RewardLot
	if errFind := query.
		Order("earned_date DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&lots).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list lots failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customer_id": customerID,
		"lots":        lots,
		"total":       total,
		"page":        page,
		"per_page":    perPage,
	})
}

// parseIDParam reads the :id path parameter as a positive integer.
func parseIDParam(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// parsePagination reads page/per_page query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	if errPage != nil || page < 1 {
		page = 1
	}
	perPage, errPerPage := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if errPerPage != nil || perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}

// applyDateRange applies optional start_date/end_date filters to a column.
func applyDateRange(c *gin.Context, query *gorm.DB, column string) (*gorm.DB, bool) {
	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		start, errParse := time.Parse(time.RFC3339, raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, use RFC 3339"})
			return nil, false
		}
		query = query.Where(column+" >= ?", start)
	}
	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		end, errParse := time.Parse(time.RFC3339, raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, use RFC 3339"})
			return nil, false
		}
		query = query.Where(column+" <= ?", end)
	}
	return query, true
}
