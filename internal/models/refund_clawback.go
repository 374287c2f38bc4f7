package models

import (
	"time"

	"gorm.io/datatypes"
)

// RefundClawback is the durable record of one refund-triggered points
// reversal across the lots earned by a payment. Append-only: a clawback
// is never edited, and any deficit it could not recover stays on the
// record for reconciliation.
type RefundClawback struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	ClawbackReference string `gorm:"type:text;not null;uniqueIndex" json:"clawback_reference"` // Unique external reference.

	PaymentID  uint64 `gorm:"not null;index" json:"payment_id"`  // Refunded payment.
	CustomerID uint64 `gorm:"not null;index" json:"customer_id"` // Owning customer.

	RefundAmount   float64 `gorm:"type:decimal(10,2);not null" json:"refund_amount"`   // Refunded dollar amount.
	OriginalAmount float64 `gorm:"type:decimal(10,2);not null" json:"original_amount"` // Original payment amount.

	PointsClawedBack int64 `gorm:"not null" json:"points_clawed_back"`       // Points recovered across all lots.
	DeficitPoints    int64 `gorm:"not null;default:0" json:"deficit_points"` // Points already spent and unrecoverable.

	LotDetail datatypes.JSON `gorm:"type:jsonb" json:"lot_detail,omitempty"` // Per-lot breakdown of the clawback.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Row creation timestamp.
}

// TableName overrides the default table name.
func (RefundClawback) TableName() string {
	return "refund_clawbacks"
}
