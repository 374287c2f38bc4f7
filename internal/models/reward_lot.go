package models

import "time"

// LotStatus is the lifecycle state of a reward lot.
type LotStatus string

// LotStatus values. EARNED lots hold redeemable points; REDEEMED and
// EXPIRED are terminal for normal redemption, but a reversal may reopen a
// REDEEMED lot by decrementing points_redeemed.
const (
	LotStatusEarned   LotStatus = "EARNED"
	LotStatusRedeemed LotStatus = "REDEEMED"
	LotStatusExpired  LotStatus = "EXPIRED"
)

// LotSource identifies where a lot's points came from.
type LotSource string

// LotSource values.
const (
	LotSourcePayment      LotSource = "payment"
	LotSourceManualGrant  LotSource = "manual_grant"
	LotSourceWelcomeBonus LotSource = "welcome_bonus"
)

// RewardLot is one earn event's worth of points, tracked independently so
// redemption can run FIFO and expiry applies per earn event.
type RewardLot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	CustomerID uint64 `gorm:"not null;index:idx_reward_lots_customer_earned,priority:1" json:"customer_id"` // Owning customer.

	SourceType  LotSource `gorm:"type:text;not null;index" json:"source_type"` // Origin of the points.
	PaymentID   *uint64   `gorm:"index" json:"payment_id,omitempty"`           // Source payment, when SourceType is payment.
	Description string    `gorm:"type:text" json:"description,omitempty"`      // Grant or bonus description.

	PointsEarned   int64   `gorm:"not null" json:"points_earned"`                    // Fixed at creation, immutable.
	PointsRedeemed int64   `gorm:"not null;default:0" json:"points_redeemed"`        // 0 <= points_redeemed <= points_earned.
	DollarValue    float64 `gorm:"type:decimal(10,2);not null" json:"dollar_value"` // Informational value at 1pt = $0.01.

	Status LotStatus `gorm:"type:text;not null;default:'EARNED';index" json:"status"` // Lifecycle state.

	EarnedDate   time.Time  `gorm:"not null;index:idx_reward_lots_customer_earned,priority:2" json:"earned_date"` // Earn timestamp, FIFO key.
	RedeemedDate *time.Time `json:"redeemed_date,omitempty"`                                                      // Set on first redemption.
	ExpiryDate   *time.Time `gorm:"index" json:"expiry_date,omitempty"`                                           // Nil means the lot never expires.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Row creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last mutation timestamp.
}

// TableName overrides the default table name.
func (RewardLot) TableName() string {
	return "reward_lots"
}

// RemainingPoints returns the unspent points on the lot.
func (l *RewardLot) RemainingPoints() int64 {
	return l.PointsEarned - l.PointsRedeemed
}
