package models

import "time"

// CancellationStatus is the lifecycle state of a cancellation record.
type CancellationStatus string

// CancellationStatus values. The ledger writes COMPLETED records; the
// other states exist for cancellations staged by an external approval
// flow.
const (
	CancellationStatusPending   CancellationStatus = "PENDING"
	CancellationStatusApproved  CancellationStatus = "APPROVED"
	CancellationStatusDenied    CancellationStatus = "DENIED"
	CancellationStatusCompleted CancellationStatus = "COMPLETED"
)

// RedemptionCancellation is the durable audit trail of one redemption
// reversal. It references the original lot and is never updated in place;
// the reversal itself mutates only the lot's points_redeemed.
type RedemptionCancellation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	CancellationReference string `gorm:"type:text;not null;uniqueIndex" json:"cancellation_reference"` // Unique external reference.

	OriginalLotID uint64 `gorm:"not null;index" json:"original_lot_id"` // Lot whose redemption was reversed.
	CustomerID    uint64 `gorm:"not null;index" json:"customer_id"`     // Owning customer.

	PointsToRestore       int64 `gorm:"not null" json:"points_to_restore"`                 // Redeemed points targeted by the cancellation.
	CancellationFeePoints int64 `gorm:"not null;default:0" json:"cancellation_fee_points"` // Fee withheld, stays consumed.
	NetPointsRestored     int64 `gorm:"not null" json:"net_points_restored"`               // Points actually returned to the lot.

	CancellationReason string             `gorm:"type:text;not null" json:"cancellation_reason"`        // Caller-supplied reason.
	Status             CancellationStatus `gorm:"type:text;not null;default:'COMPLETED'" json:"status"` // Record state.

	RequestedDate time.Time  `gorm:"not null" json:"requested_date"` // When the cancellation was requested.
	ProcessedDate *time.Time `json:"processed_date,omitempty"`       // When the reversal committed.

	OriginalLot RewardLot `gorm:"foreignKey:OriginalLotID" json:"-"` // Lot relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Row creation timestamp.
}

// TableName overrides the default table name.
func (RedemptionCancellation) TableName() string {
	return "redemption_cancellations"
}
