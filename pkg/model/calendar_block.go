package model

import "time"

type BlockKind string

const (
	BlockConfirmed   BlockKind = "confirmed"
	BlockHold        BlockKind = "hold"
	BlockManual      BlockKind = "manual_block"
	BlockMaintenance BlockKind = "maintenance"
)

// OperatorKind reports whether the block was placed by an operator rather than a booking.
func (k BlockKind) OperatorKind() bool {
	return k == BlockManual || k == BlockMaintenance
}

type CalendarBlock struct {
	ID             string    `json:"id" bson:"_id"`
	PropertyID     string    `json:"property_id" bson:"property_id"`
	Range          DateRange `json:"range" bson:"range"`
	Kind           BlockKind `json:"kind" bson:"kind"`
	OwnerBookingID string    `json:"owner_booking_id,omitempty" bson:"owner_booking_id,omitempty"`
	Reason         string    `json:"reason,omitempty" bson:"reason,omitempty"`
	ColorCode      string    `json:"color_code,omitempty" bson:"color_code,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

type ManualBlockRequest struct {
	Start     string    `json:"start" validate:"required,datetime=2006-01-02"`
	End       string    `json:"end" validate:"required,datetime=2006-01-02"`
	Kind      BlockKind `json:"kind" validate:"required,oneof=manual_block maintenance"`
	Reason    string    `json:"reason" validate:"omitempty,max=255"`
	ColorCode string    `json:"color_code" validate:"omitempty,hexcolor"`
}

// PropertyLock is an advisory lock document serializing writers of one property's calendar.
type PropertyLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
