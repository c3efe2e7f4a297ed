package model

type PriceSource string

const (
	PriceSourceBase     PriceSource = "base"
	PriceSourceSeasonal PriceSource = "seasonal"
)

type NightPrice struct {
	Date      string      `json:"date"`
	Price     int64       `json:"price"`
	Source    PriceSource `json:"source"`
	RateID    string      `json:"rate_id,omitempty"`
	MinNights int         `json:"min_nights,omitempty"`
	MaxNights int         `json:"max_nights,omitempty"`
}

type Quote struct {
	PropertyID       string       `json:"property_id"`
	Range            DateRange    `json:"range"`
	Nights           []NightPrice `json:"nights"`
	Total            int64        `json:"total"`
	Currency         string       `json:"currency"`
	AppliedMinNights int          `json:"applied_min_nights"`
	AppliedMaxNights int          `json:"applied_max_nights"`
}

type DayStatus string

const (
	DayAvailable   DayStatus = "available"
	DayHold        DayStatus = "hold"
	DayConfirmed   DayStatus = "confirmed"
	DayManualBlock DayStatus = "manual_block"
	DayMaintenance DayStatus = "maintenance"
)

// DayAvailability is one row of a property's public calendar.
type DayAvailability struct {
	Date      string      `json:"date"`
	Status    DayStatus   `json:"status"`
	Price     int64       `json:"price"`
	Source    PriceSource `json:"source"`
	MinNights int         `json:"min_nights,omitempty"`
	BlockID   string      `json:"block_id,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	ColorCode string      `json:"color_code,omitempty"`
}
