package model

import "time"

type CancellationPolicy string

const (
	PolicyFlexible CancellationPolicy = "flexible"
	PolicyModerate CancellationPolicy = "moderate"
	PolicyStrict   CancellationPolicy = "strict"
)

// Property is the read-only catalog view the engine needs.
type Property struct {
	ID                 string             `json:"id" bson:"_id" validate:"required"`
	Title              string             `json:"title" bson:"title" validate:"omitempty,max=200"`
	TimeZone           string             `json:"time_zone" bson:"time_zone" validate:"omitempty,timezone"`
	BasePrice          int64              `json:"base_price" bson:"base_price" validate:"min=0"`
	Currency           string             `json:"currency" bson:"currency" validate:"omitempty,len=3"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy" bson:"cancellation_policy" validate:"omitempty,oneof=flexible moderate strict"`
	MaxGuests          int                `json:"max_guests" bson:"max_guests" validate:"min=0"`
}

// Location resolves the property's timezone, falling back to UTC.
func (p *Property) Location() *time.Location {
	if p.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CalendarSettings holds the per-property booking policy.
// Weekday lists use time.Weekday numbering (Sunday = 0); an empty list allows any day.
type CalendarSettings struct {
	PropertyID              string         `json:"property_id" bson:"_id" validate:"required"`
	DefaultPrice            int64          `json:"default_price" bson:"default_price" validate:"min=0"`
	AdvanceNoticeDays       int            `json:"advance_notice_days" bson:"advance_notice_days" validate:"min=0,max=365"`
	BookingWindowDays       int            `json:"booking_window_days" bson:"booking_window_days" validate:"min=0,max=1095"`
	AllowedCheckInWeekdays  []time.Weekday `json:"allowed_check_in_weekdays" bson:"allowed_check_in_weekdays" validate:"weekdays"`
	AllowedCheckOutWeekdays []time.Weekday `json:"allowed_check_out_weekdays" bson:"allowed_check_out_weekdays" validate:"weekdays"`
	AutoApplySeasonal       bool           `json:"auto_apply_seasonal" bson:"auto_apply_seasonal"`
}

const (
	DefaultAdvanceNoticeDays = 0
	DefaultBookingWindowDays = 365
)

// DefaultCalendarSettings is used for properties without a settings record.
func DefaultCalendarSettings(propertyID string) *CalendarSettings {
	return &CalendarSettings{
		PropertyID:        propertyID,
		AdvanceNoticeDays: DefaultAdvanceNoticeDays,
		BookingWindowDays: DefaultBookingWindowDays,
		AutoApplySeasonal: true,
	}
}

func WeekdayAllowed(allowed []time.Weekday, day time.Weekday) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		if d == day {
			return true
		}
	}
	return false
}

type SeasonalRate struct {
	ID            string    `json:"id" bson:"_id"`
	PropertyID    string    `json:"property_id" bson:"property_id" validate:"required"`
	Range         DateRange `json:"range" bson:"range"`
	PricePerNight int64     `json:"price_per_night" bson:"price_per_night" validate:"gt=0"`
	MinNights     int       `json:"min_nights" bson:"min_nights" validate:"min=0,max=365"`
	MaxNights     int       `json:"max_nights" bson:"max_nights" validate:"min=0,max=365"`
	Priority      int       `json:"priority" bson:"priority" validate:"min=0,max=100"`
	Description   string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=255"`
	ColorCode     string    `json:"color_code,omitempty" bson:"color_code,omitempty" validate:"omitempty,hexcolor"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// Outranks reports whether r wins over o for a night covered by both.
func (r *SeasonalRate) Outranks(o *SeasonalRate) bool {
	if r.Priority != o.Priority {
		return r.Priority > o.Priority
	}
	return r.CreatedAt.After(o.CreatedAt)
}
