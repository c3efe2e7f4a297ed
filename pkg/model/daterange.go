package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format of civil dates.
const DateLayout = "2006-01-02"

var ErrEmptyRange = errors.New("start date must be before end date")

// DateRange is a half-open interval of civil dates [Start, End).
// Both bounds are normalized to midnight UTC so that comparisons never depend on
// the zone the value was parsed in.
type DateRange struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// Day truncates t to its civil date, keeping the calendar day of t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDay(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

func (r DateRange) Validate() error {
	if !r.Start.Before(r.End) {
		return ErrEmptyRange
	}
	return nil
}

// Nights is the number of nights covered; the checkout day is not occupied.
func (r DateRange) Nights() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Overlaps reports whether two ranges share at least one night. Ranges that only
// touch at a boundary (checkout == next check-in) do not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

func (r DateRange) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Days lists every occupied night, in order.
func (r DateRange) Days() []time.Time {
	days := make([]time.Time, 0, r.Nights())
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

type dateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{
		Start: r.Start.Format(DateLayout),
		End:   r.End.Format(DateLayout),
	})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDateRange(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
