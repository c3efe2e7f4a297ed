// Package conflict decides whether a candidate stay can be placed on a property's
// calendar. Everything here is pure: callers pass in the blocks, the settings and
// the current time.
package conflict

import (
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
)

type Reason string

const (
	ReasonDateConflict     Reason = "date_conflict"
	ReasonInvalidRange     Reason = "invalid_range"
	ReasonAdvanceNotice    Reason = "advance_notice"
	ReasonBookingWindow    Reason = "booking_window"
	ReasonCheckInDay       Reason = "check_in_day"
	ReasonCheckOutDay      Reason = "check_out_day"
	ReasonNightsConstraint Reason = "nights_constraint"
	ReasonGuestCount       Reason = "guest_count"
)

type Kind string

const (
	KindConflict Kind = "conflict"
	KindPolicy   Kind = "policy"
)

// ValidationFailure is the typed result of a rejected candidate.
type ValidationFailure struct {
	Reason  Reason
	Message string
	Details map[string]any
}

func (f *ValidationFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

func (f *ValidationFailure) Kind() Kind {
	if f.Reason == ReasonDateConflict {
		return KindConflict
	}
	return KindPolicy
}

// Is lets callers match failures against the booking sentinels with errors.Is.
func (f *ValidationFailure) Is(target error) bool {
	switch target {
	case bookingserrors.ErrDateConflict:
		return f.Reason == ReasonDateConflict
	case bookingserrors.ErrNightsConstraint:
		return f.Reason == ReasonNightsConstraint
	case bookingserrors.ErrPolicyViolation:
		return f.Kind() == KindPolicy
	}
	return false
}

// AppError converts the failure for callers: conflicts map to CONFLICT, policy
// failures to VALIDATION_ERROR. The failure stays reachable through errors.Is.
func (f *ValidationFailure) AppError() *apperrors.AppError {
	details := map[string]any{"reason": string(f.Reason)}
	for k, v := range f.Details {
		details[k] = v
	}
	if f.Kind() == KindConflict {
		return apperrors.Conflict(f.Message).WithDetails(details).WithCause(f)
	}
	return apperrors.Validation(f.Message, details).WithCause(f)
}

// AsFailure extracts a ValidationFailure from err.
func AsFailure(err error) (*ValidationFailure, bool) {
	var f *ValidationFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func failure(reason Reason, details map[string]any, format string, args ...any) *ValidationFailure {
	return &ValidationFailure{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

// HasConflict reports whether candidate overlaps any existing range.
func HasConflict(candidate model.DateRange, existing []model.DateRange) bool {
	for _, r := range existing {
		if candidate.Overlaps(r) {
			return true
		}
	}
	return false
}

// FirstConflict returns the earliest block overlapping candidate, or nil.
func FirstConflict(candidate model.DateRange, blocks []*model.CalendarBlock) *model.CalendarBlock {
	var first *model.CalendarBlock
	for _, b := range blocks {
		if !candidate.Overlaps(b.Range) {
			continue
		}
		if first == nil || b.Range.Start.Before(first.Range.Start) {
			first = b
		}
	}
	return first
}

// CheckConflict returns a date_conflict failure when candidate overlaps any block.
func CheckConflict(candidate model.DateRange, blocks []*model.CalendarBlock) error {
	b := FirstConflict(candidate, blocks)
	if b == nil {
		return nil
	}
	return failure(ReasonDateConflict,
		map[string]any{
			"conflict_start": b.Range.Start.Format(model.DateLayout),
			"conflict_end":   b.Range.End.Format(model.DateLayout),
			"kind":           b.Kind,
		},
		"dates %s overlap an existing %s block %s", candidate, b.Kind, b.Range)
}

// CheckRange validates the shape of a range without any property context.
func CheckRange(candidate model.DateRange) error {
	if err := candidate.Validate(); err != nil {
		return failure(ReasonInvalidRange, nil, "%s", err.Error())
	}
	return nil
}

// CheckPolicy validates candidate against the property's calendar settings.
// "Today" is the civil date of now in the property's location.
func CheckPolicy(candidate model.DateRange, settings *model.CalendarSettings, now time.Time, loc *time.Location) error {
	if err := CheckRange(candidate); err != nil {
		return err
	}
	if loc == nil {
		loc = time.UTC
	}
	today := model.Day(now.In(loc))

	if candidate.Start.Before(today) {
		return failure(ReasonInvalidRange,
			map[string]any{"today": today.Format(model.DateLayout)},
			"check-in %s is in the past", candidate.Start.Format(model.DateLayout))
	}

	if settings == nil {
		return nil
	}

	earliest := today.AddDate(0, 0, settings.AdvanceNoticeDays)
	if candidate.Start.Before(earliest) {
		return failure(ReasonAdvanceNotice,
			map[string]any{"advance_notice_days": settings.AdvanceNoticeDays, "earliest_check_in": earliest.Format(model.DateLayout)},
			"check-in requires %d day(s) of advance notice, earliest is %s",
			settings.AdvanceNoticeDays, earliest.Format(model.DateLayout))
	}

	if settings.BookingWindowDays > 0 {
		latest := today.AddDate(0, 0, settings.BookingWindowDays)
		if candidate.Start.After(latest) {
			return failure(ReasonBookingWindow,
				map[string]any{"booking_window_days": settings.BookingWindowDays, "latest_check_in": latest.Format(model.DateLayout)},
				"check-in must be within %d day(s), latest is %s",
				settings.BookingWindowDays, latest.Format(model.DateLayout))
		}
	}

	if !model.WeekdayAllowed(settings.AllowedCheckInWeekdays, candidate.Start.Weekday()) {
		return failure(ReasonCheckInDay,
			map[string]any{"weekday": candidate.Start.Weekday().String()},
			"check-in is not allowed on %s", candidate.Start.Weekday())
	}

	if !model.WeekdayAllowed(settings.AllowedCheckOutWeekdays, candidate.End.Weekday()) {
		return failure(ReasonCheckOutDay,
			map[string]any{"weekday": candidate.End.Weekday().String()},
			"check-out is not allowed on %s", candidate.End.Weekday())
	}

	return nil
}

// CheckNights validates a stay length against resolved min/max nights; zero means unbounded.
func CheckNights(nights, minNights, maxNights int) error {
	if minNights > 0 && nights < minNights {
		return failure(ReasonNightsConstraint,
			map[string]any{"nights": nights, "min_nights": minNights},
			"stay of %d night(s) is shorter than the minimum of %d", nights, minNights)
	}
	if maxNights > 0 && nights > maxNights {
		return failure(ReasonNightsConstraint,
			map[string]any{"nights": nights, "max_nights": maxNights},
			"stay of %d night(s) exceeds the maximum of %d", nights, maxNights)
	}
	return nil
}

// CheckGuests validates party size against the property capacity; zero capacity is unbounded.
func CheckGuests(guests, maxGuests int) error {
	if maxGuests > 0 && guests > maxGuests {
		return failure(ReasonGuestCount,
			map[string]any{"guest_count": guests, "max_guests": maxGuests},
			"%d guest(s) exceed the property capacity of %d", guests, maxGuests)
	}
	return nil
}
