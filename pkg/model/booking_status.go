package model

type BookingStatus string

const (
	StatusPendingPayment   BookingStatus = "pending_payment"
	StatusConfirmed        BookingStatus = "confirmed"
	StatusInProgress       BookingStatus = "in_progress"
	StatusCompleted        BookingStatus = "completed"
	StatusExpired          BookingStatus = "expired"
	StatusCancelledByGuest BookingStatus = "cancelled_by_guest"
	StatusCancelledByHost  BookingStatus = "cancelled_by_host"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPendingPayment: {StatusConfirmed, StatusExpired, StatusCancelledByGuest},
	StatusConfirmed:      {StatusInProgress, StatusCancelledByGuest, StatusCancelledByHost},
	StatusInProgress:     {StatusCompleted},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusInProgress, StatusCompleted,
		StatusExpired, StatusCancelledByGuest, StatusCancelledByHost:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// IsActive reports whether a booking in this status occupies its dates.
func (s BookingStatus) IsActive() bool {
	return s == StatusPendingPayment || s == StatusConfirmed || s == StatusInProgress
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

// Actor identifies who requested a cancellation.
type Actor string

const (
	ActorGuest  Actor = "guest"
	ActorHost   Actor = "host"
	ActorSystem Actor = "system"
)

func (a Actor) Valid() bool {
	return a == ActorGuest || a == ActorHost
}

// CancelStatus maps the cancelling actor to the resulting terminal status.
func (a Actor) CancelStatus() BookingStatus {
	if a == ActorHost {
		return StatusCancelledByHost
	}
	return StatusCancelledByGuest
}
