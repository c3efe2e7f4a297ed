package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid ID format")

	ErrPropertyNotFound = errors.New("property not found")

	ErrBlockNotFound = errors.New("calendar block not found")

	ErrDateConflict = errors.New("dates overlap an existing calendar block")

	ErrPolicyViolation = errors.New("dates violate the property's booking policy")

	ErrNightsConstraint = errors.New("stay length violates the nights constraint")

	ErrHoldExpired = errors.New("booking hold has expired")

	ErrBusy = errors.New("property is busy, retry later")

	ErrInvalidTransition = errors.New("booking status transition not allowed")

	// ErrStatusChanged means a compare-and-transition found the booking in another
	// state than expected; the caller reloads to decide what happened.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrGateway = errors.New("payment gateway error")

	// ErrRefundDue marks a successful payment recorded against a booking that can
	// no longer be confirmed. The payment must go back to the guest.
	ErrRefundDue = errors.New("payment received for a booking that cannot be confirmed")

	// ErrPaymentSettled marks a payment the booking already accounts for.
	ErrPaymentSettled = errors.New("payment already settled for this booking")
)
