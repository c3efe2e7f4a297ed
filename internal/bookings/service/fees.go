package service

import (
	"time"

	"staybook/pkg/model"
)

// CancellationFeePolicy computes what a guest forfeits when cancelling a
// confirmed booking at now.
type CancellationFeePolicy interface {
	Fee(property *model.Property, booking *model.Booking, now time.Time) int64
}

// TieredFeePolicy charges a share of the total depending on how many days are
// left before check-in, counted in the property's timezone.
//
//	flexible: free from 3 days out, 50% after
//	moderate: free from 5 days out, 50% from 1 day out, 100% on the day
//	strict:   50% from 7 days out, 100% after
type TieredFeePolicy struct{}

func (TieredFeePolicy) Fee(property *model.Property, booking *model.Booking, now time.Time) int64 {
	loc := time.UTC
	policy := model.PolicyFlexible
	if property != nil {
		loc = property.Location()
		if property.CancellationPolicy != "" {
			policy = property.CancellationPolicy
		}
	}

	today := model.Day(now.In(loc))
	days := int(booking.Range.Start.Sub(today).Hours() / 24)

	var percent int64
	switch policy {
	case model.PolicyStrict:
		percent = 100
		if days >= 7 {
			percent = 50
		}
	case model.PolicyModerate:
		switch {
		case days >= 5:
			percent = 0
		case days >= 1:
			percent = 50
		default:
			percent = 100
		}
	default:
		percent = 50
		if days >= 3 {
			percent = 0
		}
	}

	return booking.TotalPrice * percent / 100
}
