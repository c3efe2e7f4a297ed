package service

import (
	"testing"
	"time"
	_ "time/tzdata"

	"staybook/pkg/model"
)

func TestTieredFeePolicy(t *testing.T) {
	now := time.Date(2025, 10, 20, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		policy   model.CancellationPolicy
		timeZone string
		daysOut  int
		want     int64
	}{
		{name: "flexible far out", policy: model.PolicyFlexible, daysOut: 3, want: 0},
		{name: "flexible close", policy: model.PolicyFlexible, daysOut: 2, want: 5000},
		{name: "empty policy is flexible", policy: "", daysOut: 5, want: 0},
		{name: "moderate far out", policy: model.PolicyModerate, daysOut: 5, want: 0},
		{name: "moderate within five days", policy: model.PolicyModerate, daysOut: 1, want: 5000},
		{name: "moderate same day", policy: model.PolicyModerate, daysOut: 0, want: 10000},
		{name: "strict far out", policy: model.PolicyStrict, daysOut: 7, want: 5000},
		{name: "strict close", policy: model.PolicyStrict, daysOut: 6, want: 10000},
		// 22:30 UTC is already the next day in Almaty, so one day less remains.
		{name: "property timezone", policy: model.PolicyModerate, timeZone: "Asia/Almaty", daysOut: 1, want: 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			property := &model.Property{ID: "p", CancellationPolicy: tt.policy, TimeZone: tt.timeZone}
			start := model.Day(now).AddDate(0, 0, tt.daysOut)
			booking := &model.Booking{
				TotalPrice: 10000,
				Range:      model.DateRange{Start: start, End: start.AddDate(0, 0, 2)},
			}

			got := TieredFeePolicy{}.Fee(property, booking, now)
			if got != tt.want {
				t.Errorf("Fee() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTieredFeePolicy_NilProperty(t *testing.T) {
	now := time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	start := model.Day(now).AddDate(0, 0, 1)
	booking := &model.Booking{TotalPrice: 8000, Range: model.DateRange{Start: start, End: start.AddDate(0, 0, 1)}}

	if got := (TieredFeePolicy{}).Fee(nil, booking, now); got != 4000 {
		t.Errorf("Fee() = %d, want 4000", got)
	}
}
