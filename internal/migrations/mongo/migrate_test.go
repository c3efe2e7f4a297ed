package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections(t *testing.T) {
	want := map[string]bool{
		"Bookings":          false,
		"Calendar_blocks":   false,
		"Property_locks":    false,
		"Properties":        false,
		"Calendar_settings": false,
		"Seasonal_rates":    false,
	}

	for _, c := range Collections() {
		seen, ok := want[c.Name]
		if !ok {
			t.Errorf("unexpected collection %s", c.Name)
			continue
		}
		if seen {
			t.Errorf("collection %s defined twice", c.Name)
		}
		want[c.Name] = true

		if _, ok := c.Validator["$jsonSchema"].(bson.M); !ok {
			t.Errorf("collection %s has no $jsonSchema validator", c.Name)
		}
	}

	for name, seen := range want {
		if !seen {
			t.Errorf("collection %s missing", name)
		}
	}
}

func TestPropertyLocksExpire(t *testing.T) {
	if len(PropertyLocksIndexes) != 1 {
		t.Fatalf("expected a single TTL index, got %d", len(PropertyLocksIndexes))
	}
	opts := PropertyLocksIndexes[0].Options
	if opts == nil || opts.ExpireAfterSeconds == nil || *opts.ExpireAfterSeconds != 0 {
		t.Error("property locks must expire at expires_at")
	}
}

func TestBookingCodeUnique(t *testing.T) {
	idx := BookingsIndexes[0]
	keys, ok := idx.Keys.(bson.D)
	if !ok || keys[0].Key != "code" {
		t.Fatalf("first bookings index = %v", idx.Keys)
	}
	if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
		t.Error("booking code index must be unique")
	}
}
