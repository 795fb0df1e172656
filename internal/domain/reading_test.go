package domain

import (
	"encoding/json"
	"testing"
)

func TestReadingAccessors_NilSafe(t *testing.T) {
	var r *Reading

	if r.HasAverage() {
		t.Error("nil reading should not have an average")
	}
	if _, ok := r.ConnectionID(); ok {
		t.Error("nil reading should not expose a connection id")
	}
	if _, ok := r.MeterID(); ok {
		t.Error("nil reading should not expose a meter id")
	}
	if r.Customer() != nil {
		t.Error("nil reading should not expose a customer")
	}
}

func TestReadingAccessors_MissingConnection(t *testing.T) {
	r := &Reading{ID: 42, Meter: &Meter{ID: 9}}

	if id, ok := r.MeterID(); !ok || id != 9 {
		t.Errorf("expected meter id 9, got %d (%v)", id, ok)
	}
	if _, ok := r.ConnectionID(); ok {
		t.Error("expected no connection id")
	}
}

func TestReading_DecodesNestedRelations(t *testing.T) {
	body := `{
		"id": 42,
		"previousReading": 100,
		"currentReading": 150,
		"readingDate": "2025-06-01T08:00:00Z",
		"exceptionType": "HIGH_CONSUMPTION",
		"average": 120,
		"meter": {
			"id": 3,
			"serialNumber": "SN-001",
			"connection": {
				"id": 7,
				"connectionNumber": "C-0007",
				"status": "ACTIVE",
				"customer": {"id": 11, "name": "Jane Wanjiru", "balance": "1250.5"},
				"zone": {"id": 2, "name": "North"}
			}
		}
	}`

	var r Reading
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !r.HasAverage() || *r.Average != 120 {
		t.Fatalf("expected average 120, got %v", r.Average)
	}
	if id, ok := r.ConnectionID(); !ok || id != 7 {
		t.Errorf("expected connection 7, got %d", id)
	}
	if c := r.Customer(); c == nil || c.Balance.StringFixed(2) != "1250.50" {
		t.Errorf("unexpected customer: %#v", c)
	}
	if got := RefName(r.Connection().Zone, "-"); got != "North" {
		t.Errorf("expected zone North, got %s", got)
	}
	if got := RefName(r.Connection().Route, "-"); got != "-" {
		t.Errorf("expected fallback for missing route, got %s", got)
	}
	if r.DisplayConsumption() != 50 {
		t.Errorf("expected derived consumption 50, got %f", r.DisplayConsumption())
	}
}

func TestConnectionStatus(t *testing.T) {
	if !ConnectionPendingMeter.Valid() {
		t.Error("PENDING_METER should be valid")
	}
	if ConnectionStatus("ARCHIVED").Valid() {
		t.Error("ARCHIVED should not be valid")
	}
	if ConnectionDormant.Label() != "Dormant" {
		t.Errorf("unexpected label %q", ConnectionDormant.Label())
	}
}

func TestParsePriority(t *testing.T) {
	if p, ok := ParsePriority(" high "); !ok || p != PriorityHigh {
		t.Errorf("expected HIGH, got %q (%v)", p, ok)
	}
	if _, ok := ParsePriority("urgent"); ok {
		t.Error("urgent should not parse")
	}
}
