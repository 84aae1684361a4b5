package application

import (
	"testing"

	sensors "sensor-cloud/internal/sensors/domain"
)

func TestClassifyPartitionsByMembership(t *testing.T) {
	roster := []sensors.Sensor{
		{ID: "s-1", Name: "temp-roof"},
		{ID: "s-2", Name: "humidity-lab"},
		{ID: "s-3", Name: "pressure-hall"},
	}
	recent := map[string]struct{}{
		"s-1": {},
		"s-3": {},
	}

	c := Classify(roster, recent)

	if len(c.Active) != 2 {
		t.Fatalf("expected 2 active, got %d", len(c.Active))
	}
	if len(c.Inactive) != 1 {
		t.Fatalf("expected 1 inactive, got %d", len(c.Inactive))
	}
	if c.Inactive[0].ID != "s-2" {
		t.Fatalf("expected s-2 inactive, got %s", c.Inactive[0].ID)
	}
}

func TestClassifyEmptyRecentSet(t *testing.T) {
	roster := []sensors.Sensor{{ID: "s-1"}, {ID: "s-2"}}

	c := Classify(roster, map[string]struct{}{})

	if len(c.Active) != 0 {
		t.Fatalf("expected no active sensors, got %d", len(c.Active))
	}
	if len(c.Inactive) != 2 {
		t.Fatalf("expected 2 inactive sensors, got %d", len(c.Inactive))
	}
}

func TestClassifyIgnoresUnknownIDs(t *testing.T) {
	roster := []sensors.Sensor{{ID: "s-1"}}
	recent := map[string]struct{}{"s-1": {}, "s-999": {}}

	c := Classify(roster, recent)

	if len(c.Active) != 1 || len(c.Inactive) != 0 {
		t.Fatalf("expected 1 active and 0 inactive, got %d/%d", len(c.Active), len(c.Inactive))
	}
}

func TestIDsProjection(t *testing.T) {
	if got := IDs(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	got := IDs([]sensors.Sensor{{ID: "a"}, {ID: "b"}})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected ids: %v", got)
	}
}
