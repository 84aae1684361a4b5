package application

import (
	sensors "sensor-cloud/internal/sensors/domain"
)

// Classification partitions a roster into active and inactive sensors.
type Classification struct {
	Active   []sensors.Sensor
	Inactive []sensors.Sensor
}

// Classify partitions sensors by membership in the recent-reading id set. A
// sensor is active iff at least one reading landed inside the window; the
// window itself was already applied when the set was built, so no timestamp
// comparison happens here.
func Classify(roster []sensors.Sensor, recentIDs map[string]struct{}) Classification {
	var c Classification
	for _, sensor := range roster {
		if _, ok := recentIDs[sensor.ID]; ok {
			c.Active = append(c.Active, sensor)
		} else {
			c.Inactive = append(c.Inactive, sensor)
		}
	}
	return c
}

// IDs projects a sensor slice to its identifiers.
func IDs(list []sensors.Sensor) []string {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, sensor := range list {
		ids = append(ids, sensor.ID)
	}
	return ids
}
