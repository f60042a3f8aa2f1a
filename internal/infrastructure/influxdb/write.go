package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteActionMetric records the outcome of one batch device action.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - action: The action name ("lock", "unlock", "restart", "assign_owner")
//   - success: Number of devices whose calls succeeded
//   - failed: Number of devices whose calls failed
//   - duration: Wall time of the whole batch
func (c *Client) WriteActionMetric(action string, success, failed int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"batch_actions",
		map[string]string{
			"action": action,
		},
		map[string]interface{}{
			"success_count": success,
			"fail_count":    failed,
			"duration_ms":   duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBootstrapMetric records the outcome of a provisioning run.
func (c *Client) WriteBootstrapMetric(success bool, duration time.Duration, locations int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bootstrap_runs",
		map[string]string{
			"outcome": outcomeTag(success),
		},
		map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"locations":   locations,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

func outcomeTag(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// WriteBatteryLevel records one tablet's battery level as reported by
// the directory. Collected on device listing so charging trends per
// classroom are queryable.
func (c *Client) WriteBatteryLevel(udid string, locationID int, level float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_battery",
		map[string]string{
			"udid":        udid,
			"location_id": strconv.Itoa(locationID),
		},
		map[string]interface{}{
			"level": level,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
