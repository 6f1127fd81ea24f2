package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteZonePower records a zone power transition.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - zoneID: Amplifier zone number
//   - entityID: Stable zone entity id (e.g., "zone.kitchen")
//   - on: Whether the zone is now powered on
func (c *Client) WriteZonePower(zoneID int, entityID string, on bool) {
	if !c.IsConnected() {
		return
	}

	value := 0.0
	if on {
		value = 1.0
	}

	point := write.NewPoint(
		"zone_power",
		map[string]string{
			"zone_id":   strconv.Itoa(zoneID),
			"entity_id": entityID,
		},
		map[string]interface{}{
			"on":    on,
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteZoneVolume records a confirmed zone volume level.
//
// Parameters:
//   - zoneID: Amplifier zone number
//   - entityID: Stable zone entity id
//   - level: Normalized volume in [0.0, 1.0]
func (c *Client) WriteZoneVolume(zoneID int, entityID string, level float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"zone_volume",
		map[string]string{
			"zone_id":   strconv.Itoa(zoneID),
			"entity_id": entityID,
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
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
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
