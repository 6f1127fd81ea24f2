// Package influxdb provides optional time-series telemetry for the nuvo
// daemon.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// This package records confirmed zone state transitions:
//   - zone_power: power on/off transitions per zone
//   - zone_volume: confirmed volume levels per zone
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // ErrDisabled when not configured; the daemon runs without telemetry
//	}
//	defer client.Close()
//
//	client.WriteZoneVolume(4, "zone.kitchen", 0.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors surface via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
