// Package influxdb writes Z-Wave telemetry to InfluxDB v2.
//
// The bridge records numeric value reports as zwave_value points and its
// own counters as zwave_bridge points. Writes are batched by
// influxdb-client-go and never block; their errors arrive through the
// SetOnError callback. Connect and HealthCheck return errors directly.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics are optional
//	}
//	defer client.Close()
//	client.WriteValueMetric(influxdb.ValueMetric{HomeID: home, NodeID: 7, Label: "Temperature", Value: 21.5})
package influxdb
