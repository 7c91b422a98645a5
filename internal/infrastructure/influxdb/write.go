package influxdb

import (
	"fmt"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by the Z-Wave service.
const (
	MeasurementValue  = "zwave_value"
	MeasurementBridge = "zwave_bridge"
)

// ValueMetric is one numeric Z-Wave value reading: a sensor level, meter
// total or dimmer position. Zero Time means now.
type ValueMetric struct {
	HomeID       uint32
	NodeID       uint8
	CommandClass string
	Instance     uint8
	Label        string
	Units        string
	ValueID      string
	Value        float64
	Time         time.Time
}

// Tags is the tag set of m. Every tag is bounded by the size of the network,
// value_id included.
func (m ValueMetric) Tags() map[string]string {
	tags := map[string]string{
		"home_id":       fmt.Sprintf("0x%08x", m.HomeID),
		"node_id":       strconv.Itoa(int(m.NodeID)),
		"command_class": m.CommandClass,
		"instance":      strconv.Itoa(int(m.Instance)),
		"label":         m.Label,
		"value_id":      m.ValueID,
	}
	if m.Units != "" {
		tags["units"] = m.Units
	}
	return tags
}

// WriteValueMetric queues m as a zwave_value point with a single "value"
// field.
func (c *Client) WriteValueMetric(m ValueMetric) {
	at := m.Time
	if at.IsZero() {
		at = time.Now()
	}
	c.write(write.NewPoint(MeasurementValue, m.Tags(), map[string]any{"value": m.Value}, at))
}

// WriteBridgeStats queues one zwave_bridge point tagged with bridgeID, one
// integer field per counter. An empty map writes nothing.
func (c *Client) WriteBridgeStats(bridgeID string, stats map[string]int64) {
	if len(stats) == 0 {
		return
	}
	point := write.NewPointWithMeasurement(MeasurementBridge).
		AddTag("bridge", bridgeID).
		SetTime(time.Now())
	for name, n := range stats {
		point.AddField(name, n)
	}
	c.write(point)
}

func (c *Client) write(p *write.Point) {
	if c.IsConnected() {
		c.writer.WritePoint(p)
	}
}
