// Package zwave implements the Z-Wave bridge for Gray Logic.
//
// The bridge registers itself as a watcher on the ozw manager and translates
// in both directions:
//
//   - Engine notifications become retained node state on
//     graylogic/state/zwave/{home}.{node}, discovery announcements on
//     graylogic/discovery/zwave and periodic health on graylogic/health/zwave.
//   - Commands on graylogic/command/zwave/{home}.{node} become value writes,
//     acknowledged on graylogic/ack/zwave/{home}.{node}.
//   - Requests on graylogic/request/zwave/{id} drive controller operations
//     (inclusion, exclusion, heal, network test, refresh, soft reset) and are
//     answered on graylogic/response/zwave/{id}.
//
// Node addresses are "0x<home id>.<node id>", for example "0xc0ffee01.5".
//
// Notifications are handed from the engine goroutine to the bridge's own
// worker through a bounded queue. When the queue is full notifications are
// dropped and counted in the health statistics.
//
// Readings can optionally be persisted to a HistorySink (the SQLite history
// repository) and written to a MetricWriter (InfluxDB).
package zwave
