// Package logging configures log/slog for the Gray Logic Z-Wave service.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Every entry carries service and version. Components add their own name,
// and node-scoped messages add home_id and node_id:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("zwave-bridge").Node(home, 5).Warn("node dead")
//
// The level can be changed while running with SetLevel. Never log the MQTT
// password or the InfluxDB token.
package logging
