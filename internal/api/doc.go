// Package api provides the HTTP REST API and WebSocket server for the
// Z-Wave layer.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Routes
//
// All routes live under /api/v1:
//
//	GET  /health                                  liveness, bridge statistics
//	GET  /metrics                                 runtime, hub and engine counters
//	GET  /zwave/homes                             known controllers
//	GET  /zwave/homes/{home}/controller           controller details
//	POST /zwave/homes/{home}/{operation}          network operation (add_node, heal, ...)
//	GET  /zwave/nodes                             nodes in (home, node) order
//	GET  /zwave/homes/{home}/nodes/{node}         node info, neighbors and values
//	GET  /zwave/homes/{home}/nodes/{node}/classes/{cc}
//	GET  /zwave/values                            values in ValueID order
//	GET  /zwave/values/{vid}                      one value with metadata
//	PUT  /zwave/values/{vid}                      write a value
//	GET  /zwave/values/{vid}/history              recorded readings
//	GET  /ws                                      notification stream
//
// Home ids are accepted as "0xc0ffee01" or decimal. Value ids use the
// "{home}:{packed}" form produced by ozw.ValueID.String.
//
// # WebSocket
//
// A client sends {"type":"subscribe","payload":{...}} with an optional
// filter of homes, node addresses and notification type names, then
// receives matching engine notifications as "zwave.notification" events.
// Subscribing again replaces the filter; unsubscribe stops the stream.
// A slow client misses events rather than stalling others.
//
// # Graceful Degradation
//
// The bridge and history repository are optional. Without the bridge,
// network operations answer 503; without history, the history route does.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
