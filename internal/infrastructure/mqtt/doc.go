// Package mqtt connects the Z-Wave bridge to the Gray Logic broker.
//
// The bridge talks to Core over MQTT only:
//
//	Z-Wave engine <-> zwave bridge <-> broker <-> Gray Logic Core
//
// Client adds to paho: topic and QoS validation, subscriptions replayed
// after every reconnect, a caller-supplied Last Will (the bridge's offline
// health message) and handlers that cannot crash the process.
//
//	t := mqtt.Topics{Protocol: "zwave"}
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: t.Health(), Payload: offline})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	err = client.Subscribe(t.Commands(), 1, handleCommand)
//
// Enable broker.tls outside development; anonymous access is for local
// brokers only.
package mqtt
