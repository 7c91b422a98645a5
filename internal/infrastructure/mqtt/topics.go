package mqtt

import "strings"

// Root is the first level of every Gray Logic topic.
const Root = "graylogic"

// Topics builds the flat bridge topic scheme
// graylogic/{category}/{protocol}/{address} for one protocol.
//
//	t := mqtt.Topics{Protocol: "zwave"}
//	t.State("0xc0ffee01.5") // graylogic/state/zwave/0xc0ffee01.5
type Topics struct {
	Protocol string
}

func (t Topics) join(category string, rest ...string) string {
	return strings.Join(append([]string{Root, category, t.Protocol}, rest...), "/")
}

// State is the retained node state topic.
func (t Topics) State(address string) string { return t.join("state", address) }

// Command is where Core sends commands for one node.
func (t Topics) Command(address string) string { return t.join("command", address) }

// Ack carries the outcome of a command.
func (t Topics) Ack(address string) string { return t.join("ack", address) }

// Request is where Core sends a correlated request.
func (t Topics) Request(requestID string) string { return t.join("request", requestID) }

// Response answers the request with the same ID.
func (t Topics) Response(requestID string) string { return t.join("response", requestID) }

// Health is the retained bridge health topic.
func (t Topics) Health() string { return t.join("health") }

// Discovery announces nodes as they are found.
func (t Topics) Discovery() string { return t.join("discovery") }

// Commands matches every node's command topic.
func (t Topics) Commands() string { return t.Command("+") }

// Requests matches every request topic.
func (t Topics) Requests() string { return t.Request("+") }

// SystemStatus is the topic of the default Last Will.
func SystemStatus() string { return Root + "/system/status" }

// Concrete reports whether topic can be published to: non-empty and free of
// the + and # wildcards.
func Concrete(topic string) bool {
	return topic != "" && !strings.ContainsAny(topic, "+#")
}
