package zwave

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	handlers      map[string]func(topic string, payload []byte)
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  slices.Clone(payload),
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.published)
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.subscriptions)
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// OnTopic returns the messages published to topic, oldest first.
func (m *MockMQTTClient) OnTopic(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// SimulateMessage delivers a message to every handler whose pattern
// matches topic.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	var matched []func(string, []byte)
	for pattern, handler := range m.handlers {
		if topicMatches(pattern, topic) {
			matched = append(matched, handler)
		}
	}
	m.mu.Unlock()
	for _, handler := range matched {
		handler(topic, payload)
	}
}

// topicMatches implements the MQTT "+" and "#" wildcards.
func topicMatches(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	for i, part := range p {
		if part == "#" {
			return true
		}
		if i >= len(t) || (part != "+" && part != t[i]) {
			return false
		}
	}
	return len(p) == len(t)
}

// decode unmarshals the payload of a published message.
func decode[T any](p mockPublish) T {
	var msg T
	_ = json.Unmarshal(p.Payload, &msg)
	return msg
}

type recordedValue struct {
	ID     ozw.ValueID
	Value  ozw.Value
	Source string
}

// fakeHistory implements HistorySink in memory.
type fakeHistory struct {
	mu      sync.Mutex
	values  []recordedValue
	nodes   map[ozw.NodeRef]ozw.NodeInfo
	deleted []ozw.NodeRef
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{nodes: make(map[ozw.NodeRef]ozw.NodeInfo)}
}

func (f *fakeHistory) RecordValue(_ context.Context, id ozw.ValueID, v ozw.Value, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, recordedValue{ID: id, Value: v, Source: source})
	return nil
}

func (f *fakeHistory) UpsertNode(_ context.Context, info ozw.NodeInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[ozw.NodeRef{HomeID: info.HomeID, NodeID: info.NodeID}] = info
	return nil
}

func (f *fakeHistory) DeleteNode(_ context.Context, homeID uint32, nodeID uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := ozw.NodeRef{HomeID: homeID, NodeID: nodeID}
	delete(f.nodes, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeHistory) recorded(id ozw.ValueID, source string) []ozw.Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ozw.Value
	for _, r := range f.values {
		if r.ID == id && r.Source == source {
			out = append(out, r.Value)
		}
	}
	return out
}

func (f *fakeHistory) node(ref ozw.NodeRef) (ozw.NodeInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.nodes[ref]
	return info, ok
}

func (f *fakeHistory) wasDeleted(ref ozw.NodeRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.deleted, ref)
}

// fakeMetrics implements MetricWriter in memory.
type fakeMetrics struct {
	mu     sync.Mutex
	values []influxdb.ValueMetric
	stats  []map[string]int64
}

func (f *fakeMetrics) WriteValueMetric(m influxdb.ValueMetric) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, m)
}

func (f *fakeMetrics) WriteBridgeStats(_ string, stats map[string]int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, stats)
}

func (f *fakeMetrics) valueMetrics(valueID string) []influxdb.ValueMetric {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []influxdb.ValueMetric
	for _, m := range f.values {
		if m.ValueID == valueID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMetrics) statCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stats)
}
