package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
	"github.com/nerrad567/gray-logic-zwave/internal/history"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw/simulator"
	"github.com/nerrad567/gray-logic-zwave/migrations"
)

const (
	testPath          = "/dev/ttyACM0"
	testHome   uint32 = 0xc0ffee01
	homeString        = "0xc0ffee01"

	waitFor  = 2 * time.Second
	waitTick = 5 * time.Millisecond
)

func vid(node, class, index uint8, t ozw.ValueType, g ozw.ValueGenre) ozw.ValueID {
	return ozw.ValueID{
		HomeID:         testHome,
		NodeID:         node,
		CommandClassID: class,
		Instance:       1,
		Index:          index,
		Type:           t,
		Genre:          g,
	}
}

var (
	switchID = vid(5, ozw.ClassSwitchBinary, 0, ozw.TypeBool, ozw.GenreUser)
	powerID  = vid(5, ozw.ClassMeter, 8, ozw.TypeDecimal, ozw.GenreUser)
	notifyID = vid(5, ozw.ClassConfiguration, 80, ozw.TypeList, ozw.GenreConfig)
	resetID  = vid(5, ozw.ClassConfiguration, 100, ozw.TypeButton, ozw.GenreConfig)
)

// nopMQTT satisfies the bridge's MQTT client without a broker.
type nopMQTT struct{}

func (nopMQTT) Publish(string, []byte, byte, bool) error { return nil }

func (nopMQTT) Subscribe(string, byte, func(topic string, payload []byte)) error { return nil }

func (nopMQTT) IsConnected() bool { return true }

type testEnv struct {
	mgr     *ozw.Manager
	engine  *simulator.Engine
	srv     *Server
	http    *httptest.Server
	history *history.SQLiteRepository
	bridge  *zwave.Bridge
}

type envOptions struct {
	noHistory bool
	bridge    bool
}

// newTestEnv serves the API over a simulator-backed manager. The
// controller is not online until online is called.
func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	ctx := context.Background()

	network, err := simulator.LoadNetwork("../ozw/simulator/testdata/network.yaml")
	require.NoError(t, err)
	engine, err := simulator.New(simulator.Options{Network: network, PollInterval: time.Hour})
	require.NoError(t, err)
	mgr, err := ozw.Create(ozw.Options{Engine: engine})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Destroy() })

	env := &testEnv{mgr: mgr, engine: engine}
	deps := Deps{
		Config: config.APIConfig{Host: "127.0.0.1"},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  logging.Discard(),
		Manager: mgr,
		Version: "test",
	}

	if !opts.noHistory {
		db, err := database.Open(ctx, database.Config{Path: ":memory:"})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
		require.NoError(t, db.Migrate(ctx, migrations.FS))
		env.history = history.NewSQLiteRepository(db.DB)
		deps.History = env.history
	}
	if opts.bridge {
		env.bridge, err = zwave.NewBridge(zwave.BridgeOptions{
			HealthInterval: time.Hour,
			Manager:        mgr,
			MQTTClient:     nopMQTT{},
		})
		require.NoError(t, err)
		require.NoError(t, env.bridge.Start(ctx))
		t.Cleanup(env.bridge.Stop)
		deps.Bridge = env.bridge
	}

	env.srv, err = New(deps)
	require.NoError(t, err)
	require.NoError(t, env.srv.startBackground(ctx))
	t.Cleanup(func() { _ = env.srv.Close() })

	env.http = httptest.NewServer(env.srv.buildRouter())
	t.Cleanup(env.http.Close)
	return env
}

// online brings the test controller up and waits until its initial query
// has been seen by the server (and the bridge, when there is one).
func (e *testEnv) online(t *testing.T) {
	t.Helper()
	require.True(t, e.mgr.AddDriver(testPath, ozw.InterfaceSerial))
	require.Eventually(t, func() bool {
		home, ok := e.srv.inventory.Home(testHome)
		if !ok || !home.Queried {
			return false
		}
		if e.bridge != nil {
			home, ok = e.bridge.Inventory().Home(testHome)
			return ok && home.Queried
		}
		return true
	}, waitFor, waitTick)
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.http.URL+"/api/v1"+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *testEnv) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	return e.do(t, http.MethodGet, path, nil)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Deps{Manager: &ozw.Manager{}})
	assert.Error(t, err, "logger required")

	_, err = New(Deps{Logger: logging.Discard()})
	assert.Error(t, err, "manager required")

	srv, err := New(Deps{Logger: logging.Discard(), Manager: &ozw.Manager{}})
	require.NoError(t, err)
	assert.Error(t, srv.HealthCheck(context.Background()), "not started")
	assert.NoError(t, srv.Close(), "close before start")
	assert.Error(t, srv.startBackground(context.Background()), "dead manager cannot be subscribed")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{bridge: true})

	status, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, true, body["manager_live"])
	assert.Contains(t, body, "bridge")

	require.NoError(t, env.mgr.Destroy())
	_, body = env.get(t, "/health")
	assert.Equal(t, "degraded", body["status"])
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)

	status, body := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	engine := body["engine"].(map[string]any)
	assert.Equal(t, true, engine["live"])
	assert.InDelta(t, 1, engine["homes"], 0)
	assert.InDelta(t, 4, engine["nodes"], 0)
	assert.Positive(t, engine["values"])
	assert.NotContains(t, body, "bridge")
}

func TestHomesAndController(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)

	status, body := env.get(t, "/zwave/homes")
	require.Equal(t, http.StatusOK, status)
	homes := body["homes"].([]any)
	require.Len(t, homes, 1)
	home := homes[0].(map[string]any)
	assert.Equal(t, homeString, home["home_id"])
	assert.Equal(t, true, home["queried"])
	assert.Equal(t, testPath, home["controller"].(map[string]any)["path"])

	status, body = env.get(t, "/zwave/homes/"+homeString+"/controller")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["primary"])
	assert.Equal(t, "Z-Wave 4.05", body["library_version"])
	assert.InDelta(t, 1, body["node_id"], 0)

	status, body = env.get(t, "/zwave/homes/0x00000042/controller")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, ErrCodeNotFound, body["code"])

	status, _ = env.get(t, "/zwave/homes/kitchen/controller")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListNodes(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	status, body := env.get(t, "/zwave/nodes")
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 0, body["count"], 0, "nothing before the driver is added")

	env.online(t)

	_, body = env.get(t, "/zwave/nodes")
	nodes := body["nodes"].([]any)
	require.Len(t, nodes, 4)
	var ids []float64
	for _, n := range nodes {
		ids = append(ids, n.(map[string]any)["node_id"].(float64))
	}
	assert.Equal(t, []float64{1, 5, 7, 9}, ids)

	kettle := nodes[1].(map[string]any)
	assert.Equal(t, "0xc0ffee01.5", kettle["address"])
	assert.Equal(t, "Kettle", kettle["name"])
	assert.Equal(t, "Kitchen", kettle["location"])
	assert.Equal(t, "Smart Switch 6", kettle["product"])
	assert.InDelta(t, 5, kettle["values"], 0)
	assert.Equal(t, true, nodes[3].(map[string]any)["failed"])

	_, body = env.get(t, "/zwave/nodes?home=0x0badf00d")
	assert.InDelta(t, 0, body["count"], 0)

	status, _ = env.get(t, "/zwave/nodes?home=nope")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetNode(t *testing.T) {
	env := newTestEnv(t, envOptions{bridge: true})
	env.online(t)

	status, body := env.get(t, "/zwave/homes/"+homeString+"/nodes/5")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0xc0ffee01.5", body["address"])
	assert.Equal(t, "Kettle", body["info"].(map[string]any)["name"])
	assert.Equal(t, []any{1.0, 7.0}, body["neighbors"])
	assert.Len(t, body["values"], 5)
	assert.Contains(t, body["values"], switchID.String())
	state := body["state"].(map[string]any)
	assert.Equal(t, "alive", state["status"])

	status, body = env.get(t, "/zwave/homes/"+homeString+"/nodes/9")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["neighbors"], "no neighbors is an empty list")

	tests := []struct {
		path string
		want int
	}{
		{"/zwave/homes/" + homeString + "/nodes/42", http.StatusNotFound},
		{"/zwave/homes/" + homeString + "/nodes/0", http.StatusBadRequest},
		{"/zwave/homes/" + homeString + "/nodes/300", http.StatusBadRequest},
		{"/zwave/homes/0/nodes/5", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, _ := env.get(t, tt.path)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestGetNodeClass(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)

	status, body := env.get(t, "/zwave/homes/"+homeString+"/nodes/5/classes/0x25")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "COMMAND_CLASS_SWITCH_BINARY", body["name"])
	assert.InDelta(t, 1, body["version"], 0)

	_, body = env.get(t, "/zwave/homes/"+homeString+"/nodes/5/classes/50")
	assert.InDelta(t, 3, body["version"], 0, "decimal class ids work too")

	status, _ = env.get(t, "/zwave/homes/"+homeString+"/nodes/5/classes/0x20")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.get(t, "/zwave/homes/"+homeString+"/nodes/5/classes/switch")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListValues(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)

	status, body := env.get(t, "/zwave/values")
	require.Equal(t, http.StatusOK, status)
	values := body["values"].([]any)
	require.NotEmpty(t, values)

	ids := make([]ozw.ValueID, 0, len(values))
	for _, v := range values {
		id, err := ozw.ParseValueID(v.(map[string]any)["value_id"].(string))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i].Less(ids[j]) }), "values are in ValueID order")

	_, body = env.get(t, "/zwave/values?node=5")
	assert.InDelta(t, 5, body["count"], 0)

	_, body = env.get(t, "/zwave/values?home="+homeString+"&node=5&genre=config")
	assert.InDelta(t, 3, body["count"], 0)

	status, _ = env.get(t, "/zwave/values?genre=fancy")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.get(t, "/zwave/values?node=999")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetValue(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)

	status, body := env.get(t, "/zwave/values/"+switchID.String())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Switch", body["label"])
	assert.Equal(t, "bool", body["type"])
	assert.Equal(t, "user", body["genre"])
	assert.Equal(t, "COMMAND_CLASS_SWITCH_BINARY", body["command_class"])
	assert.Equal(t, "0xc0ffee01.5", body["address"])
	assert.Equal(t, false, body["value"])

	_, body = env.get(t, "/zwave/values/"+powerID.String())
	assert.Equal(t, true, body["read_only"])
	assert.Equal(t, "W", body["units"])
	assert.InDelta(t, 12.5, body["value"], 0.001)

	_, body = env.get(t, "/zwave/values/"+resetID.String())
	assert.Equal(t, true, body["write_only"])
	assert.Nil(t, body["value"], "write-only values have no reading")

	unknown := vid(5, ozw.ClassSwitchBinary, 7, ozw.TypeBool, ozw.GenreUser)
	status, body = env.get(t, "/zwave/values/"+unknown.String())
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, ErrCodeUnknownValue, body["code"])

	status, _ = env.get(t, "/zwave/values/not-a-value")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSetValue(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)

	status, body := env.do(t, http.MethodPut, "/zwave/values/"+switchID.String(), map[string]any{"value": true})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, true, body["value"])

	assert.Eventually(t, func() bool {
		_, body := env.get(t, "/zwave/values/"+switchID.String())
		return body["value"] == true
	}, waitFor, waitTick)

	entries, err := env.history.History(context.Background(), switchID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, history.SourceCommand, entries[len(entries)-1].Source)
	assert.Equal(t, ozw.BoolValue(true), entries[len(entries)-1].Value)

	status, _ = env.do(t, http.MethodPut, "/zwave/values/"+notifyID.String(), map[string]any{"value": "Hail"})
	assert.Equal(t, http.StatusAccepted, status)

	tests := []struct {
		name string
		id   ozw.ValueID
		body any
		want int
		code string
	}{
		{"read-only", powerID, map[string]any{"value": 5}, http.StatusConflict, ErrCodeConflict},
		{"unparseable", switchID, map[string]any{"value": "maybe"}, http.StatusBadRequest, ErrCodeValidation},
		{"unknown list item", notifyID, map[string]any{"value": "Siren"}, http.StatusConflict, ErrCodeConflict},
		{"missing value", switchID, map[string]any{"val": true}, http.StatusBadRequest, ErrCodeBadRequest},
		{"null value", switchID, map[string]any{"value": nil}, http.StatusBadRequest, ErrCodeValidation},
		{"not json", switchID, "[", http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPut, "/zwave/values/"+tt.id.String(), tt.body)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestValueHistory(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)
	ctx := context.Background()

	require.NoError(t, env.history.RecordValue(ctx, switchID, ozw.BoolValue(false), history.SourceReport))
	require.NoError(t, env.history.RecordValue(ctx, switchID, ozw.BoolValue(true), history.SourceCommand))

	status, body := env.get(t, "/zwave/values/"+switchID.String()+"/history")
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 2, body["count"], 0)
	latest := body["history"].([]any)[0].(map[string]any)
	assert.Equal(t, true, latest["value"])
	assert.Equal(t, "command", latest["source"])

	_, body = env.get(t, "/zwave/values/"+switchID.String()+"/history?limit=1")
	assert.InDelta(t, 1, body["count"], 0)

	for _, limit := range []string{"0", "-3", "abc", "500"} {
		status, _ := env.get(t, "/zwave/values/"+switchID.String()+"/history?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, status, "limit=%s", limit)
	}
}

func TestValueHistoryDisabled(t *testing.T) {
	env := newTestEnv(t, envOptions{noHistory: true})

	status, body := env.get(t, "/zwave/values/"+switchID.String()+"/history")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, ErrCodeUnavailable, body["code"])
}

func TestNetworkOperationWithoutBridge(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.online(t)

	status, _ := env.do(t, http.MethodPost, "/zwave/homes/"+homeString+"/heal", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestNetworkOperations(t *testing.T) {
	env := newTestEnv(t, envOptions{bridge: true})
	env.online(t)

	tests := []struct {
		name      string
		operation string
		body      any
		want      int
		code      string
	}{
		{"heal", zwave.ActionHeal, map[string]any{"return_routes": true}, http.StatusOK, ""},
		{"test", zwave.ActionTest, nil, http.StatusOK, ""},
		{"heal node", zwave.ActionHealNode, map[string]any{"node_id": 5}, http.StatusOK, ""},
		{"refresh node", zwave.ActionRefreshNode, map[string]any{"node_id": "7"}, http.StatusOK, ""},
		{"add node", zwave.ActionAddNode, nil, http.StatusOK, ""},
		{"cancel", zwave.ActionCancel, nil, http.StatusOK, ""},
		{"unknown node", zwave.ActionHealNode, map[string]any{"node_id": 42}, http.StatusNotFound, zwave.ErrCodeDeviceUnreachable},
		{"missing node", zwave.ActionTestNode, map[string]any{}, http.StatusBadRequest, zwave.ErrCodeInvalidParameters},
		{"bad count", zwave.ActionTest, map[string]any{"count": 1000}, http.StatusBadRequest, zwave.ErrCodeInvalidParameters},
		{"unknown action", "format_disk", nil, http.StatusBadRequest, zwave.ErrCodeInvalidCommand},
		{"bad body", zwave.ActionHeal, "{", http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/zwave/homes/"+homeString+"/"+tt.operation, tt.body)
			assert.Equal(t, tt.want, status, "body: %v", body)
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
				return
			}
			assert.Equal(t, tt.operation, body["action"])
			assert.Equal(t, homeString, body["home_id"])
		})
	}

	status, body := env.do(t, http.MethodPost, "/zwave/homes/0x0badf00d/heal", nil)
	assert.Equal(t, http.StatusNotFound, status, "home not online")
	assert.Equal(t, zwave.ErrCodeDeviceUnreachable, body["code"])
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}
	// The allow list is read when the router is built.
	panel := httptest.NewServer(env.srv.buildRouter())
	defer panel.Close()

	req, err := http.NewRequest(http.MethodOptions, panel.URL+"/api/v1/zwave/nodes", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://panel.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://panel.local", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
