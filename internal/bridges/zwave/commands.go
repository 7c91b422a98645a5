package zwave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/history"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

const (
	// defaultTestCount is the frames per node sent by the test actions.
	defaultTestCount = 1

	// maxTestCount bounds the test actions.
	maxTestCount = 100
)

// handleCommand processes a command message from Core addressed to one node.
func (b *Bridge) handleCommand(address string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"address", address,
		"command", cmd.Command)

	ref, err := ParseNodeAddress(address)
	if err != nil {
		b.publishAckError(cmd, address, ErrCodeInvalidParameters, err.Error())
		return
	}
	if !b.inventory.HasNode(ref.HomeID, ref.NodeID) {
		b.publishAckError(cmd, address, ErrCodeDeviceUnreachable,
			fmt.Sprintf("%v: %s", ErrUnknownNode, address))
		return
	}

	switch cmd.Command {
	case CommandSetValue:
		b.executeSetValue(cmd, ref, address)
	case CommandRefresh:
		if !b.manager.RequestNodeState(ref.HomeID, ref.NodeID) {
			b.publishAckError(cmd, address, ErrCodeRejected, "node state request refused")
			return
		}
		b.publishAck(NewAckMessage(cmd, AckAccepted, address))
	default:
		b.publishAckError(cmd, address, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
	}
}

// executeSetValue applies {"value_id": ..., "value": ...} to the node.
func (b *Bridge) executeSetValue(cmd CommandMessage, ref ozw.NodeRef, address string) {
	rawID, ok := cmd.Parameters["value_id"].(string)
	if !ok {
		b.publishAckError(cmd, address, ErrCodeInvalidParameters, "missing 'value_id' parameter")
		return
	}
	id, err := ozw.ParseValueID(rawID)
	if err != nil {
		b.publishAckError(cmd, address, ErrCodeInvalidParameters, err.Error())
		return
	}
	if id.HomeID != ref.HomeID || id.NodeID != ref.NodeID {
		b.publishAckError(cmd, address, ErrCodeInvalidParameters,
			fmt.Sprintf("value %s does not belong to %s", rawID, address))
		return
	}
	if !b.inventory.HasValue(id) {
		b.publishAckError(cmd, address, ErrCodeUnknownValue,
			fmt.Sprintf("unknown value: %s", rawID))
		return
	}

	raw, ok := cmd.Parameters["value"]
	if !ok {
		b.publishAckError(cmd, address, ErrCodeInvalidParameters, "missing 'value' parameter")
		return
	}
	v, err := ozw.FromNative(id.Type, raw)
	if err != nil {
		b.publishAckError(cmd, address, ErrCodeInvalidParameters, err.Error())
		return
	}

	if err := b.manager.SetValue(id, v); err != nil {
		b.publishAckError(cmd, address, setValueErrorCode(err), err.Error())
		return
	}

	ack := NewAckMessage(cmd, AckAccepted, address)
	ack.ValueID = id.String()
	b.publishAck(ack)

	if b.history != nil {
		ctx, cancel := context.WithTimeout(b.ctx, sinkTimeout)
		defer cancel()
		if err := b.history.RecordValue(ctx, id, v, history.SourceCommand); err != nil {
			b.stats.errors.Add(1)
			b.logError("failed to record command", err, "value_id", rawID)
		}
	}
}

// setValueErrorCode maps a SetValue failure to an ack error code.
func setValueErrorCode(err error) string {
	switch {
	case errors.Is(err, ozw.ErrRejected):
		return ErrCodeRejected
	case errors.Is(err, ozw.ErrWrongType), errors.Is(err, ozw.ErrInvalidValue):
		return ErrCodeInvalidParameters
	case errors.Is(err, ozw.ErrUnavailable):
		return ErrCodeUnknownValue
	default:
		return ErrCodeBridgeError
	}
}

func (b *Bridge) publishAck(ack AckMessage) {
	if err := b.publishJSON(AckTopic(ack.Address), ack, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	b.stats.errors.Add(1)
	b.logWarn("command failed",
		"command_id", cmd.ID,
		"address", address,
		"code", code,
		"message", message)
	b.publishAck(NewAckError(cmd, address, code, message))
}

// requestError is a failed request with its response code.
type requestError struct {
	code string
	err  error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// ErrorCode returns the response code carried by an Execute error, or
// ErrCodeBridgeError when it carries none.
func ErrorCode(err error) string {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.code
	}
	return ErrCodeBridgeError
}

func invalidParameters(format string, args ...any) error {
	return &requestError{code: ErrCodeInvalidParameters, err: fmt.Errorf(format, args...)}
}

func refused(action string, homeID uint32) error {
	return &requestError{
		code: ErrCodeRejected,
		err:  fmt.Errorf("controller %s refused %s", FormatHomeID(homeID), action),
	}
}

// handleRequest processes a request message from Core.
func (b *Bridge) handleRequest(topicID string, payload []byte) {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logError("failed to parse request", err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = topicID
	}

	b.logInfo("received request", "request_id", req.RequestID, "action", req.Action)

	data, err := b.Execute(req.Action, req.Parameters)

	resp := ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Success:   err == nil,
		Data:      data,
	}
	if err != nil {
		b.stats.errors.Add(1)
		code := ErrorCode(err)
		resp.Error = &ResponseError{Code: code, Message: err.Error()}
		b.logWarn("request failed", "request_id", req.RequestID, "code", code, "error", err)
	}

	if err := b.publishJSON(ResponseTopic(req.RequestID), resp, false); err != nil {
		b.logError("failed to publish response", err)
	}
}

// Execute runs a request action. It backs both MQTT requests and the
// console.
//
// Parameters:
//   - action: One of the Action* constants
//   - params: home_id, node_id, secure, return_routes, count as the action needs
//
// Returns:
//   - map[string]any: Response data
//   - error: Carries a response code when the request was invalid or refused
func (b *Bridge) Execute(action string, params map[string]any) (map[string]any, error) {
	if !b.started.Load() {
		return nil, ErrNotStarted
	}
	if action == ActionListNodes {
		return map[string]any{"nodes": b.DiscoveredNodes()}, nil
	}

	homeID, err := b.homeParam(params)
	if err != nil {
		return nil, err
	}
	secure, err := boolParam(params, "secure")
	if err != nil {
		return nil, err
	}
	returnRoutes, err := boolParam(params, "return_routes")
	if err != nil {
		return nil, err
	}
	count, err := countParam(params)
	if err != nil {
		return nil, err
	}

	var ok bool
	switch action {
	case ActionAddNode:
		ok = b.manager.AddNode(homeID, secure)
	case ActionRemoveNode:
		ok = b.manager.RemoveNode(homeID)
	case ActionCancel:
		ok = b.manager.CancelControllerCommand(homeID)
	case ActionHeal:
		ok = b.manager.HealNetwork(homeID, returnRoutes)
	case ActionTest:
		ok = b.manager.TestNetwork(homeID, count)
	case ActionSoftReset:
		ok = b.manager.SoftReset(homeID)
	case ActionHealNode, ActionTestNode, ActionRefreshNode, ActionRequestConfig, ActionReadNode:
		return b.executeNode(action, homeID, params, returnRoutes, count)
	default:
		return nil, &requestError{code: ErrCodeInvalidCommand, err: fmt.Errorf("unknown action: %s", action)}
	}

	if !ok {
		return nil, refused(action, homeID)
	}
	return map[string]any{"home_id": FormatHomeID(homeID), "action": action}, nil
}

func (b *Bridge) executeNode(action string, homeID uint32, params map[string]any, returnRoutes bool, count uint32) (map[string]any, error) {
	nodeID, err := nodeParam(params)
	if err != nil {
		return nil, err
	}
	if !b.inventory.HasNode(homeID, nodeID) {
		return nil, &requestError{
			code: ErrCodeDeviceUnreachable,
			err:  fmt.Errorf("%w: %s", ErrUnknownNode, NodeAddress(homeID, nodeID)),
		}
	}

	var ok bool
	switch action {
	case ActionHealNode:
		ok = b.manager.HealNetworkNode(homeID, nodeID, returnRoutes)
	case ActionTestNode:
		ok = b.manager.TestNetworkNode(homeID, nodeID, count)
	case ActionRefreshNode:
		ok = b.manager.RequestNodeState(homeID, nodeID)
	case ActionRequestConfig:
		ok = b.manager.RequestAllConfigParams(homeID, nodeID)
	case ActionReadNode:
		state, found := b.NodeState(ozw.NodeRef{HomeID: homeID, NodeID: nodeID})
		if !found {
			return nil, &requestError{code: ErrCodeDeviceUnreachable, err: ErrUnknownNode}
		}
		return map[string]any{"node": state}, nil
	}

	if !ok {
		return nil, refused(action, homeID)
	}
	return map[string]any{
		"home_id": FormatHomeID(homeID),
		"node_id": nodeID,
		"address": NodeAddress(homeID, nodeID),
		"action":  action,
	}, nil
}

// homeParam reads "home_id", defaulting to the only known home.
func (b *Bridge) homeParam(params map[string]any) (uint32, error) {
	raw, ok := params["home_id"]
	if !ok {
		homes := b.inventory.Homes()
		if len(homes) != 1 {
			return 0, &requestError{
				code: ErrCodeInvalidParameters,
				err:  fmt.Errorf("%w: home_id required with %d homes", ErrUnknownHome, len(homes)),
			}
		}
		return homes[0].HomeID, nil
	}

	var homeID uint32
	switch val := raw.(type) {
	case string:
		parsed, err := ParseHomeID(val)
		if err != nil {
			return 0, &requestError{code: ErrCodeInvalidParameters, err: err}
		}
		homeID = parsed
	case float64:
		if val <= 0 || val > float64(^uint32(0)) || val != float64(uint32(val)) {
			return 0, invalidParameters("invalid home_id: %v", val)
		}
		homeID = uint32(val)
	default:
		return 0, invalidParameters("invalid home_id: %v", raw)
	}

	if _, known := b.inventory.Home(homeID); !known {
		return 0, &requestError{
			code: ErrCodeDeviceUnreachable,
			err:  fmt.Errorf("%w: %s", ErrUnknownHome, FormatHomeID(homeID)),
		}
	}
	return homeID, nil
}

func nodeParam(params map[string]any) (uint8, error) {
	switch val := params["node_id"].(type) {
	case float64:
		if val < 1 || val > 255 || val != float64(uint8(val)) {
			return 0, invalidParameters("invalid node_id: %v", val)
		}
		return uint8(val), nil
	case string:
		n, err := strconv.ParseUint(val, 0, 8)
		if err != nil || n == 0 {
			return 0, invalidParameters("invalid node_id: %q", val)
		}
		return uint8(n), nil
	case nil:
		return 0, invalidParameters("missing 'node_id' parameter")
	default:
		return 0, invalidParameters("invalid node_id: %v", val)
	}
}

func boolParam(params map[string]any, key string) (bool, error) {
	switch val := params[key].(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, invalidParameters("invalid %s: %q", key, val)
		}
		return b, nil
	default:
		return false, invalidParameters("invalid %s: %v", key, val)
	}
}

func countParam(params map[string]any) (uint32, error) {
	switch val := params["count"].(type) {
	case nil:
		return defaultTestCount, nil
	case float64:
		if val < 1 || val > maxTestCount || val != float64(uint32(val)) {
			return 0, invalidParameters("count must be 1-%d, got %v", maxTestCount, val)
		}
		return uint32(val), nil
	default:
		return 0, invalidParameters("invalid count: %v", val)
	}
}
