package ozw

import "fmt"

// NotificationType identifies an engine event.
type NotificationType uint8

// Notification types as numbered by the engine.
const (
	NotificationValueAdded NotificationType = iota
	NotificationValueRemoved
	NotificationValueChanged
	NotificationValueRefreshed
	NotificationGroup
	NotificationNodeNew
	NotificationNodeAdded
	NotificationNodeRemoved
	NotificationNodeProtocolInfo
	NotificationNodeNaming
	NotificationNodeEvent
	NotificationPollingDisabled
	NotificationPollingEnabled
	NotificationSceneEvent
	NotificationCreateButton
	NotificationDeleteButton
	NotificationButtonOn
	NotificationButtonOff
	NotificationDriverReady
	NotificationDriverFailed
	NotificationDriverReset
	NotificationEssentialNodeQueriesComplete
	NotificationNodeQueriesComplete
	NotificationAwakeNodesQueried
	NotificationAllNodesQueriedSomeDead
	NotificationAllNodesQueried
	NotificationNotification
	NotificationDriverRemoved
	NotificationControllerCommand
	NotificationNodeReset
	NotificationUserAlerts
	NotificationManufacturerSpecificDBReady
)

var notificationTypeNames = [...]string{
	"value_added",
	"value_removed",
	"value_changed",
	"value_refreshed",
	"group",
	"node_new",
	"node_added",
	"node_removed",
	"node_protocol_info",
	"node_naming",
	"node_event",
	"polling_disabled",
	"polling_enabled",
	"scene_event",
	"create_button",
	"delete_button",
	"button_on",
	"button_off",
	"driver_ready",
	"driver_failed",
	"driver_reset",
	"essential_node_queries_complete",
	"node_queries_complete",
	"awake_nodes_queried",
	"all_nodes_queried_some_dead",
	"all_nodes_queried",
	"notification",
	"driver_removed",
	"controller_command",
	"node_reset",
	"user_alerts",
	"manufacturer_specific_db_ready",
}

// String returns the snake_case event name.
func (t NotificationType) String() string {
	if int(t) < len(notificationTypeNames) {
		return notificationTypeNames[t]
	}
	return fmt.Sprintf("notification(%d)", uint8(t))
}

// MarshalText encodes the type as its name.
func (t NotificationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// NotificationCode qualifies NotificationNotification events.
type NotificationCode uint8

// Notification codes.
const (
	CodeMsgComplete NotificationCode = iota
	CodeTimeout
	CodeNoOperation
	CodeAwake
	CodeSleep
	CodeDead
	CodeAlive
)

var notificationCodeNames = [...]string{
	"msg_complete", "timeout", "no_operation", "awake", "sleep", "dead", "alive",
}

// String returns the snake_case code name.
func (c NotificationCode) String() string {
	if int(c) < len(notificationCodeNames) {
		return notificationCodeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// MarshalText encodes the code as its name.
func (c NotificationCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ControllerState is the progress of a controller command.
type ControllerState uint8

// Controller command states.
const (
	StateNormal ControllerState = iota
	StateStarting
	StateCancel
	StateError
	StateWaiting
	StateSleeping
	StateInProgress
	StateCompleted
	StateFailed
	StateNodeOK
	StateNodeFailed
)

var controllerStateNames = [...]string{
	"normal", "starting", "cancel", "error", "waiting", "sleeping",
	"in_progress", "completed", "failed", "node_ok", "node_failed",
}

// String returns the snake_case state name.
func (s ControllerState) String() string {
	if int(s) < len(controllerStateNames) {
		return controllerStateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText encodes the state as its name.
func (s ControllerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ControllerError explains a failed controller command.
type ControllerError uint8

// Controller command errors.
const (
	ControllerErrorNone ControllerError = iota
	ControllerErrorButtonNotFound
	ControllerErrorNodeNotFound
	ControllerErrorNotBridge
	ControllerErrorNotSUC
	ControllerErrorNotSecondary
	ControllerErrorNotPrimary
	ControllerErrorIsPrimary
	ControllerErrorNotFound
	ControllerErrorBusy
	ControllerErrorFailed
	ControllerErrorDisabled
	ControllerErrorOverflow
)

var controllerErrorNames = [...]string{
	"none", "button_not_found", "node_not_found", "not_bridge", "not_suc",
	"not_secondary", "not_primary", "is_primary", "not_found", "busy",
	"failed", "disabled", "overflow",
}

// String returns the snake_case error name.
func (e ControllerError) String() string {
	if int(e) < len(controllerErrorNames) {
		return controllerErrorNames[e]
	}
	return fmt.Sprintf("error(%d)", uint8(e))
}

// MarshalText encodes the error as its name.
func (e ControllerError) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Notification is one engine event.
//
// Fields beyond Type, HomeID and NodeID are meaningful only for the event
// types that carry them: ValueID for value events, GroupIdx for group
// events, Event for node and scene events, ButtonID for button events,
// Code for NotificationNotification, and State/Error for controller
// commands.
type Notification struct {
	Type     NotificationType `json:"type"`
	HomeID   uint32           `json:"home_id"`
	NodeID   uint8            `json:"node_id"`
	ValueID  ValueID          `json:"value_id"`
	GroupIdx uint8            `json:"group_idx,omitempty"`
	Event    uint8            `json:"event,omitempty"`
	ButtonID uint8            `json:"button_id,omitempty"`
	SceneID  uint8            `json:"scene_id,omitempty"`
	Code     NotificationCode `json:"code"`
	State    ControllerState  `json:"state"`
	Error    ControllerError  `json:"error"`
}

// HasValueID reports whether the event carries a value identity.
func (n Notification) HasValueID() bool {
	switch n.Type {
	case NotificationValueAdded, NotificationValueRemoved,
		NotificationValueChanged, NotificationValueRefreshed,
		NotificationPollingEnabled, NotificationPollingDisabled:
		return true
	default:
		return false
	}
}

// String renders the event for logs.
func (n Notification) String() string {
	switch {
	case n.HasValueID():
		return fmt.Sprintf("%s home=0x%08x node=%d value=%s", n.Type, n.HomeID, n.NodeID, n.ValueID)
	case n.Type == NotificationControllerCommand:
		return fmt.Sprintf("%s home=0x%08x node=%d state=%s error=%s", n.Type, n.HomeID, n.NodeID, n.State, n.Error)
	case n.Type == NotificationNotification:
		return fmt.Sprintf("%s home=0x%08x node=%d code=%s", n.Type, n.HomeID, n.NodeID, n.Code)
	default:
		return fmt.Sprintf("%s home=0x%08x node=%d", n.Type, n.HomeID, n.NodeID)
	}
}
