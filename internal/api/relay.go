package api

import (
	"context"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// NotificationEvent is the payload of a zwave.notification event. Fields
// are set only where the notification type carries them.
type NotificationEvent struct {
	Type     ozw.NotificationType `json:"type"`
	HomeID   string               `json:"home_id"`
	NodeID   uint8                `json:"node_id,omitempty"`
	Address  string               `json:"address,omitempty"`
	ValueID  string               `json:"value_id,omitempty"`
	Value    any                  `json:"value,omitempty"`
	Code     string               `json:"code,omitempty"`
	State    string               `json:"state,omitempty"`
	Error    string               `json:"error,omitempty"`
	Event    uint8                `json:"event,omitempty"`
	SceneID  uint8                `json:"scene_id,omitempty"`
	ButtonID uint8                `json:"button_id,omitempty"`
	GroupIdx uint8                `json:"group_idx,omitempty"`
}

// relayNotifications keeps the server inventory current and broadcasts
// every notification until ctx is cancelled or the manager is destroyed.
func (s *Server) relayNotifications(ctx context.Context, sub *ozw.Subscription) {
	defer close(s.relayDone)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-sub.C():
			if !ok {
				s.logger.Info("notification stream closed")
				return
			}
			s.inventory.OnNotification(n)
			s.hub.Broadcast(s.notificationEvent(n))
		}
	}
}

// notificationEvent renders n for clients. Value events carry the current
// reading unless the value is write-only.
func (s *Server) notificationEvent(n ozw.Notification) NotificationEvent {
	ev := NotificationEvent{
		Type:   n.Type,
		HomeID: zwave.FormatHomeID(n.HomeID),
		NodeID: n.NodeID,
	}
	if n.NodeID != 0 {
		ev.Address = zwave.NodeAddress(n.HomeID, n.NodeID)
	}
	if n.HasValueID() {
		ev.ValueID = n.ValueID.String()
	}

	switch n.Type {
	case ozw.NotificationValueAdded, ozw.NotificationValueChanged, ozw.NotificationValueRefreshed:
		if !s.manager.IsValueWriteOnly(n.ValueID) {
			if v, err := s.manager.Value(n.ValueID); err == nil {
				ev.Value = ozw.Native(v)
			}
		}
	case ozw.NotificationNotification:
		ev.Code = n.Code.String()
	case ozw.NotificationControllerCommand:
		ev.State = n.State.String()
		if n.Error != ozw.ControllerErrorNone {
			ev.Error = n.Error.String()
		}
	case ozw.NotificationNodeEvent:
		ev.Event = n.Event
	case ozw.NotificationSceneEvent:
		ev.SceneID = n.SceneID
	case ozw.NotificationCreateButton, ozw.NotificationDeleteButton,
		ozw.NotificationButtonOn, ozw.NotificationButtonOff:
		ev.ButtonID = n.ButtonID
	case ozw.NotificationGroup:
		ev.GroupIdx = n.GroupIdx
	}
	return ev
}
