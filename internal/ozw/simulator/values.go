package simulator

import (
	"reflect"
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// lookup resolves id to its node and value. Callers hold e.mu.
func (e *Engine) lookup(id ozw.ValueID) (*home, *node, *value, bool) {
	h, ok := e.homes[id.HomeID]
	if !ok {
		return nil, nil, nil, false
	}
	n, ok := h.nodes[id.NodeID]
	if !ok {
		return nil, nil, nil, false
	}
	v, ok := n.values[id]
	if !ok {
		return nil, nil, nil, false
	}
	return h, n, v, true
}

// Value implements ozw.ValueEngine. Write-only values cannot be read.
func (e *Engine) Value(id ozw.ValueID) (ozw.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, _, v, ok := e.lookup(id)
	if !ok || v.meta.WriteOnly {
		return nil, false
	}
	h.stats.reads++
	return ozw.Clone(v.current), true
}

// ValueString implements ozw.ValueEngine.
func (e *Engine) ValueString(id ozw.ValueID) (string, bool) {
	v, ok := e.Value(id)
	if !ok {
		return "", false
	}
	return v.Text(), true
}

// SetValue implements ozw.ValueEngine. Writes are refused for read-only
// values, mismatched types, bounded integers outside [Min, Max] and list
// selections that name no item. A write that changes the reading emits
// ValueChanged; one that does not emits ValueRefreshed.
func (e *Engine) SetValue(id ozw.ValueID, v ozw.Value) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, _, stored, ok := e.lookup(id)
	if !ok || v == nil {
		return false
	}
	next, accepted := stored.accept(id, v)
	if !accepted {
		h.stats.rejected++
		e.logger.Debug("write rejected", "value_id", id.String(), "value", v.String())
		return false
	}

	h.stats.writes++
	h.stats.frames++
	changed := !reflect.DeepEqual(stored.current, next)
	stored.current = next
	stored.meta.Set = true

	kind := ozw.NotificationValueRefreshed
	if changed {
		kind = ozw.NotificationValueChanged
	}
	e.emit(ozw.Notification{Type: kind, HomeID: id.HomeID, NodeID: id.NodeID, ValueID: id})
	return true
}

// accept validates v against the stored value and returns the reading to
// store.
func (stored *value) accept(id ozw.ValueID, v ozw.Value) (ozw.Value, bool) {
	if stored.meta.ReadOnly || v.Type() != id.Type {
		return nil, false
	}

	switch val := v.(type) {
	case ozw.ByteValue:
		return val, stored.inRange(int64(val))
	case ozw.ShortValue:
		return val, stored.inRange(int64(val))
	case ozw.IntValue:
		return val, stored.inRange(int64(val))
	case ozw.DecimalValue:
		if val.Precision == 0 {
			if current, ok := stored.current.(ozw.DecimalValue); ok {
				val.Precision = current.Precision
			}
		}
		return val, true
	case ozw.RawValue:
		if len(val) > ozw.MaxRawLength {
			return nil, false
		}
		return ozw.Clone(val), true
	case ozw.ListValue:
		return stored.selectItem(val)
	case ozw.ScheduleValue:
		return ozw.Clone(val), true
	default:
		return v, true
	}
}

// inRange reports whether n lies within the value's bounds. A value with
// Min and Max both zero is unbounded.
func (stored *value) inRange(n int64) bool {
	if stored.meta.Min == 0 && stored.meta.Max == 0 {
		return true
	}
	return n >= int64(stored.meta.Min) && n <= int64(stored.meta.Max)
}

// selectItem resolves a list write by label, or by item value when the
// label is empty.
func (stored *value) selectItem(want ozw.ListValue) (ozw.Value, bool) {
	current, ok := stored.current.(ozw.ListValue)
	if !ok {
		return nil, false
	}
	var i int
	if want.Selection != "" {
		i = slices.Index(current.Items, want.Selection)
	} else {
		i = slices.Index(current.Values, want.Index)
	}
	if i < 0 {
		return nil, false
	}
	next := ozw.Clone(current).(ozw.ListValue)
	next.Selection = current.Items[i]
	next.Index = current.Values[i]
	return next, true
}

// SetValueString implements ozw.ValueEngine. The text is parsed according
// to the value's type.
func (e *Engine) SetValueString(id ozw.ValueID, text string) bool {
	v, err := ozw.ParseValue(id.Type, text)
	if err != nil {
		return false
	}
	return e.SetValue(id, v)
}

// ValueMeta implements ozw.ValueEngine.
func (e *Engine) ValueMeta(id ozw.ValueID) (ozw.ValueMeta, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, v, ok := e.lookup(id)
	if !ok {
		return ozw.ValueMeta{}, false
	}
	return v.meta, true
}

func (e *Engine) updateMeta(id ozw.ValueID, update func(*ozw.ValueMeta)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, v, ok := e.lookup(id)
	if !ok {
		return false
	}
	update(&v.meta)
	return true
}

// SetValueLabel implements ozw.ValueEngine.
func (e *Engine) SetValueLabel(id ozw.ValueID, label string) bool {
	return e.updateMeta(id, func(m *ozw.ValueMeta) { m.Label = label })
}

// SetValueUnits implements ozw.ValueEngine.
func (e *Engine) SetValueUnits(id ozw.ValueID, units string) bool {
	return e.updateMeta(id, func(m *ozw.ValueMeta) { m.Units = units })
}

// SetValueHelp implements ozw.ValueEngine.
func (e *Engine) SetValueHelp(id ozw.ValueID, help string) bool {
	return e.updateMeta(id, func(m *ozw.ValueMeta) { m.Help = help })
}

// EnablePoll implements ozw.ValueEngine. An intensity of zero disables
// polling. PollingEnabled is emitted only when polling starts.
func (e *Engine) EnablePoll(id ozw.ValueID, intensity uint8) bool {
	if intensity == 0 {
		e.DisablePoll(id)
		_, known := e.ValueMeta(id)
		return known
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, v, ok := e.lookup(id)
	if !ok {
		return false
	}
	wasPolled := v.meta.Polled
	v.meta.Polled = true
	v.meta.PollIntensity = intensity
	if !wasPolled {
		e.emit(ozw.Notification{Type: ozw.NotificationPollingEnabled, HomeID: id.HomeID, NodeID: id.NodeID, ValueID: id})
		e.wakePoller()
	}
	return true
}

// DisablePoll implements ozw.ValueEngine. It reports false if the value
// is not polled.
func (e *Engine) DisablePoll(id ozw.ValueID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, v, ok := e.lookup(id)
	if !ok || !v.meta.Polled {
		return false
	}
	v.meta.Polled = false
	v.meta.PollIntensity = 0
	e.emit(ozw.Notification{Type: ozw.NotificationPollingDisabled, HomeID: id.HomeID, NodeID: id.NodeID, ValueID: id})
	return true
}

// SetPollIntensity implements ozw.ValueEngine. It does not start polling.
func (e *Engine) SetPollIntensity(id ozw.ValueID, intensity uint8) bool {
	return e.updateMeta(id, func(m *ozw.ValueMeta) { m.PollIntensity = intensity })
}

// PollInterval implements ozw.ValueEngine.
func (e *Engine) PollInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pollInterval
}

// SetPollInterval implements ozw.ValueEngine. Non-positive intervals are
// ignored.
func (e *Engine) SetPollInterval(interval time.Duration, betweenPolls bool) {
	if interval <= 0 {
		return
	}
	e.mu.Lock()
	e.pollInterval = interval
	e.betweenPolls = betweenPolls
	e.mu.Unlock()

	e.wakePoller()
}

// Report simulates a device reporting a new reading of its own accord,
// as when a switch is toggled by hand. Read-only values accept reports.
//
// Returns:
//   - error: ErrUnknownValue, or ozw.ErrInvalidValue when text does not parse
func (e *Engine) Report(id ozw.ValueID, text string) error {
	v, err := ozw.ParseValue(id.Type, text)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	h, _, stored, ok := e.lookup(id)
	if !ok {
		return ErrUnknownValue
	}
	readOnly := stored.meta.ReadOnly
	stored.meta.ReadOnly = false
	next, accepted := stored.accept(id, v)
	stored.meta.ReadOnly = readOnly
	if !accepted {
		return ozw.ErrRejected
	}

	h.stats.frames++
	stored.current = next
	stored.meta.Set = true
	e.emit(ozw.Notification{Type: ozw.NotificationValueChanged, HomeID: id.HomeID, NodeID: id.NodeID, ValueID: id})
	return nil
}
