package ozw

import (
	"fmt"
	"time"
)

// engineValue reads the current value when the Manager is live.
func (m *Manager) engineValue(id ValueID) (Value, bool) {
	engine, live := m.liveEngine()
	if !live {
		return nil, false
	}
	return engine.Value(id)
}

// listValue reads a list value. proceed=false short-circuits without
// touching the engine.
func (m *Manager) listValue(id ValueID, proceed bool) (ListValue, bool) {
	if !proceed || id.Type != TypeList {
		return ListValue{}, false
	}
	v, ok := m.engineValue(id)
	if !ok {
		return ListValue{}, false
	}
	list, ok := v.(ListValue)
	return list, ok
}

func (m *Manager) valueMeta(id ValueID, proceed bool) (ValueMeta, bool) {
	engine, live := m.liveEngine()
	if !live || !proceed {
		return ValueMeta{}, false
	}
	return engine.ValueMeta(id)
}

// Value returns the current reading of id as a tagged variant.
//
// Returns:
//   - Value: one of the concrete value types in this package
//   - error: ErrNoManager, or ErrUnavailable when id does not resolve to a
//     readable value
func (m *Manager) Value(id ValueID) (Value, error) {
	engine, live := m.liveEngine()
	if !live {
		return nil, ErrNoManager
	}
	v, ok := engine.Value(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, id)
	}
	return v, nil
}

// SetValue writes v to id.
//
// Returns:
//   - error: ErrNoManager, ErrWrongType when v's type differs from id.Type,
//     or ErrRejected when the engine refuses the write
func (m *Manager) SetValue(id ValueID, v Value) error {
	engine, live := m.liveEngine()
	if !live {
		return ErrNoManager
	}
	if v == nil || v.Type() != id.Type {
		return fmt.Errorf("%w: %s is %s", ErrWrongType, id, id.Type)
	}
	if raw, ok := v.(RawValue); ok && len(raw) > MaxRawLength {
		return fmt.Errorf("%w: raw value of %d bytes", ErrRejected, len(raw))
	}
	if !engine.SetValue(id, v) {
		return fmt.Errorf("%w: %s", ErrRejected, id)
	}
	return nil
}

// ValueAsBool reads a bool or button value.
func (m *Manager) ValueAsBool(id ValueID) (bool, bool) {
	if id.Type != TypeBool && id.Type != TypeButton {
		return false, false
	}
	v, ok := m.engineValue(id)
	if !ok {
		return false, false
	}
	switch val := v.(type) {
	case BoolValue:
		return bool(val), true
	case ButtonValue:
		return bool(val), true
	default:
		return false, false
	}
}

// ValueAsByte reads a byte value.
func (m *Manager) ValueAsByte(id ValueID) (uint8, bool) {
	return scalar[ByteValue, uint8](m, id, TypeByte)
}

// ValueAsShort reads a short value.
func (m *Manager) ValueAsShort(id ValueID) (int16, bool) {
	return scalar[ShortValue, int16](m, id, TypeShort)
}

// ValueAsInt reads an int value.
func (m *Manager) ValueAsInt(id ValueID) (int32, bool) {
	return scalar[IntValue, int32](m, id, TypeInt)
}

// ValueAsFloat reads a decimal value.
func (m *Manager) ValueAsFloat(id ValueID) (float32, bool) {
	d, ok := m.decimal(id)
	return d.Value, ok
}

// ValueFloatPrecision reads the number of fractional digits of a decimal value.
func (m *Manager) ValueFloatPrecision(id ValueID) (uint8, bool) {
	d, ok := m.decimal(id)
	return d.Precision, ok
}

func (m *Manager) decimal(id ValueID) (DecimalValue, bool) {
	if id.Type != TypeDecimal {
		return DecimalValue{}, false
	}
	v, ok := m.engineValue(id)
	if !ok {
		return DecimalValue{}, false
	}
	d, ok := v.(DecimalValue)
	return d, ok
}

// ValueListSelectionValue reads the numeric value of the selected list item.
func (m *Manager) ValueListSelectionValue(id ValueID) (int32, bool) {
	list, ok := m.listValue(id, true)
	return list.Index, ok
}

// scalar reads a value whose variant is a named scalar type V with
// underlying type T.
func scalar[V interface {
	Value
	~uint8 | ~int16 | ~int32
}, T ~uint8 | ~int16 | ~int32](m *Manager, id ValueID, want ValueType) (T, bool) {
	if id.Type != want {
		return 0, false
	}
	v, ok := m.engineValue(id)
	if !ok {
		return 0, false
	}
	typed, ok := v.(V)
	if !ok {
		return 0, false
	}
	return T(typed), true
}

// ValueAsString reads any readable value as text.
func (m *Manager) ValueAsString(id ValueID) (string, bool) {
	return ValueAsStringWith(m, id, owned[string])
}

// ValueListSelectionString reads the label of the selected list item.
func (m *Manager) ValueListSelectionString(id ValueID) (string, bool) {
	return ValueListSelectionStringWith(m, id, owned[string])
}

// ValueListItems reads every list item label.
func (m *Manager) ValueListItems(id ValueID) ([]string, bool) {
	return ValueListItemsWith(m, id, owned[[]string])
}

// ValueListValues reads every list item value.
func (m *Manager) ValueListValues(id ValueID) ([]int32, bool) {
	return ValueListValuesWith(m, id, owned[[]int32])
}

// ValueAsRaw reads a raw value.
func (m *Manager) ValueAsRaw(id ValueID) ([]byte, bool) {
	return ValueAsRawWith(m, id, owned[[]byte])
}

// ValueLabel reads the value's label.
func (m *Manager) ValueLabel(id ValueID) (string, bool) {
	return ValueLabelWith(m, id, owned[string])
}

// ValueUnits reads the value's units.
func (m *Manager) ValueUnits(id ValueID) (string, bool) {
	return ValueUnitsWith(m, id, owned[string])
}

// ValueHelp reads the value's help text.
func (m *Manager) ValueHelp(id ValueID) (string, bool) {
	return ValueHelpWith(m, id, owned[string])
}

// ValueMeta returns all metadata of a value in one call.
func (m *Manager) ValueMeta(id ValueID) (ValueMeta, bool) {
	return m.valueMeta(id, true)
}

// ValueMin returns the lower bound of a bounded value.
func (m *Manager) ValueMin(id ValueID) (int32, bool) {
	meta, ok := m.valueMeta(id, true)
	return meta.Min, ok
}

// ValueMax returns the upper bound of a bounded value.
func (m *Manager) ValueMax(id ValueID) (int32, bool) {
	meta, ok := m.valueMeta(id, true)
	return meta.Max, ok
}

// IsValueReadOnly reports whether writes to id are refused.
func (m *Manager) IsValueReadOnly(id ValueID) bool {
	meta, ok := m.valueMeta(id, true)
	return ok && meta.ReadOnly
}

// IsValueWriteOnly reports whether reads of id are refused.
func (m *Manager) IsValueWriteOnly(id ValueID) bool {
	meta, ok := m.valueMeta(id, true)
	return ok && meta.WriteOnly
}

// IsValueSet reports whether id has received a reading or a write.
func (m *Manager) IsValueSet(id ValueID) bool {
	meta, ok := m.valueMeta(id, true)
	return ok && meta.Set
}

// IsValuePolled reports whether id is polled.
func (m *Manager) IsValuePolled(id ValueID) bool {
	meta, ok := m.valueMeta(id, true)
	return ok && meta.Polled
}

// SetValueLabel replaces the value's label.
func (m *Manager) SetValueLabel(id ValueID, label string) bool {
	engine, live := m.liveEngine()
	return live && engine.SetValueLabel(id, label)
}

// SetValueUnits replaces the value's units.
func (m *Manager) SetValueUnits(id ValueID, units string) bool {
	engine, live := m.liveEngine()
	return live && engine.SetValueUnits(id, units)
}

// SetValueHelp replaces the value's help text.
func (m *Manager) SetValueHelp(id ValueID, help string) bool {
	engine, live := m.liveEngine()
	return live && engine.SetValueHelp(id, help)
}

// setTyped forwards a write after checking id's declared type.
func (m *Manager) setTyped(id ValueID, v Value, allowed ...ValueType) bool {
	engine, live := m.liveEngine()
	if !live {
		return false
	}
	for _, t := range allowed {
		if id.Type == t {
			return engine.SetValue(id, v)
		}
	}
	return false
}

// SetValueBool writes a bool or button value.
func (m *Manager) SetValueBool(id ValueID, value bool) bool {
	if id.Type == TypeButton {
		return m.setTyped(id, ButtonValue(value), TypeButton)
	}
	return m.setTyped(id, BoolValue(value), TypeBool)
}

// SetValueByte writes a byte value.
func (m *Manager) SetValueByte(id ValueID, value uint8) bool {
	return m.setTyped(id, ByteValue(value), TypeByte)
}

// SetValueFloat writes a decimal value, keeping its current precision.
func (m *Manager) SetValueFloat(id ValueID, value float32) bool {
	return m.setTyped(id, DecimalValue{Value: value}, TypeDecimal)
}

// SetValueInt writes an int value.
func (m *Manager) SetValueInt(id ValueID, value int32) bool {
	return m.setTyped(id, IntValue(value), TypeInt)
}

// SetValueShort writes a short value.
func (m *Manager) SetValueShort(id ValueID, value int16) bool {
	return m.setTyped(id, ShortValue(value), TypeShort)
}

// SetValueString writes text to a value of any type; the engine parses it
// according to the value's type.
func (m *Manager) SetValueString(id ValueID, value string) bool {
	engine, live := m.liveEngine()
	return live && engine.SetValueString(id, value)
}

// SetValueRaw writes a raw value of at most MaxRawLength bytes.
func (m *Manager) SetValueRaw(id ValueID, value []byte) bool {
	if len(value) > MaxRawLength {
		return false
	}
	data := make(RawValue, len(value))
	copy(data, value)
	return m.setTyped(id, data, TypeRaw)
}

// SetValueListSelection selects the list item with the given label. An
// empty label names no item and fails.
func (m *Manager) SetValueListSelection(id ValueID, selection string) bool {
	if selection == "" {
		return false
	}
	return m.setTyped(id, ListValue{Selection: selection}, TypeList)
}

// SetValueListSelectionValue selects the list item whose numeric value is value.
func (m *Manager) SetValueListSelectionValue(id ValueID, value int32) bool {
	return m.setTyped(id, ListValue{Index: value}, TypeList)
}

// EnablePoll polls id every intensity-th poll pass. Intensity 0 disables.
func (m *Manager) EnablePoll(id ValueID, intensity uint8) bool {
	engine, live := m.liveEngine()
	return live && engine.EnablePoll(id, intensity)
}

// DisablePoll stops polling id.
func (m *Manager) DisablePoll(id ValueID) bool {
	engine, live := m.liveEngine()
	return live && engine.DisablePoll(id)
}

// IsPolled reports whether id is polled.
func (m *Manager) IsPolled(id ValueID) bool {
	return m.IsValuePolled(id)
}

// SetPollIntensity changes how often id is polled.
func (m *Manager) SetPollIntensity(id ValueID, intensity uint8) bool {
	engine, live := m.liveEngine()
	return live && engine.SetPollIntensity(id, intensity)
}

// PollIntensity returns how often id is polled.
func (m *Manager) PollIntensity(id ValueID) (uint8, bool) {
	meta, ok := m.valueMeta(id, true)
	return meta.PollIntensity, ok
}

// PollInterval returns the engine's poll interval.
func (m *Manager) PollInterval() time.Duration {
	engine, live := m.liveEngine()
	if !live {
		return 0
	}
	return engine.PollInterval()
}

// SetPollInterval changes the engine's poll interval. When betweenPolls is
// true the interval separates individual polls instead of complete passes.
func (m *Manager) SetPollInterval(interval time.Duration, betweenPolls bool) bool {
	engine, live := m.liveEngine()
	if !live {
		return false
	}
	engine.SetPollInterval(interval, betweenPolls)
	return true
}
