package ozw

// Creators receive variable-length results and build the caller's own
// representation of them. A creator is invoked synchronously, on the
// calling goroutine, exactly once when the call succeeds and never when it
// fails. The slice or string passed to a creator is owned by the creator.
type (
	// StringCreator receives decoded text.
	StringCreator[T any] func(text string) T

	// BytesCreator receives a byte sequence (raw values, neighbor lists).
	BytesCreator[T any] func(data []byte) T

	// Int32sCreator receives an int32 sequence (list item values).
	Int32sCreator[T any] func(values []int32) T

	// StringsCreator receives a string sequence (list item labels).
	StringsCreator[T any] func(items []string) T
)

// deliver hands a successful result to create. It never calls create when
// ok is false or create is nil.
func deliver[S, T any](result S, ok bool, create func(S) T) (T, bool) {
	var zero T
	if !ok || create == nil {
		return zero, false
	}
	return create(result), true
}

func owned[T any](v T) T { return v }

// ValueAsStringWith reads any readable value as text.
func ValueAsStringWith[T any](m *Manager, id ValueID, create StringCreator[T]) (T, bool) {
	var text string
	var ok bool
	if engine, live := m.liveEngine(); live && create != nil {
		text, ok = engine.ValueString(id)
	}
	return deliver(text, ok, create)
}

// ValueListSelectionStringWith reads the label of the selected list item.
func ValueListSelectionStringWith[T any](m *Manager, id ValueID, create StringCreator[T]) (T, bool) {
	list, ok := m.listValue(id, create != nil)
	return deliver(list.Selection, ok, create)
}

// ValueListItemsWith reads the labels of every list item.
func ValueListItemsWith[T any](m *Manager, id ValueID, create StringsCreator[T]) (T, bool) {
	list, ok := m.listValue(id, create != nil)
	return deliver(list.Items, ok, create)
}

// ValueListValuesWith reads the numeric value of every list item.
func ValueListValuesWith[T any](m *Manager, id ValueID, create Int32sCreator[T]) (T, bool) {
	list, ok := m.listValue(id, create != nil)
	return deliver(list.Values, ok, create)
}

// ValueAsRawWith reads a raw value.
func ValueAsRawWith[T any](m *Manager, id ValueID, create BytesCreator[T]) (T, bool) {
	var data []byte
	var ok bool
	if id.Type == TypeRaw && create != nil {
		var v Value
		if v, ok = m.engineValue(id); ok {
			var raw RawValue
			raw, ok = v.(RawValue)
			data = raw
		}
	}
	return deliver(data, ok, create)
}

// ValueLabelWith reads the value's label.
func ValueLabelWith[T any](m *Manager, id ValueID, create StringCreator[T]) (T, bool) {
	meta, ok := m.valueMeta(id, create != nil)
	return deliver(meta.Label, ok, create)
}

// ValueUnitsWith reads the value's units.
func ValueUnitsWith[T any](m *Manager, id ValueID, create StringCreator[T]) (T, bool) {
	meta, ok := m.valueMeta(id, create != nil)
	return deliver(meta.Units, ok, create)
}

// ValueHelpWith reads the value's help text.
func ValueHelpWith[T any](m *Manager, id ValueID, create StringCreator[T]) (T, bool) {
	meta, ok := m.valueMeta(id, create != nil)
	return deliver(meta.Help, ok, create)
}

// NodeStringWith reads one string field of a node.
func NodeStringWith[T any](m *Manager, homeID uint32, nodeID uint8, field NodeStringField, create StringCreator[T]) (T, bool) {
	var text string
	var ok bool
	if create != nil {
		var info NodeInfo
		if info, ok = m.Node(homeID, nodeID); ok {
			text, ok = field.pick(info)
		}
	}
	return deliver(text, ok, create)
}

// NodeNeighborsWith reads the node ids neighboring a node. A node with no
// neighbors yields an empty, successful result.
func NodeNeighborsWith[T any](m *Manager, homeID uint32, nodeID uint8, create BytesCreator[T]) (T, bool) {
	var neighbors []byte
	var ok bool
	if engine, live := m.liveEngine(); live && create != nil {
		neighbors, ok = engine.NodeNeighbors(homeID, nodeID)
		if ok && neighbors == nil {
			neighbors = []byte{}
		}
	}
	return deliver(neighbors, ok, create)
}

// NodeClassInformationWith reports whether a node implements a command
// class. On success the class name goes to create and the class version is
// returned alongside.
func NodeClassInformationWith[T any](m *Manager, homeID uint32, nodeID, commandClassID uint8, create StringCreator[T]) (T, uint8, bool) {
	var info ClassInfo
	var ok bool
	if engine, live := m.liveEngine(); live && create != nil {
		info, ok = engine.NodeClassInformation(homeID, nodeID, commandClassID)
	}
	name, ok := deliver(info.Name, ok, create)
	if !ok {
		return name, 0, false
	}
	return name, info.Version, true
}

// LibraryVersionWith reads the controller's library version.
func LibraryVersionWith[T any](m *Manager, homeID uint32, create StringCreator[T]) (T, bool) {
	return controllerString(m, homeID, Engine.LibraryVersion, create)
}

// LibraryTypeNameWith reads the controller's library type name.
func LibraryTypeNameWith[T any](m *Manager, homeID uint32, create StringCreator[T]) (T, bool) {
	return controllerString(m, homeID, Engine.LibraryTypeName, create)
}

// ControllerPathWith reads the controller's device path.
func ControllerPathWith[T any](m *Manager, homeID uint32, create StringCreator[T]) (T, bool) {
	return controllerString(m, homeID, Engine.ControllerPath, create)
}

func controllerString[T any](m *Manager, homeID uint32, read func(Engine, uint32) (string, bool), create StringCreator[T]) (T, bool) {
	var text string
	var ok bool
	if engine, live := m.liveEngine(); live && create != nil {
		text, ok = read(engine, homeID)
	}
	return deliver(text, ok, create)
}
