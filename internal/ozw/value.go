package ozw

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Value is the current reading of one data point.
//
// Every concrete type in this package implements Value; callers switch on
// the concrete type:
//
//	switch v := value.(type) {
//	case ozw.BoolValue:
//	case ozw.DecimalValue:
//	case ozw.ListValue:
//	}
type Value interface {
	// Type returns the runtime type tag matching ValueID.Type.
	Type() ValueType

	// Text returns the engine's plain text rendering, as returned by
	// Manager.ValueAsString.
	Text() string

	// String returns a display rendering (strings and list selections quoted).
	String() string

	isValue()
}

// BoolValue is an on/off value.
type BoolValue bool

// ByteValue is an unsigned 8-bit value.
type ByteValue uint8

// IntValue is a signed 32-bit value.
type IntValue int32

// ShortValue is a signed 16-bit value.
type ShortValue int16

// StringValue is a text value.
type StringValue string

// ButtonValue is a momentary value; true while pressed.
type ButtonValue bool

// RawValue is an opaque byte sequence. The engine accepts at most
// MaxRawLength bytes.
type RawValue []byte

// MaxRawLength is the longest raw value that can cross the boundary.
const MaxRawLength = 255

// DecimalValue is a fixed-precision decimal reading such as a temperature.
type DecimalValue struct {
	Value float32 `json:"value" cbor:"1,keyasint"`

	// Precision is the number of digits after the decimal point. A write
	// with Precision 0 keeps the precision the engine already reports.
	Precision uint8 `json:"precision" cbor:"2,keyasint"`
}

// ListValue is a selection from a fixed set of labelled items.
type ListValue struct {
	// Selection is the label of the selected item.
	Selection string `json:"selection" cbor:"1,keyasint"`

	// Index is the numeric value of the selected item. Writes select by
	// Selection, or by Index when Selection is empty.
	Index int32 `json:"index" cbor:"2,keyasint"`

	// Items are the item labels, in engine order.
	Items []string `json:"items,omitempty" cbor:"3,keyasint,omitempty"`

	// Values are the numeric item values, parallel to Items.
	Values []int32 `json:"values,omitempty" cbor:"4,keyasint,omitempty"`
}

// SwitchPoint is one entry of a climate control schedule.
type SwitchPoint struct {
	Hours   uint8 `json:"hours" yaml:"hours" cbor:"1,keyasint"`
	Minutes uint8 `json:"minutes" yaml:"minutes" cbor:"2,keyasint"`
	Setback int8  `json:"setback" yaml:"setback" cbor:"3,keyasint"`
}

// ScheduleValue is a climate control schedule.
type ScheduleValue struct {
	Points []SwitchPoint `json:"points" cbor:"1,keyasint"`
}

// Type implementations.
func (BoolValue) Type() ValueType     { return TypeBool }
func (ByteValue) Type() ValueType     { return TypeByte }
func (IntValue) Type() ValueType      { return TypeInt }
func (ShortValue) Type() ValueType    { return TypeShort }
func (StringValue) Type() ValueType   { return TypeString }
func (ButtonValue) Type() ValueType   { return TypeButton }
func (RawValue) Type() ValueType      { return TypeRaw }
func (DecimalValue) Type() ValueType  { return TypeDecimal }
func (ListValue) Type() ValueType     { return TypeList }
func (ScheduleValue) Type() ValueType { return TypeSchedule }

func (BoolValue) isValue()     {}
func (ByteValue) isValue()     {}
func (IntValue) isValue()      {}
func (ShortValue) isValue()    {}
func (StringValue) isValue()   {}
func (ButtonValue) isValue()   {}
func (RawValue) isValue()      {}
func (DecimalValue) isValue()  {}
func (ListValue) isValue()     {}
func (ScheduleValue) isValue() {}

func (v BoolValue) Text() string   { return strconv.FormatBool(bool(v)) }
func (v ByteValue) Text() string   { return strconv.FormatUint(uint64(v), 10) }
func (v IntValue) Text() string    { return strconv.FormatInt(int64(v), 10) }
func (v ShortValue) Text() string  { return strconv.FormatInt(int64(v), 10) }
func (v StringValue) Text() string { return string(v) }
func (v ButtonValue) Text() string { return strconv.FormatBool(bool(v)) }
func (v ListValue) Text() string   { return v.Selection }

// Text renders the bytes as space separated hex pairs ("0x01 0xff").
func (v RawValue) Text() string {
	parts := make([]string, len(v))
	for i, b := range v {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, " ")
}

// Text renders the decimal with exactly Precision fractional digits.
func (v DecimalValue) Text() string {
	return strconv.FormatFloat(float64(v.Value), 'f', int(v.Precision), 32)
}

// Text renders each switch point as "HH:MM setback".
func (v ScheduleValue) Text() string {
	parts := make([]string, len(v.Points))
	for i, p := range v.Points {
		parts[i] = fmt.Sprintf("%02d:%02d %d", p.Hours, p.Minutes, p.Setback)
	}
	return strings.Join(parts, ", ")
}

func (v BoolValue) String() string     { return v.Text() }
func (v ByteValue) String() string     { return v.Text() }
func (v IntValue) String() string      { return v.Text() }
func (v ShortValue) String() string    { return v.Text() }
func (v StringValue) String() string   { return strconv.Quote(string(v)) }
func (v ButtonValue) String() string   { return v.Text() }
func (v DecimalValue) String() string  { return v.Text() }
func (v ListValue) String() string     { return strconv.Quote(v.Selection) }
func (v RawValue) String() string      { return "0x" + hex.EncodeToString(v) }
func (v ScheduleValue) String() string { return "null" }

// Native returns the value as a plain Go value suitable for JSON encoding.
// Raw values become hex strings and list values their selected label.
func Native(v Value) any {
	switch val := v.(type) {
	case BoolValue:
		return bool(val)
	case ButtonValue:
		return bool(val)
	case ByteValue:
		return uint8(val)
	case IntValue:
		return int32(val)
	case ShortValue:
		return int16(val)
	case StringValue:
		return string(val)
	case DecimalValue:
		f, err := strconv.ParseFloat(val.Text(), 64)
		if err != nil {
			return float64(val.Value)
		}
		return f
	case ListValue:
		return val.Selection
	case RawValue:
		return hex.EncodeToString(val)
	case ScheduleValue:
		return val.Points
	default:
		return nil
	}
}

// Clone returns a copy of v that shares no memory with it.
func Clone(v Value) Value {
	switch val := v.(type) {
	case RawValue:
		return slices.Clone(val)
	case ListValue:
		val.Items = slices.Clone(val.Items)
		val.Values = slices.Clone(val.Values)
		return val
	case ScheduleValue:
		val.Points = slices.Clone(val.Points)
		return val
	default:
		return v
	}
}

// ParseValue parses text as a value of type t.
//
// Accepted forms:
//   - bool, button: anything strconv.ParseBool accepts
//   - byte, short, int: decimal or 0x-prefixed integers within range
//   - decimal: a float; Precision is the number of digits after the point
//   - string: the text unchanged
//   - list: the item label (resolved by the engine)
//   - raw: hex digits, optionally 0x-prefixed and space separated
func ParseValue(t ValueType, text string) (Value, error) {
	trimmed := strings.TrimSpace(text)
	switch t {
	case TypeBool, TypeButton:
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidValue, t, text)
		}
		if t == TypeButton {
			return ButtonValue(b), nil
		}
		return BoolValue(b), nil
	case TypeByte:
		n, err := strconv.ParseUint(trimmed, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: byte %q", ErrInvalidValue, text)
		}
		return ByteValue(n), nil
	case TypeShort:
		n, err := strconv.ParseInt(trimmed, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: short %q", ErrInvalidValue, text)
		}
		return ShortValue(n), nil
	case TypeInt:
		n, err := strconv.ParseInt(trimmed, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: int %q", ErrInvalidValue, text)
		}
		return IntValue(n), nil
	case TypeDecimal:
		f, err := strconv.ParseFloat(trimmed, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: decimal %q", ErrInvalidValue, text)
		}
		var precision uint8
		if _, frac, ok := strings.Cut(trimmed, "."); ok {
			precision = uint8(min(len(frac), 9))
		}
		return DecimalValue{Value: float32(f), Precision: precision}, nil
	case TypeString:
		return StringValue(text), nil
	case TypeList:
		if trimmed == "" {
			return nil, fmt.Errorf("%w: empty list selection", ErrInvalidValue)
		}
		return ListValue{Selection: trimmed}, nil
	case TypeRaw:
		return parseRaw(trimmed)
	default:
		return nil, fmt.Errorf("%w: cannot parse %s", ErrWrongType, t)
	}
}

// parseRaw accepts "0102ff", "0x0102ff" and "0x01 0x02 0xff".
func parseRaw(text string) (Value, error) {
	var b strings.Builder
	for _, field := range strings.Fields(text) {
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
		b.WriteString(field)
	}
	data, err := hex.DecodeString(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: raw %q", ErrInvalidValue, text)
	}
	if len(data) > MaxRawLength {
		return nil, fmt.Errorf("%w: raw value longer than %d bytes", ErrInvalidValue, MaxRawLength)
	}
	return RawValue(data), nil
}

// FromNative converts a decoded JSON value to a Value of type t. Strings
// are parsed with ParseValue; JSON numbers and booleans are formatted first.
func FromNative(t ValueType, raw any) (Value, error) {
	switch val := raw.(type) {
	case string:
		return ParseValue(t, val)
	case bool:
		return ParseValue(t, strconv.FormatBool(val))
	case float64:
		return ParseValue(t, strconv.FormatFloat(val, 'f', -1, 64))
	case nil:
		return nil, fmt.Errorf("%w: missing value", ErrInvalidValue)
	default:
		return nil, fmt.Errorf("%w: unsupported %T", ErrInvalidValue, raw)
	}
}
