package history

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create history CBOR encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create history CBOR decoder mode: %v", err))
	}
}

// variant is the stored form of a value: its type tag and the CBOR body of
// the concrete value.
type variant struct {
	Type  uint8           `cbor:"1,keyasint"`
	Value cbor.RawMessage `cbor:"2,keyasint"`
}

// EncodeValue encodes v as a tagged CBOR variant.
func EncodeValue(v ozw.Value) ([]byte, error) {
	if v == nil {
		return nil, ErrNilValue
	}
	body, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s value: %w", v.Type(), err)
	}
	data, err := encMode.Marshal(variant{Type: uint8(v.Type()), Value: body})
	if err != nil {
		return nil, fmt.Errorf("encoding value variant: %w", err)
	}
	return data, nil
}

// DecodeValue decodes the output of EncodeValue.
func DecodeValue(data []byte) (ozw.Value, error) {
	var tagged variant
	if err := decMode.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("decoding value variant: %w", err)
	}

	switch ozw.ValueType(tagged.Type) {
	case ozw.TypeBool:
		return decodeAs[ozw.BoolValue](tagged.Value)
	case ozw.TypeByte:
		return decodeAs[ozw.ByteValue](tagged.Value)
	case ozw.TypeDecimal:
		return decodeAs[ozw.DecimalValue](tagged.Value)
	case ozw.TypeInt:
		return decodeAs[ozw.IntValue](tagged.Value)
	case ozw.TypeList:
		return decodeAs[ozw.ListValue](tagged.Value)
	case ozw.TypeSchedule:
		return decodeAs[ozw.ScheduleValue](tagged.Value)
	case ozw.TypeShort:
		return decodeAs[ozw.ShortValue](tagged.Value)
	case ozw.TypeString:
		return decodeAs[ozw.StringValue](tagged.Value)
	case ozw.TypeButton:
		return decodeAs[ozw.ButtonValue](tagged.Value)
	case ozw.TypeRaw:
		return decodeAs[ozw.RawValue](tagged.Value)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownValueType, tagged.Type)
	}
}

func decodeAs[T ozw.Value](body []byte) (ozw.Value, error) {
	var v T
	if err := decMode.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decoding %T: %w", v, err)
	}
	return v, nil
}

func encodeNode(info ozw.NodeInfo) ([]byte, error) {
	data, err := encMode.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encoding node info: %w", err)
	}
	return data, nil
}

func decodeNode(data []byte) (ozw.NodeInfo, error) {
	var info ozw.NodeInfo
	if err := decMode.Unmarshal(data, &info); err != nil {
		return ozw.NodeInfo{}, fmt.Errorf("decoding node info: %w", err)
	}
	return info, nil
}
