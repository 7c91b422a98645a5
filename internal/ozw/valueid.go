package ozw

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// ValueType is the runtime type tag of a value.
type ValueType uint8

// Value types as numbered by the engine.
const (
	TypeBool     ValueType = 0
	TypeByte     ValueType = 1
	TypeDecimal  ValueType = 2
	TypeInt      ValueType = 3
	TypeList     ValueType = 4
	TypeSchedule ValueType = 5
	TypeShort    ValueType = 6
	TypeString   ValueType = 7
	TypeButton   ValueType = 8
	TypeRaw      ValueType = 9
	TypeUnknown  ValueType = 255
)

var valueTypeNames = map[ValueType]string{
	TypeBool:     "bool",
	TypeByte:     "byte",
	TypeDecimal:  "decimal",
	TypeInt:      "int",
	TypeList:     "list",
	TypeSchedule: "schedule",
	TypeShort:    "short",
	TypeString:   "string",
	TypeButton:   "button",
	TypeRaw:      "raw",
	TypeUnknown:  "unknown",
}

// String returns the lower-case type name.
func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// MarshalText encodes the type as its name.
func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *ValueType) UnmarshalText(text []byte) error {
	parsed, err := ParseValueType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseValueType converts a type name (case-insensitive) to a ValueType.
func ParseValueType(name string) (ValueType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range valueTypeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("%w: unknown value type %q", ErrInvalidValue, name)
}

// ValueGenre is the coarse purpose of a value.
type ValueGenre uint8

// Value genres.
const (
	GenreBasic  ValueGenre = 0
	GenreUser   ValueGenre = 1
	GenreConfig ValueGenre = 2
	GenreSystem ValueGenre = 3
)

var valueGenreNames = map[ValueGenre]string{
	GenreBasic:  "basic",
	GenreUser:   "user",
	GenreConfig: "config",
	GenreSystem: "system",
}

// String returns the lower-case genre name.
func (g ValueGenre) String() string {
	if name, ok := valueGenreNames[g]; ok {
		return name
	}
	return fmt.Sprintf("genre(%d)", uint8(g))
}

// MarshalText encodes the genre as its name.
func (g ValueGenre) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText decodes a genre name.
func (g *ValueGenre) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for genre, n := range valueGenreNames {
		if n == name {
			*g = genre
			return nil
		}
	}
	return fmt.Errorf("%w: unknown value genre %q", ErrInvalidValue, name)
}

// ValueID addresses one data point on one node.
//
// ValueID is a comparable value type and can be used directly as a map key.
// It is never mutated by this package.
type ValueID struct {
	HomeID         uint32     `json:"home_id"`
	NodeID         uint8      `json:"node_id"`
	CommandClassID uint8      `json:"command_class_id"`
	Instance       uint8      `json:"instance"`
	Index          uint8      `json:"index"`
	Type           ValueType  `json:"type"`
	Genre          ValueGenre `json:"genre"`
}

// Equal reports whether both identities have identical fields.
func (v ValueID) Equal(other ValueID) bool {
	return v == other
}

// Compare orders identities by home, node, command class, instance, index,
// type and genre. It returns -1, 0 or +1.
func (v ValueID) Compare(other ValueID) int {
	return cmp.Or(
		cmp.Compare(v.HomeID, other.HomeID),
		cmp.Compare(v.NodeID, other.NodeID),
		cmp.Compare(v.CommandClassID, other.CommandClassID),
		cmp.Compare(v.Instance, other.Instance),
		cmp.Compare(v.Index, other.Index),
		cmp.Compare(v.Type, other.Type),
		cmp.Compare(v.Genre, other.Genre),
	)
}

// Less reports whether v sorts before other.
func (v ValueID) Less(other ValueID) bool {
	return v.Compare(other) < 0
}

// Bit layout of the packed identity. The home id travels separately.
const (
	packedNodeShift     = 24
	packedGenreShift    = 22
	packedClassShift    = 14
	packedInstanceShift = 4
	packedIndexShift    = 16

	packedGenreMask = 0x03
	packedByteMask  = 0xff
	packedTypeMask  = 0x0f

	// packedUnknownType is the type nibble carrying TypeUnknown.
	packedUnknownType = 0x0f
)

// Packable reports whether the identity survives Packed: its type is a
// known value type and its genre fits the two genre bits.
func (v ValueID) Packable() bool {
	_, known := valueTypeNames[v.Type]
	return known && v.Genre <= packedGenreMask
}

// Packed returns the engine's 64-bit encoding of the identity without the
// home id. Fields of an identity that is not Packable are truncated.
func (v ValueID) Packed() uint64 {
	typeBits := uint32(v.Type & packedTypeMask)
	if v.Type == TypeUnknown {
		typeBits = packedUnknownType
	}
	id0 := uint32(v.NodeID)<<packedNodeShift |
		uint32(v.Genre&packedGenreMask)<<packedGenreShift |
		uint32(v.CommandClassID)<<packedClassShift |
		uint32(v.Instance)<<packedInstanceShift |
		typeBits
	id1 := uint32(v.Index) << packedIndexShift
	return uint64(id1)<<32 | uint64(id0)
}

// ValueIDFromPacked rebuilds an identity from a home id and a packed id.
func ValueIDFromPacked(homeID uint32, packed uint64) ValueID {
	id0 := uint32(packed)
	id1 := uint32(packed >> 32)
	valueType := ValueType(id0 & packedTypeMask)
	if valueType == packedUnknownType {
		valueType = TypeUnknown
	}
	return ValueID{
		HomeID:         homeID,
		NodeID:         uint8(id0 >> packedNodeShift & packedByteMask),
		Genre:          ValueGenre(id0 >> packedGenreShift & packedGenreMask),
		CommandClassID: uint8(id0 >> packedClassShift & packedByteMask),
		Instance:       uint8(id0 >> packedInstanceShift & packedByteMask),
		Type:           valueType,
		Index:          uint8(id1 >> packedIndexShift & packedByteMask),
	}
}

// String returns the identity as "0x<home>:0x<packed>", the form used in
// MQTT topics and HTTP paths. An identity that is not Packable renders as
// "0x<home>:invalid", which ParseValueID rejects.
func (v ValueID) String() string {
	if !v.Packable() {
		return fmt.Sprintf("0x%08x:invalid", v.HomeID)
	}
	return fmt.Sprintf("0x%08x:0x%016x", v.HomeID, v.Packed())
}

// ParseValueID parses the output of ValueID.String.
func ParseValueID(s string) (ValueID, error) {
	homePart, packedPart, ok := strings.Cut(s, ":")
	if !ok {
		return ValueID{}, fmt.Errorf("%w: %q", ErrInvalidValueID, s)
	}
	home, err := strconv.ParseUint(homePart, 0, 32)
	if err != nil {
		return ValueID{}, fmt.Errorf("%w: home id: %w", ErrInvalidValueID, err)
	}
	packed, err := strconv.ParseUint(packedPart, 0, 64)
	if err != nil {
		return ValueID{}, fmt.Errorf("%w: packed id: %w", ErrInvalidValueID, err)
	}
	id := ValueIDFromPacked(uint32(home), packed)
	if _, known := valueTypeNames[id.Type]; !known {
		return ValueID{}, fmt.Errorf("%w: unknown type %d", ErrInvalidValueID, id.Type)
	}
	return id, nil
}
