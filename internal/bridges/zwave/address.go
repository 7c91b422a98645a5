package zwave

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// NodeAddress renders the MQTT address of a node: "{home}.{node}" with the
// home id as 8 hex digits, e.g. "0xc0ffee01.5".
func NodeAddress(homeID uint32, nodeID uint8) string {
	return fmt.Sprintf("0x%08x.%d", homeID, nodeID)
}

// FormatHomeID renders a home id the way addresses and messages carry it.
func FormatHomeID(homeID uint32) string {
	return fmt.Sprintf("0x%08x", homeID)
}

// ParseNodeAddress is the inverse of NodeAddress.
//
// Returns:
//   - ozw.NodeRef: The addressed node
//   - error: ErrInvalidAddress if s is malformed or the node id is 0
func ParseNodeAddress(s string) (ozw.NodeRef, error) {
	home, node, ok := strings.Cut(s, ".")
	if !ok {
		return ozw.NodeRef{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	homeID, err := ParseHomeID(home)
	if err != nil {
		return ozw.NodeRef{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	nodeID, err := strconv.ParseUint(node, 10, 8)
	if err != nil || nodeID == 0 {
		return ozw.NodeRef{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return ozw.NodeRef{HomeID: homeID, NodeID: uint8(nodeID)}, nil
}

// ParseHomeID accepts "0xc0ffee01" or a decimal home id.
func ParseHomeID(s string) (uint32, error) {
	homeID, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil || homeID == 0 {
		return 0, fmt.Errorf("%w: home id %q", ErrInvalidAddress, s)
	}
	return uint32(homeID), nil
}
