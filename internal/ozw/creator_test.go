package ozw

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCreator records how often it is invoked.
type countingCreator struct {
	calls int
}

func (c *countingCreator) upper(text string) string {
	c.calls++
	return strings.ToUpper(text)
}

func (c *countingCreator) length(data []byte) int {
	c.calls++
	return len(data)
}

func (c *countingCreator) joined(items []string) string {
	c.calls++
	return strings.Join(items, "|")
}

func (c *countingCreator) sum(values []int32) int64 {
	c.calls++
	var total int64
	for _, v := range values {
		total += int64(v)
	}
	return total
}

func TestCreatorInvokedOnceOnSuccess(t *testing.T) {
	m := newTestManager(t, seededEngine())

	var c countingCreator

	text, ok := ValueAsStringWith(m, nameID, c.upper)
	require.True(t, ok)
	assert.Equal(t, "HALL DIMMER", text)
	assert.Equal(t, 1, c.calls)

	n, ok := ValueAsRawWith(m, rawID, c.length)
	require.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.calls)

	items, ok := ValueListItemsWith(m, modeID, c.joined)
	require.True(t, ok)
	assert.Equal(t, "Off|Heat|Cool", items)
	assert.Equal(t, 3, c.calls)

	total, ok := ValueListValuesWith(m, modeID, c.sum)
	require.True(t, ok)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, 4, c.calls)

	label, ok := ValueLabelWith(m, tempID, c.upper)
	require.True(t, ok)
	assert.Equal(t, "TEMPERATURE", label)
	assert.Equal(t, 5, c.calls)
}

func TestCreatorNeverInvokedOnFailure(t *testing.T) {
	m := newTestManager(t, seededEngine())

	var c countingCreator

	_, ok := ValueAsStringWith(m, pinID, c.upper) // write-only
	assert.False(t, ok)

	_, ok = ValueAsRawWith(m, nameID, c.length) // wrong type
	assert.False(t, ok)

	_, ok = ValueListItemsWith(m, dimmerID, c.joined)
	assert.False(t, ok)

	_, ok = ValueListSelectionStringWith(m, switchID, c.upper)
	assert.False(t, ok)

	ghost := switchID
	ghost.HomeID = 42
	_, ok = ValueUnitsWith(m, ghost, c.upper)
	assert.False(t, ok)

	_, ok = NodeStringWith(m, 1, 99, NodeName, c.upper)
	assert.False(t, ok)

	_, ok = NodeNeighborsWith(m, 1, 99, c.length)
	assert.False(t, ok)

	_, _, ok = NodeClassInformationWith(m, 1, 5, 0x99, c.upper)
	assert.False(t, ok)

	_, ok = LibraryVersionWith(m, 42, c.upper)
	assert.False(t, ok)

	assert.Zero(t, c.calls)
}

func TestNilCreatorFails(t *testing.T) {
	m := newTestManager(t, seededEngine())

	_, ok := ValueAsStringWith[string](m, nameID, nil)
	assert.False(t, ok)
	_, ok = ValueAsRawWith[[]byte](m, rawID, nil)
	assert.False(t, ok)
}

func TestCreatorOwnsItsInput(t *testing.T) {
	m := newTestManager(t, seededEngine())

	var kept []byte
	_, ok := ValueAsRawWith(m, rawID, func(data []byte) struct{} {
		kept = data
		return struct{}{}
	})
	require.True(t, ok)
	kept[0] = 0xee

	again, ok := m.ValueAsRaw(rawID)
	require.True(t, ok)
	assert.Equal(t, byte(0x01), again[0])
}

func TestControllerStringCreators(t *testing.T) {
	m := newTestManager(t, seededEngine())

	version, ok := LibraryVersionWith(m, testHome, func(s string) []byte { return []byte(s) })
	require.True(t, ok)
	assert.Equal(t, []byte("Z-Wave 4.05"), version)

	typeName, ok := m.LibraryTypeName(testHome)
	require.True(t, ok)
	assert.Equal(t, "Static Controller", typeName)

	path, ok := ControllerPathWith(m, testHome, strings.ToUpper)
	require.True(t, ok)
	assert.Equal(t, "/DEV/TTYACM0", path)
}
