package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementType_Classification(t *testing.T) {
	testCases := []struct {
		name   string
		typ    ElementType
		isNode bool
		isLink bool
		isEdge bool
		str    string
	}{
		{"const node", TypeNodeConst, true, false, false, "node/const"},
		{"class node", TypeNodeConstClass, true, false, false, "node/const"},
		{"link", TypeLinkConst, false, true, false, "link/const"},
		{"access edge", TypeEdgeAccessConstPosPerm, false, false, true, "edge/access/const/pos/perm"},
		{"common edge", TypeEdgeDCommonVar, false, false, true, "edge/dcommon/var"},
		{"unknown", TypeUnknown, false, false, false, "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.isNode, tc.typ.IsNode())
			assert.Equal(t, tc.isLink, tc.typ.IsLink())
			assert.Equal(t, tc.isEdge, tc.typ.IsEdge())
			assert.Equal(t, tc.str, tc.typ.String())
		})
	}
}

func TestUniqueAddrs_KeepsFirstSeenOrder(t *testing.T) {
	got := UniqueAddrs([]Addr{300, 100, 0, 300, 200, 100})
	assert.Equal(t, []Addr{300, 100, 200}, got)
}

func TestAddr_JSON(t *testing.T) {
	var addrs []Addr
	require.NoError(t, json.Unmarshal([]byte(`[1, 0, null, 18446744073709551615]`), &addrs))
	assert.Equal(t, []Addr{1, InvalidAddr, InvalidAddr, Addr(18446744073709551615)}, addrs)
	assert.Equal(t, "42", Addr(42).String())

	parsed, err := ParseAddr("42")
	require.NoError(t, err)
	assert.Equal(t, Addr(42), parsed)
}

func TestLinkContent_Decode(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		kind ContentKind
		text string
	}{
		{"int", `{"value": 7, "type": "int"}`, ContentInt, "7"},
		{"integral float sent as int", `{"value": 7.0, "type": "int"}`, ContentInt, "7"},
		{"float", `{"value": 2.5, "type": "float"}`, ContentFloat, "2.5"},
		{"whole float", `{"value": 3, "type": "float"}`, ContentFloat, "3"},
		{"string", `{"value": "apple", "type": "string"}`, ContentString, "apple"},
		{"no content", `{"value": null, "type": null}`, ContentNone, ""},
		{"binary", `{"value": "AAE=", "type": "binary"}`, ContentNone, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c LinkContent
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &c))
			assert.Equal(t, tc.kind, c.Kind())
			assert.Equal(t, tc.text, c.Text())
		})
	}
}

func TestLinkContent_MarshalRoundTripsIntoWireShape(t *testing.T) {
	data, err := json.Marshal(NewIntContent(12))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value": 12, "type": "int"}`, string(data))
}
