package aggregates

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbweb/domain/core/valueobjects"
)

func TestResultGraph_AddObjectKeepsFirst(t *testing.T) {
	g := NewResultGraph()

	added, err := g.AddObject(VisualObject{Addr: 100, Type: valueobjects.TypeNodeConst, Label: "apple"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = g.AddObject(VisualObject{Addr: 100, Type: valueobjects.TypeNodeConst, Label: "other"})
	require.NoError(t, err)
	assert.False(t, added)

	obj, ok := g.Object(100)
	require.True(t, ok)
	assert.Equal(t, "apple", obj.Label)
	assert.Equal(t, 1, g.ObjectCount())
}

func TestResultGraph_SetConnectionLastWriteWins(t *testing.T) {
	g := NewResultGraph()

	replaced, err := g.SetConnection(Connection{Addr: 200, Type: valueobjects.TypeEdgeAccessConstPosPerm, Source: 1, Target: 2})
	require.NoError(t, err)
	assert.False(t, replaced)

	_, err = g.SetConnection(Connection{Addr: 201, Type: valueobjects.TypeEdgeDCommonConst, Source: 2, Target: 3})
	require.NoError(t, err)

	replaced, err = g.SetConnection(Connection{Addr: 200, Type: valueobjects.TypeEdgeAccessConstPosPerm, Source: 5, Target: 6})
	require.NoError(t, err)
	assert.True(t, replaced)

	conns := g.Connections()
	require.Len(t, conns, 2)
	assert.Equal(t, valueobjects.Addr(200), conns[0].Addr)
	assert.Equal(t, valueobjects.Addr(5), conns[0].Source)
	assert.Equal(t, valueobjects.Addr(201), conns[1].Addr)
}

func TestResultGraph_RejectsInvalidInput(t *testing.T) {
	g := NewResultGraph()

	_, err := g.AddObject(VisualObject{Addr: valueobjects.InvalidAddr})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = g.SetConnection(Connection{Addr: 7, Type: valueobjects.TypeNodeConst})
	assert.ErrorIs(t, err, ErrNotAnEdge)

	// unresolved edge types are accepted
	_, err = g.SetConnection(Connection{Addr: 7, Type: valueobjects.TypeUnknown, Source: 1, Target: 2})
	assert.NoError(t, err)
}

func TestResultGraph_SealRejectsMutation(t *testing.T) {
	g := NewResultGraph()
	g.Seal()

	_, err := g.AddObject(VisualObject{Addr: 1, Type: valueobjects.TypeNodeConst})
	assert.ErrorIs(t, err, ErrGraphSealed)

	_, err = g.SetConnection(Connection{Addr: 2, Type: valueobjects.TypeEdgeDCommonConst})
	assert.ErrorIs(t, err, ErrGraphSealed)
	assert.True(t, g.IsEmpty())
}

func TestResultGraph_DanglingConnections(t *testing.T) {
	g := NewResultGraph()
	_, _ = g.AddObject(VisualObject{Addr: 1, Type: valueobjects.TypeNodeConst})
	_, _ = g.AddObject(VisualObject{Addr: 2, Type: valueobjects.TypeNodeConst})
	_, _ = g.SetConnection(Connection{Addr: 10, Type: valueobjects.TypeEdgeDCommonConst, Source: 1, Target: 2})
	_, _ = g.SetConnection(Connection{Addr: 11, Type: valueobjects.TypeEdgeAccessConstPosPerm, Source: 1, Target: 10})
	_, _ = g.SetConnection(Connection{Addr: 12, Type: valueobjects.TypeEdgeAccessConstPosPerm, Source: 1, Target: 99})

	dangling := g.DanglingConnections()
	require.Len(t, dangling, 1)
	assert.Equal(t, valueobjects.Addr(12), dangling[0].Addr)
}

func TestResultGraph_MarshalJSON(t *testing.T) {
	g := NewResultGraph()
	_, _ = g.AddObject(VisualObject{Addr: 400, Type: valueobjects.TypeLinkConst, Content: "7"})
	_, _ = g.SetConnection(Connection{Addr: 200, Type: valueobjects.TypeEdgeDCommonConst, Source: 100, Target: 400})

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, g.ID().String(), decoded["id"])

	objects := decoded["objects"].([]interface{})
	require.Len(t, objects, 1)
	assert.Equal(t, "7", objects[0].(map[string]interface{})["content"])

	conns := decoded["connections"].([]interface{})
	require.Len(t, conns, 1)
	assert.EqualValues(t, 100, conns[0].(map[string]interface{})["source"])
}
