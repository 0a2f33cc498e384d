package graph

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/canvas"
)

func node(id string, kind canvas.NodeKind, x, y float64) canvas.Node {
	return canvas.Node{ID: id, Type: kind, Position: canvas.Point{X: x, Y: y}, Data: canvas.NodeData{Name: id}}
}

func edge(src, dst string) canvas.Edge {
	return canvas.Edge{ID: canvas.EdgeID(src, dst), Source: src, Target: dst, SourceHandle: canvas.SourceRight, TargetHandle: canvas.TargetLeft}
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	m := New()
	m.AddNode(node("c", canvas.KindAgent, 0, 0))
	m.AddNode(node("a", canvas.KindFunction, 0, 0))
	m.AddNode(node("b", canvas.KindFunction, 0, 0))

	// replacing keeps the original slot
	m.AddNode(node("a", canvas.KindFunction, 9, 9))

	ids := []string{}
	for _, n := range m.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	a, ok := m.Node("a")
	require.True(t, ok)
	assert.Equal(t, 9.0, a.Position.X)
}

func TestRemoveNodeLeavesDanglingEdge(t *testing.T) {
	m := New()
	m.AddNode(node("agent", canvas.KindAgent, 0, 0))
	m.AddNode(node("f1", canvas.KindFunction, 300, 0))
	m.AddEdge(edge("agent", "f1"))

	require.NoError(t, m.RemoveNode("f1"))

	e, ok := m.Edge("eagent-f1")
	require.True(t, ok, "edge must survive node removal")
	assert.Equal(t, "f1", e.Target)
	_, targetExists := m.Node(e.Target)
	assert.False(t, targetExists)
	assert.Len(t, m.DanglingEdges(), 1)
}

func TestRemoveParentDoesNotCascadeToChildren(t *testing.T) {
	m := New()
	m.AddNode(node("p", canvas.KindAgent, 0, 0))
	child := node("c", canvas.KindFunction, 0, 0)
	child.Data.ParentNodeID = "p"
	m.AddNode(child)

	require.NoError(t, m.RemoveNode("p"))

	c, ok := m.Node("c")
	require.True(t, ok)
	assert.Equal(t, "p", c.Data.ParentNodeID)
}

func TestRemoveMissing(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.RemoveNode("nope"), canvas.ErrNodeNotFound)
	assert.ErrorIs(t, m.RemoveEdge("nope"), canvas.ErrEdgeNotFound)
}

func TestReplaceEdgeDataCopiesOnWrite(t *testing.T) {
	m := New()
	e := edge("agent", "f1")
	e.Data = &canvas.EdgeData{FunctionID: "fn-1"}
	m.AddEdge(e)
	before, _ := m.Edge(e.ID)

	auth := "auth-1"
	after, err := m.ReplaceEdgeData(e.ID, EdgePatch{AuthenticatorID: &auth})
	require.NoError(t, err)

	assert.Equal(t, "auth-1", after.Data.AuthenticatorID)
	assert.Equal(t, "fn-1", after.Data.FunctionID)
	assert.Empty(t, before.Data.AuthenticatorID, "previous value must not be mutated")

	empty := ""
	after, err = m.ReplaceEdgeData(e.ID, EdgePatch{AuthenticatorID: &empty})
	require.NoError(t, err)
	assert.Empty(t, after.Data.AuthenticatorID)

	_, err = m.ReplaceEdgeData("missing", EdgePatch{})
	assert.ErrorIs(t, err, canvas.ErrEdgeNotFound)
}

func TestSameEdgeIDOverwrites(t *testing.T) {
	m := New()
	m.AddEdge(edge("a", "b"))
	second := edge("a", "b")
	second.Type = canvas.EdgeAuth
	m.AddEdge(second)

	_, edges := m.Len()
	assert.Equal(t, 1, edges)
	e, _ := m.Edge("ea-b")
	assert.Equal(t, canvas.EdgeAuth, e.Type)
}

func TestEdgesOfAndChildren(t *testing.T) {
	m := New()
	m.AddNode(node("p", canvas.KindAgent, 0, 0))
	for _, id := range []string{"c1", "c2"} {
		n := node(id, canvas.KindFunction, 0, 0)
		n.Data.ParentNodeID = "p"
		m.AddNode(n)
		m.AddEdge(edge("p", id))
	}
	other := node("i", canvas.KindIntegration, 0, 0)
	other.Data.ParentNodeID = "p"
	m.AddNode(other)

	assert.Len(t, m.EdgesOf("p"), 2)
	assert.Len(t, m.EdgesOf("c1"), 1)
	assert.Len(t, m.Children("p", canvas.KindFunction), 2)
}

func TestBounds(t *testing.T) {
	m := New()
	_, ok := m.Bounds(canvas.Size{Width: 10, Height: 10})
	assert.False(t, ok)

	a := node("a", canvas.KindAgent, 0, 0)
	a.Width, a.Height = canvas.Float(100), canvas.Float(50)
	m.AddNode(a)
	m.AddNode(node("b", canvas.KindFunction, 200, 300))

	r, ok := m.Bounds(canvas.Size{Width: 150, Height: 40})
	require.True(t, ok)
	assert.Equal(t, canvas.Rect{X: 0, Y: 0, Width: 350, Height: 340}, r)
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	m := New()
	m.AddNode(node("a", canvas.KindAgent, 1, 2))
	m.AddEdge(edge("a", "ghost"))

	g := m.Snapshot("agent-1")
	other := New()
	other.Load(g)

	assert.Equal(t, g, other.Snapshot("agent-1"))
}

func TestUpdateNodeKeepsStoredID(t *testing.T) {
	m := New()
	m.AddNode(canvas.Node{ID: "funcion-1", Type: canvas.KindFunction})

	buf := []byte("funcion-1")
	id := unsafe.String(&buf[0], len(buf))
	_, err := m.UpdateNode(id, func(n *canvas.Node) { n.Data.Name = "Buscar" })
	require.NoError(t, err)
	copy(buf, "xxxxxxxxx")

	n, ok := m.Node("funcion-1")
	require.True(t, ok)
	assert.Equal(t, "funcion-1", n.ID)
	assert.Equal(t, "Buscar", n.Data.Name)
}

func TestReplaceEdgeDataKeepsStoredID(t *testing.T) {
	m := New()
	m.AddEdge(canvas.Edge{ID: "eagent-f1", Source: "agent", Target: "f1"})

	buf := []byte("eagent-f1")
	id := unsafe.String(&buf[0], len(buf))
	auth := "auth-1"
	_, err := m.ReplaceEdgeData(id, EdgePatch{AuthenticatorID: &auth})
	require.NoError(t, err)
	copy(buf, "xxxxxxxxx")

	e, ok := m.Edge("eagent-f1")
	require.True(t, ok)
	assert.Equal(t, "eagent-f1", e.ID)
	assert.Equal(t, "auth-1", e.Data.AuthenticatorID)
}
