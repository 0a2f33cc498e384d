package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/canvas"
)

func TestSaveGetIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()
	g := &canvas.Graph{
		ID:    "a",
		Nodes: []canvas.Node{{ID: "agent", Type: canvas.KindAgent}},
		Edges: []canvas.Edge{{ID: "e1", Source: "agent", Target: "ghost", Data: &canvas.EdgeData{AuthenticatorID: "x"}}},
	}
	require.NoError(t, s.SaveGraph(ctx, g))
	g.Edges[0].Data.AuthenticatorID = "mutated"

	got, err := s.GetGraph(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Edges[0].Data.AuthenticatorID)

	missing, err := s.GetGraph(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertNode(ctx, "a", &canvas.Node{ID: "n1"}))
	require.NoError(t, s.UpsertNode(ctx, "a", &canvas.Node{ID: "n2"}))
	require.NoError(t, s.UpsertNode(ctx, "a", &canvas.Node{ID: "n1", Position: canvas.Point{X: 5}}))
	require.NoError(t, s.UpsertEdge(ctx, "a", &canvas.Edge{ID: "e", Source: "n1", Target: "n2"}))

	nodes, err := s.ListNodes(ctx, "a")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, 5.0, nodes[0].Position.X)

	require.NoError(t, s.DeleteNode(ctx, "a", "n2"))
	n, err := s.GetNode(ctx, "a", "n2")
	require.NoError(t, err)
	assert.Nil(t, n)
	e, err := s.GetEdge(ctx, "a", "e")
	require.NoError(t, err)
	require.NotNil(t, e)

	ids, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, s.DeleteGraph(ctx, "a"))
	ids, err = s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEdgeOnlyGraphIsStored(t *testing.T) {
	ctx := context.Background()
	s := New()
	g := &canvas.Graph{
		ID:    "a",
		Nodes: []canvas.Node{},
		Edges: []canvas.Edge{{ID: "eagent-f1", Source: "agent", Target: "f1"}},
	}
	require.NoError(t, s.SaveGraph(ctx, g))

	got, err := s.GetGraph(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Nodes)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, "eagent-f1", got.Edges[0].ID)

	ids, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, s.DeleteEdge(ctx, "a", "eagent-f1"))
	got, err = s.GetGraph(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}
