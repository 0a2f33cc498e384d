package editor

import (
	"context"
	"testing"
	"time"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/memstore"
	"github.com/meikuraledutech/canvas/metrics"
	"github.com/meikuraledutech/canvas/remote"
	"github.com/meikuraledutech/canvas/remote/memory"
)

func TestWorkspaceReusesSessions(t *testing.T) {
	ctx := context.Background()
	reg := metrics.NewRegistry()
	w := NewWorkspace(Config{}, memory.New().Services(), nil, nil, reg, zaptest.NewLogger(t))

	a, err := w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)
	b, err := w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)
	assert.Same(t, a, b)
	_, err = w.Open(ctx, "agent-2", "org")
	require.NoError(t, err)

	assert.Equal(t, []string{"agent-1", "agent-2"}, w.Agents())
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.Sessions))

	_, ok := a.Node(RootNodeID)
	assert.True(t, ok)

	require.NoError(t, w.Close(ctx, "agent-1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Sessions))
	_, ok = w.Get("agent-1")
	assert.False(t, ok)
}

func TestWorkspaceCloseSavesAndReopenLoads(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	w := NewWorkspace(Config{}, memory.New().Services(), store, nil, nil, nil)

	s, err := w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)
	_, err = s.Drop(canvas.KindIntegration, canvas.Point{X: 10, Y: 20}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx, "agent-1"))

	g, err := store.GetGraph(ctx, "agent-1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Len(t, g.Nodes, 2)

	s, err = w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Nodes, 2)
}

func TestWorkspaceAutosave(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	w := NewWorkspace(Config{}, memory.New().Services(), store, nil, nil, nil).WithAutosave()

	s, err := w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)

	root, err := store.GetNode(ctx, "agent-1", RootNodeID)
	require.NoError(t, err)
	require.NotNil(t, root)

	c, err := s.CreateChild(RootNodeID)
	require.NoError(t, err)
	_, err = s.Move(c.Node.ID, canvas.Point{X: 500, Y: 500})
	require.NoError(t, err)

	n, err := store.GetNode(ctx, "agent-1", c.Node.ID)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, canvas.Point{X: 500, Y: 500}, n.Position)
	e, err := store.GetEdge(ctx, "agent-1", c.Edge.ID)
	require.NoError(t, err)
	assert.NotNil(t, e)

	require.NoError(t, s.RemoveEdge(c.Edge.ID))
	e, err = store.GetEdge(ctx, "agent-1", c.Edge.ID)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestReopenKeepsCanvasWithOnlyDanglingEdges(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	w := NewWorkspace(Config{}, memory.New().Services(), store, nil, nil, nil)

	s, err := w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)
	c, err := s.CreateChild(RootNodeID)
	require.NoError(t, err)
	require.NoError(t, s.DeleteNode(ctx, c.Node.ID, false))
	require.NoError(t, s.DeleteNode(ctx, RootNodeID, false))
	before := s.Snapshot()
	require.Empty(t, before.Nodes)
	require.Len(t, before.Edges, 1)
	require.NoError(t, w.Close(ctx, "agent-1"))

	s, err = w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)
	after := s.Snapshot()
	assert.Empty(t, after.Nodes)
	require.Len(t, after.Edges, 1)
	assert.Equal(t, c.Edge.ID, after.Edges[0].ID)
}

func TestWorkspaceAutosaveSelection(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	backend := memory.New()
	backend.PutAgent(remote.Agent{ID: "agent-1", Name: "Soporte", OrganizationID: "org"})
	w := NewWorkspace(Config{}, backend.Services(), store, nil, nil, nil).WithAutosave()

	s, err := w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)

	require.NoError(t, s.Select(ctx, RootNodeID))
	n, err := store.GetNode(ctx, "agent-1", RootNodeID)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.True(t, n.Selected)

	require.NoError(t, s.Select(ctx))
	n, err = store.GetNode(ctx, "agent-1", RootNodeID)
	require.NoError(t, err)
	assert.False(t, n.Selected)

	// the stored flag restores the selection on reopen
	require.NoError(t, s.Select(ctx, RootNodeID))
	require.NoError(t, w.Close(ctx, "agent-1"))
	s, err = w.Open(ctx, "agent-1", "org")
	require.NoError(t, err)
	assert.Equal(t, []string{RootNodeID}, s.Selected())
}

func TestWorkspaceOpenCopiesIDs(t *testing.T) {
	ctx := context.Background()
	w := NewWorkspace(Config{}, memory.New().Services(), nil, nil, nil, nil)

	buf := []byte("agent-1")
	s, err := w.Open(ctx, unsafe.String(&buf[0], len(buf)), "org")
	require.NoError(t, err)
	copy(buf, "xxxxxxx")

	got, ok := w.Get("agent-1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, "agent-1", s.ID())
}

// blockingStore holds GetGraph for one graph until release is closed.
type blockingStore struct {
	*memstore.Store
	slow    string
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) GetGraph(ctx context.Context, graphID string) (*canvas.Graph, error) {
	if graphID == s.slow {
		close(s.entered)
		<-s.release
	}
	return s.Store.GetGraph(ctx, graphID)
}

func TestWorkspaceOpenDoesNotWaitOnOtherLoads(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{Store: memstore.New(), slow: "agent-slow", entered: make(chan struct{}), release: make(chan struct{})}
	w := NewWorkspace(Config{}, memory.New().Services(), store, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := w.Open(ctx, "agent-slow", "org")
		done <- err
	}()
	<-store.entered

	opened := make(chan error, 1)
	go func() {
		_, err := w.Open(ctx, "agent-fast", "org")
		opened <- err
	}()
	select {
	case err := <-opened:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("open blocked behind another agent's load")
	}

	close(store.release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"agent-fast", "agent-slow"}, w.Agents())
}
