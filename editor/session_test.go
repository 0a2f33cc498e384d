package editor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/authedge"
	"github.com/meikuraledutech/canvas/factory"
	"github.com/meikuraledutech/canvas/metrics"
	"github.com/meikuraledutech/canvas/remote"
	"github.com/meikuraledutech/canvas/remote/memory"
)

func sequence() func() string {
	i := 0
	return func() string {
		i++
		return fmt.Sprintf("%d", i)
	}
}

type fixture struct {
	session *Session
	backend *memory.Backend
	agent   remote.Agent
	events  []Event
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	b := memory.New()
	a := b.PutAgent(remote.Agent{Name: "Soporte", Description: "Atiende clientes", OrganizationID: "org"})
	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithIDGenerator(sequence())}, opts...)
	s := New(Config{
		AgentID:        a.ID,
		OrganizationID: "org",
		Viewport:       canvas.Size{Width: 1000, Height: 800},
	}, b.Services(), opts...)
	s.Seed()

	f := &fixture{session: s, backend: b, agent: a}
	s.Subscribe(func(ev Event) { f.events = append(f.events, ev) })
	return f
}

func (f *fixture) types() []EventType {
	out := make([]EventType, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestSeedAddsCentralAgent(t *testing.T) {
	f := newFixture(t)

	root, ok := f.session.Node(RootNodeID)
	require.True(t, ok)
	assert.Equal(t, canvas.KindAgent, root.Type)
	assert.Equal(t, canvas.StyleCentral, root.Data.Style)
	assert.Equal(t, f.agent.ID, root.Data.AgentID)

	f.session.Seed()
	g := f.session.Snapshot()
	assert.Len(t, g.Nodes, 1)
}

func TestCreateChildEmitsEvents(t *testing.T) {
	f := newFixture(t)

	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)

	assert.Equal(t, "funcion-1", c.Node.ID)
	assert.Equal(t, canvas.Point{X: 350, Y: 0}, c.Node.Position)
	require.NotNil(t, c.Edge)
	assert.Equal(t, canvas.EdgeAuth, c.Edge.Type)
	assert.Equal(t, []EventType{NodeAdded, EdgeAdded, CameraMoved, EditorRequested}, f.types())

	form, ok := f.session.Editing()
	require.True(t, ok)
	assert.Equal(t, "funcion-1", form.NodeID)
}

func TestConnectRejectsDisallowedRoles(t *testing.T) {
	f := newFixture(t)
	c, err := f.session.Drop(canvas.KindFunction, canvas.Point{X: 400}, nil)
	require.NoError(t, err)

	_, err = f.session.Connect(factory.Connection{Source: c.Node.ID, Target: RootNodeID})
	assert.ErrorIs(t, err, canvas.ErrConnectionNotAllowed)

	_, err = f.session.Connect(factory.Connection{Source: "ghost", Target: c.Node.ID})
	assert.ErrorIs(t, err, canvas.ErrNodeNotFound)

	e, err := f.session.Connect(factory.Connection{Source: RootNodeID, Target: c.Node.ID})
	require.NoError(t, err)
	assert.Equal(t, canvas.EdgeID(RootNodeID, c.Node.ID), e.ID)
	assert.Equal(t, canvas.SourceRight, e.SourceHandle)
	assert.Equal(t, canvas.TargetLeft, e.TargetHandle)
}

func TestSelectLoadsResourceIntoRender(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Select(context.Background(), RootNodeID))

	frame, err := f.session.Render()
	require.NoError(t, err)
	require.Len(t, frame.Nodes, 1)
	v := frame.Nodes[0]
	assert.True(t, v.Selected)
	assert.False(t, v.ShowLabel)
	require.NotNil(t, v.Body)
	assert.Equal(t, "Soporte", v.Body.Title)
	assert.Equal(t, []string{RootNodeID}, frame.Selection)
}

func TestSelectUnknownNode(t *testing.T) {
	f := newFixture(t)
	err := f.session.Select(context.Background(), "ghost")
	assert.ErrorIs(t, err, canvas.ErrNodeNotFound)
	assert.Empty(t, f.session.Selected())
}

func TestSelectLoadFailureIsRendered(t *testing.T) {
	f := newFixture(t)
	f.backend.FailNext("agent.getById", errors.New("offline"))

	err := f.session.Select(context.Background(), RootNodeID)
	require.Error(t, err)

	frame, err := f.session.Render()
	require.NoError(t, err)
	assert.Equal(t, "offline", frame.Nodes[0].Error)
}

func TestSelectLoadsEveryNodeDespiteOneFailure(t *testing.T) {
	f := newFixture(t)
	c, err := f.session.Drop(canvas.KindIntegration, canvas.Point{X: 400, Y: 0}, nil)
	require.NoError(t, err)
	f.backend.FailNext("integration.getWebChat", errors.New("offline"))

	err = f.session.Select(context.Background(), RootNodeID, c.Node.ID)
	require.Error(t, err)

	frame, err := f.session.Render()
	require.NoError(t, err)
	require.Len(t, frame.Nodes, 2)
	require.NotNil(t, frame.Nodes[0].Body)
	assert.Equal(t, "Soporte", frame.Nodes[0].Body.Title)
	assert.Empty(t, frame.Nodes[0].Error)
	assert.Equal(t, "offline", frame.Nodes[1].Error)
	assert.Equal(t, []string{RootNodeID, c.Node.ID}, frame.Selection)
}

func TestSelectAnnouncesSelectedFlag(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Select(context.Background(), RootNodeID))

	var updated []canvas.Node
	for _, ev := range f.events {
		if ev.Type == NodeUpdated {
			updated = append(updated, *ev.Node)
		}
	}
	require.Len(t, updated, 1)
	assert.Equal(t, RootNodeID, updated[0].ID)
	assert.True(t, updated[0].Selected)
}

func TestDeleteNodeLeavesDanglingEdge(t *testing.T) {
	f := newFixture(t)
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)

	require.NoError(t, f.session.DeleteNode(context.Background(), c.Node.ID, false))

	_, ok := f.session.Edge(c.Edge.ID)
	assert.True(t, ok)
	frame, err := f.session.Render()
	require.NoError(t, err)
	require.Len(t, frame.Edges, 1)
	assert.True(t, frame.Edges[0].Dangling)
	assert.Nil(t, frame.Edges[0].Params)
	_, editing := f.session.Editing()
	assert.False(t, editing)
}

func TestDeleteNodeWithEdges(t *testing.T) {
	f := newFixture(t)
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)

	require.NoError(t, f.session.DeleteNode(context.Background(), c.Node.ID, true))

	g := f.session.Snapshot()
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestDeleteFunctionFailureKeepsNode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)
	_, err = f.session.SaveFunction(ctx, c.Node.ID, FunctionInput{Name: "Buscar pedido"})
	require.NoError(t, err)

	f.backend.FailNext("function.delete", errors.New("boom"))
	require.Error(t, f.session.DeleteNode(ctx, c.Node.ID, true))

	_, ok := f.session.Node(c.Node.ID)
	assert.True(t, ok)
	_, ok = f.session.Edge(c.Edge.ID)
	assert.True(t, ok)
}

func TestSaveFunctionBindsNode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)

	n, err := f.session.SaveFunction(ctx, c.Node.ID, FunctionInput{Name: "Buscar pedido", Description: "por id"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.Data.FunctionID)
	assert.Equal(t, "Buscar pedido", n.Data.Name)
	_, editing := f.session.Editing()
	assert.False(t, editing)

	n, err = f.session.SaveFunction(ctx, c.Node.ID, FunctionInput{Name: "Buscar orden"})
	require.NoError(t, err)
	assert.Equal(t, "Buscar orden", n.Data.Name)

	a, err := f.backend.Services().Agents.GetByID(ctx, f.agent.ID)
	require.NoError(t, err)
	require.Len(t, a.Functions, 1)
	assert.Equal(t, "Buscar orden", a.Functions[0].Name)
}

func TestEditRequestOnSuccessRefreshes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.session.Drop(canvas.KindFunction, canvas.Point{X: 400}, nil)
	require.NoError(t, err)

	req, ok := f.session.Request()
	require.True(t, ok)

	fn, err := f.backend.Services().Functions.Create(ctx, &remote.Function{AgentID: f.agent.ID, Name: "Crear ticket"})
	require.NoError(t, err)
	require.NoError(t, req.OnSuccess(ctx, fn.ID))

	n, ok := f.session.Node(req.Form.NodeID)
	require.True(t, ok)
	assert.Equal(t, fn.ID, n.Data.FunctionID)
	assert.Equal(t, "Crear ticket", n.Data.Name)
	_, editing := f.session.Editing()
	assert.False(t, editing)
	assert.Contains(t, f.types(), EditorClosed)
	assert.Equal(t, NodeUpdated, f.events[len(f.events)-1].Type)
}

func TestRefreshFailureKeepsData(t *testing.T) {
	f := newFixture(t)
	f.backend.FailNext("agent.getById", errors.New("offline"))

	err := f.session.Refresh(context.Background(), RootNodeID, "")
	require.Error(t, err)

	n, _ := f.session.Node(RootNodeID)
	assert.Equal(t, "Agente", n.Data.Name)
}

func TestOpenEditorIntegrationItem(t *testing.T) {
	f := newFixture(t)
	c, err := f.session.Drop(canvas.KindIntegrationItem, canvas.Point{}, nil)
	require.NoError(t, err)

	_, err = f.session.OpenEditor(c.Node.ID)
	assert.ErrorIs(t, err, ErrNotEditable)

	req, err := f.session.OpenEditor(RootNodeID)
	require.NoError(t, err)
	assert.Equal(t, "agent", req.Form.Modal)
	req.OnClose()
	_, editing := f.session.Editing()
	assert.False(t, editing)
}

func TestNodeMenuCreatesFunctionUnderPointer(t *testing.T) {
	f := newFixture(t)

	v, err := f.session.OpenNodeMenu(RootNodeID, canvas.Point{X: 990, Y: 100})
	require.NoError(t, err)
	require.Len(t, v.Entries, 2)
	assert.Equal(t, "Agregar función", v.Entries[0].Content)

	pos, err := f.session.MountMenu(NodeMenu, canvas.Size{Width: 120, Height: 80})
	require.NoError(t, err)
	assert.Equal(t, canvas.Point{X: 870, Y: 100}, pos)

	require.NoError(t, f.session.SelectMenuEntry(NodeMenu, 0))

	g := f.session.Snapshot()
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, canvas.Point{X: 990, Y: 100}, g.Nodes[1].Position)
	assert.Equal(t, RootNodeID, g.Nodes[1].Data.ParentNodeID)
	require.Len(t, g.Edges, 1)

	m, err := f.session.Menu(NodeMenu)
	require.NoError(t, err)
	assert.False(t, m.Open)
	assert.ErrorIs(t, f.session.SelectMenuEntry(NodeMenu, 0), ErrMenuClosed)
}

func TestMenuClosesOnOutsidePointer(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.OpenNodeMenu(RootNodeID, canvas.Point{X: 10, Y: 10})
	require.NoError(t, err)

	closed, err := f.session.MenuPointerDown(NodeMenu, true)
	require.NoError(t, err)
	assert.False(t, closed)

	closed, err = f.session.MenuPointerDown(NodeMenu, false)
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestEdgeMenuDeletesEdge(t *testing.T) {
	f := newFixture(t)
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)

	v, err := f.session.OpenEdgeMenu(c.Edge.ID, canvas.Point{X: 100, Y: 100})
	require.NoError(t, err)
	require.Len(t, v.Entries, 2)
	assert.Equal(t, IconAuth, v.Entries[0].Icon)

	require.NoError(t, f.session.SelectMenuEntry(EdgeMenu, 0))
	picker, ok := f.session.Picker()
	require.True(t, ok)
	assert.Equal(t, c.Edge.ID, picker)

	_, err = f.session.OpenEdgeMenu(c.Edge.ID, canvas.Point{X: 100, Y: 100})
	require.NoError(t, err)
	require.NoError(t, f.session.SelectMenuEntry(EdgeMenu, 1))
	_, ok = f.session.Edge(c.Edge.ID)
	assert.False(t, ok)
	_, ok = f.session.Picker()
	assert.False(t, ok)
}

func TestSelectAuthenticatorToggles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := f.backend.PutAuthenticator(remote.Authenticator{Name: "CRM", OrganizationID: "org"})
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)
	n, err := f.session.SaveFunction(ctx, c.Node.ID, FunctionInput{Name: "Buscar pedido"})
	require.NoError(t, err)

	opts, err := f.session.AuthOptions(ctx, c.Edge.ID)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.False(t, opts[0].Bound)

	e, err := f.session.SelectAuthenticator(ctx, c.Edge.ID, auth.ID)
	require.NoError(t, err)
	require.NotNil(t, e.Data)
	assert.Equal(t, auth.ID, e.Data.AuthenticatorID)
	assert.Equal(t, n.Data.FunctionID, e.Data.FunctionID)

	frame, err := f.session.Render()
	require.NoError(t, err)
	require.NotNil(t, frame.Edges[0].Auth)
	assert.Equal(t, authedge.IconLocked, frame.Edges[0].Auth.Icon)

	opts, err = f.session.AuthOptions(ctx, c.Edge.ID)
	require.NoError(t, err)
	assert.True(t, opts[0].Bound)

	e, err = f.session.SelectAuthenticator(ctx, c.Edge.ID, auth.ID)
	require.NoError(t, err)
	assert.Empty(t, e.Data.AuthenticatorID)
}

func TestSelectAuthenticatorFailureLeavesEdge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := f.backend.PutAuthenticator(remote.Authenticator{Name: "CRM", OrganizationID: "org"})
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)
	_, err = f.session.SaveFunction(ctx, c.Node.ID, FunctionInput{Name: "Buscar pedido"})
	require.NoError(t, err)

	f.backend.FailNext("function.assignAuthenticator", errors.New("denied"))
	_, err = f.session.SelectAuthenticator(ctx, c.Edge.ID, auth.ID)
	require.Error(t, err)

	e, ok := f.session.Edge(c.Edge.ID)
	require.True(t, ok)
	assert.Nil(t, e.Data)
}

func TestSelectAuthenticatorNeedsFunction(t *testing.T) {
	f := newFixture(t)
	c, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)

	_, err = f.session.SelectAuthenticator(context.Background(), c.Edge.ID, "auth")
	assert.ErrorIs(t, err, canvas.ErrFunctionNotFound)
}

func TestFitToSelectionIsExplicit(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.Drop(canvas.KindIntegration, canvas.Point{X: 600, Y: 400}, nil)
	require.NoError(t, err)

	require.NoError(t, f.session.Select(context.Background(), RootNodeID))
	assert.NotContains(t, f.types(), CameraMoved)

	tr, ok := f.session.FitToSelection()
	require.True(t, ok)
	assert.Equal(t, canvas.Point{X: 75, Y: 20}, tr.Bounds.Center())
}

func TestRenderRoutesDefaultEdges(t *testing.T) {
	f := newFixture(t)
	a, err := f.session.Drop(canvas.KindIntegration, canvas.Point{X: 0, Y: 300}, nil)
	require.NoError(t, err)
	b, err := f.session.Drop(canvas.KindIntegrationItem, canvas.Point{X: 400, Y: 300}, nil)
	require.NoError(t, err)
	_, err = f.session.Connect(factory.Connection{Source: a.Node.ID, Target: b.Node.ID})
	require.NoError(t, err)

	frame, err := f.session.Render()
	require.NoError(t, err)
	require.Len(t, frame.Edges, 1)
	e := frame.Edges[0]
	assert.Nil(t, e.Auth)
	require.NotNil(t, e.Params)
	assert.Contains(t, e.Params.Path, "M ")
}

func TestMetricsCountCreation(t *testing.T) {
	reg := metrics.NewRegistry()
	f := newFixture(t, WithMetrics(reg))

	_, err := f.session.CreateChild(RootNodeID)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.NodesCreated.WithLabelValues("funcion", "spacing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.EdgesCreated.WithLabelValues("auth")))
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	var n int
	stop := f.session.Subscribe(func(Event) { n++ })
	f.session.FitAll()
	stop()
	f.session.FitAll()
	assert.Equal(t, 1, n)
}
