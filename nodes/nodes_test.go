package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/remote"
	"github.com/meikuraledutech/canvas/remote/memory"
)

var defSize = canvas.Size{Width: 150, Height: 40}

func TestForCoversEveryKind(t *testing.T) {
	for _, k := range canvas.Kinds {
		b, err := For(k)
		require.NoError(t, err, k)
		assert.Equal(t, k, b.Kind())
	}
	_, err := For("workflow")
	assert.ErrorIs(t, err, canvas.ErrUnknownKind)
}

func TestAllowedConnections(t *testing.T) {
	assert.True(t, Allows(canvas.KindAgent, canvas.RoleSource))
	assert.True(t, Allows(canvas.KindAgent, canvas.RoleTarget))
	assert.False(t, Allows(canvas.KindFunction, canvas.RoleSource))
	assert.False(t, Allows(canvas.KindIntegration, canvas.RoleTarget))
	assert.Nil(t, AllowedConnections("bogus"))
}

func TestValidateConnection(t *testing.T) {
	agent := canvas.Node{ID: "agent", Type: canvas.KindAgent}
	fn := canvas.Node{ID: "f", Type: canvas.KindFunction}
	integration := canvas.Node{ID: "i", Type: canvas.KindIntegration}

	assert.NoError(t, ValidateConnection(agent, fn))
	assert.NoError(t, ValidateConnection(integration, agent))
	assert.ErrorIs(t, ValidateConnection(fn, agent), canvas.ErrConnectionNotAllowed)
	assert.ErrorIs(t, ValidateConnection(agent, integration), canvas.ErrConnectionNotAllowed)
}

func TestRenderUnselectedShowsLabel(t *testing.T) {
	n := canvas.Node{ID: "f", Type: canvas.KindFunction, Position: canvas.Point{X: 10, Y: 20}, Data: canvas.NodeData{Name: "lookup"}}

	v, err := Render(n, defSize, State{})
	require.NoError(t, err)

	assert.True(t, v.ShowLabel)
	assert.Equal(t, "lookup", v.Label)
	assert.Nil(t, v.Body)
	assert.Equal(t, LayoutExpanded, v.Layout)
	require.Len(t, v.Handles, 1, "functions only accept incoming connections")
	assert.Equal(t, canvas.HandleID("target-left"), v.Handles[0].ID)
	assert.Equal(t, canvas.Point{X: 85, Y: 40}, v.Handles[0].Position)
}

func TestRenderSelectedShowsBody(t *testing.T) {
	n := canvas.Node{ID: "agent", Type: canvas.KindAgent, Selected: true,
		Data: canvas.NodeData{Name: "support", Style: canvas.StyleCentral}}

	v, err := Render(n, defSize, State{Resource: &remote.Agent{ID: "a1", Name: "Support bot", Functions: make([]remote.Function, 2)}})
	require.NoError(t, err)

	assert.False(t, v.ShowLabel)
	assert.Empty(t, v.Label)
	assert.Equal(t, LayoutCompact, v.Layout)
	require.NotNil(t, v.Body)
	assert.Equal(t, "Support bot", v.Body.Title)
	assert.Contains(t, v.Body.Fields, Field{Label: "Funciones", Value: "2"})
	assert.Len(t, v.Handles, 2)
	assert.Equal(t, ActionAddFunction, v.Actions[1].ID)
}

func TestFunctionAutoOpensUntilConfigured(t *testing.T) {
	b, err := For(canvas.KindFunction)
	require.NoError(t, err)

	assert.True(t, b.AutoOpenEditor(canvas.Node{Data: canvas.NodeData{Name: "Nueva Función"}}))
	assert.False(t, b.AutoOpenEditor(canvas.Node{Data: canvas.NodeData{FunctionID: "fn"}}))
}

func TestLoadAndMerge(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	svc := backend.Services()
	agent := backend.PutAgent(remote.Agent{Name: "support", Description: "helps"})
	fn, err := svc.Functions.Create(ctx, &remote.Function{AgentID: agent.ID, Name: "lookup", Description: "find orders"})
	require.NoError(t, err)

	b, _ := For(canvas.KindFunction)
	n := canvas.Node{ID: "funcion-1", Type: canvas.KindFunction, Data: canvas.NodeData{AgentID: agent.ID, FunctionID: fn.ID}}
	res, err := b.Load(ctx, svc, n)
	require.NoError(t, err)
	d := b.Merge(n, res)
	assert.Equal(t, "lookup", d.Name)
	assert.Equal(t, "find orders", d.Description)

	n.Data.FunctionID = "gone"
	_, err = b.Load(ctx, svc, n)
	assert.ErrorIs(t, err, canvas.ErrFunctionNotFound)

	n.Data.FunctionID = ""
	res, err = b.Load(ctx, svc, n)
	assert.NoError(t, err)
	assert.Nil(t, res, "unconfigured function has nothing to load")
}

func TestIntegrationLoadsWebChat(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	agent := backend.PutAgent(remote.Agent{Name: "support"})

	b, _ := For(canvas.KindIntegration)
	n := canvas.Node{ID: "integration-1", Type: canvas.KindIntegration,
		Data: canvas.NodeData{AgentID: agent.ID, IntegrationType: IntegrationWebChat}}
	res, err := b.Load(ctx, backend.Services(), n)
	require.NoError(t, err)

	d := b.Merge(n, res)
	assert.Equal(t, false, d.Config["enabled"])
	assert.Equal(t, "chat", b.Icon(n))
}

func TestIntegrationItemHasNoEditor(t *testing.T) {
	b, _ := For(canvas.KindIntegrationItem)
	assert.False(t, b.Form(canvas.Node{ID: "x"}).Editable())
}
