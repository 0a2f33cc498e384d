package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/graph"
	"github.com/meikuraledutech/canvas/viewport"
)

var def = canvas.Size{Width: 100, Height: 100}

func model() *graph.Model {
	m := graph.New()
	m.AddNode(canvas.Node{ID: "a", Type: canvas.KindAgent, Position: canvas.Point{X: 0, Y: 0}})
	m.AddNode(canvas.Node{ID: "b", Type: canvas.KindFunction, Position: canvas.Point{X: 300, Y: 100}})
	m.AddNode(canvas.Node{ID: "c", Type: canvas.KindFunction, Position: canvas.Point{X: 900, Y: 900}})
	return m
}

func TestToggleAndSet(t *testing.T) {
	c := New()
	assert.True(t, c.Toggle("a"))
	assert.True(t, c.Toggle("b"))
	assert.False(t, c.Toggle("a"))
	assert.Equal(t, []string{"b"}, c.Selected())

	c.Set("x", "y", "x")
	assert.Equal(t, []string{"x", "y"}, c.Selected())
	c.Clear()
	assert.Empty(t, c.Selected())
}

func TestApplyWritesFlags(t *testing.T) {
	m := model()
	c := New()
	c.Select("b")
	changed := c.Apply(m)
	require.Len(t, changed, 1)
	assert.Equal(t, "b", changed[0].ID)
	assert.True(t, changed[0].Selected)

	b, _ := m.Node("b")
	a, _ := m.Node("a")
	assert.True(t, b.Selected)
	assert.False(t, a.Selected)

	assert.Empty(t, c.Apply(m))

	c.Set("a")
	changed = c.Apply(m)
	require.Len(t, changed, 2)
	assert.Equal(t, []string{"a", "b"}, []string{changed[0].ID, changed[1].ID})
	assert.False(t, changed[1].Selected)
}

func TestFitToSelectionCentersOnSelectedOnly(t *testing.T) {
	m := model()
	cam := viewport.NewState(canvas.Size{Width: 800, Height: 600}, nil)
	c := New()
	c.Set("a", "b")

	tr, ok := c.FitToSelection(m, cam, def, viewport.FitOptions{Duration: 300 * time.Millisecond})
	require.True(t, ok)

	// a ∪ b spans (0,0)-(400,200); its center lands mid-viewport
	assert.Equal(t, canvas.Point{X: 200, Y: 100}, canvas.Point{X: tr.Bounds.X, Y: tr.Bounds.Y})
	assert.Equal(t, viewport.Transform{X: 200, Y: 200, Zoom: 1}, tr.Target)
}

func TestSelectingEverythingDoesNotMoveCamera(t *testing.T) {
	m := model()
	cam := viewport.NewState(canvas.Size{Width: 800, Height: 600}, nil)
	c := New()
	c.Set("a", "b", "c")
	c.Apply(m)

	_, moved := cam.Last()
	assert.False(t, moved)
}

func TestFitToSelectionNothingSelected(t *testing.T) {
	m := model()
	cam := viewport.NewState(canvas.Size{Width: 800, Height: 600}, nil)
	c := New()
	c.Select("ghost")

	_, ok := c.FitToSelection(m, cam, def, viewport.FitOptions{})
	assert.False(t, ok)

	c.Prune(m)
	assert.Empty(t, c.Selected())
}
