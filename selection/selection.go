// Package selection tracks which canvas nodes are selected and frames them
// on request.
package selection

import (
	"slices"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/graph"
	"github.com/meikuraledutech/canvas/viewport"
)

// Controller holds the selected node ids in selection order.
type Controller struct {
	ids []string
}

func New() *Controller { return &Controller{} }

// Set replaces the selection.
func (c *Controller) Set(ids ...string) {
	c.ids = c.ids[:0]
	for _, id := range ids {
		if !slices.Contains(c.ids, id) {
			c.ids = append(c.ids, id)
		}
	}
}

// Select adds id to the selection.
func (c *Controller) Select(id string) {
	if !slices.Contains(c.ids, id) {
		c.ids = append(c.ids, id)
	}
}

// Deselect removes id from the selection.
func (c *Controller) Deselect(id string) {
	c.ids = slices.DeleteFunc(c.ids, func(x string) bool { return x == id })
}

// Toggle flips id and reports whether it is now selected.
func (c *Controller) Toggle(id string) bool {
	if c.IsSelected(id) {
		c.Deselect(id)
		return false
	}
	c.ids = append(c.ids, id)
	return true
}

func (c *Controller) Clear()                    { c.ids = c.ids[:0] }
func (c *Controller) IsSelected(id string) bool { return slices.Contains(c.ids, id) }

// Selected returns a copy of the selected ids.
func (c *Controller) Selected() []string { return slices.Clone(c.ids) }

// Apply writes the selection into the Selected flag of every node and
// returns the nodes whose flag changed.
func (c *Controller) Apply(m *graph.Model) []canvas.Node {
	var changed []canvas.Node
	for _, n := range m.Nodes() {
		want := c.IsSelected(n.ID)
		if n.Selected == want {
			continue
		}
		if u, err := m.UpdateNode(n.ID, func(n *canvas.Node) { n.Selected = want }); err == nil {
			changed = append(changed, u)
		}
	}
	return changed
}

// Prune drops ids that no longer exist in m.
func (c *Controller) Prune(m *graph.Model) {
	c.ids = slices.DeleteFunc(c.ids, func(id string) bool {
		_, ok := m.Node(id)
		return !ok
	})
}

// FitToSelection centers the camera on the bounding box of the selected
// nodes. It runs only when asked; selecting nodes never moves the camera
// by itself. ok is false when nothing selected exists in m.
func (c *Controller) FitToSelection(m *graph.Model, cam viewport.Camera, def canvas.Size, opts viewport.FitOptions) (viewport.Transition, bool) {
	var selected []canvas.Node
	for _, id := range c.ids {
		if n, ok := m.Node(id); ok {
			selected = append(selected, n)
		}
	}
	bounds, ok := graph.BoundsOf(selected, def)
	if !ok {
		return viewport.Transition{}, false
	}
	return cam.SetCenter(bounds.Center(), opts), true
}
