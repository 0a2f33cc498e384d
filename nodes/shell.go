package nodes

import (
	"github.com/meikuraledutech/canvas"
)

// Layout is the form a node shell takes.
type Layout string

const (
	// LayoutCompact is the circular button form of CENTRAL nodes.
	LayoutCompact Layout = "compact"
	// LayoutExpanded is the panel form.
	LayoutExpanded Layout = "expanded"
)

// HandleView is one connection handle. Handles are invisible and sit at
// the node's visual center whatever their anchor.
type HandleView struct {
	ID       canvas.HandleID   `json:"id"`
	Role     canvas.HandleRole `json:"role"`
	Anchor   canvas.Anchor     `json:"anchor"`
	Position canvas.Point      `json:"position"`
}

// View is the render descriptor of one node.
type View struct {
	ID        string          `json:"id"`
	Kind      canvas.NodeKind `json:"kind"`
	Box       canvas.Rect     `json:"box"`
	Layout    Layout          `json:"layout"`
	Icon      string          `json:"icon"`
	Selected  bool            `json:"selected"`
	ShowLabel bool            `json:"showLabel"`
	Label     string          `json:"label,omitempty"`
	Handles   []HandleView    `json:"handles"`
	Body      *Body           `json:"body,omitempty"`
	Actions   []Action        `json:"actions,omitempty"`
	Loading   bool            `json:"loading,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// State is the per-node UI state the shell renders alongside the node.
type State struct {
	Resource Resource
	Loading  bool
	Err      error
}

// Render builds the view of n through the behavior of its kind. def
// supplies the size of nodes the renderer has not measured yet.
func Render(n canvas.Node, def canvas.Size, st State) (View, error) {
	b, err := For(n.Type)
	if err != nil {
		return View{}, err
	}

	box := n.Box(def)
	v := View{
		ID:       n.ID,
		Kind:     n.Type,
		Box:      box,
		Layout:   LayoutExpanded,
		Icon:     b.Icon(n),
		Selected: n.Selected,
		Loading:  st.Loading,
	}
	if n.Data.Style == canvas.StyleCentral {
		v.Layout = LayoutCompact
	}
	if st.Err != nil {
		v.Error = st.Err.Error()
	}

	center := box.Center()
	for _, role := range AllowedConnections(n.Type) {
		anchor := defaultAnchor(role)
		v.Handles = append(v.Handles, HandleView{
			ID:       canvas.Handle(role, anchor),
			Role:     role,
			Anchor:   anchor,
			Position: center,
		})
	}

	if n.Selected {
		body := b.Body(n, st.Resource)
		v.Body = &body
		v.Actions = b.Actions(n)
	} else {
		v.ShowLabel = true
		v.Label = n.Data.Name
	}
	return v, nil
}
