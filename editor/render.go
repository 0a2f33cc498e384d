package editor

import (
	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/authedge"
	"github.com/meikuraledutech/canvas/geometry"
	"github.com/meikuraledutech/canvas/menu"
	"github.com/meikuraledutech/canvas/nodes"
	"github.com/meikuraledutech/canvas/viewport"
)

// EdgeView is the render descriptor of one edge. Dangling edges, whose
// source or target no longer exists, carry no geometry.
type EdgeView struct {
	ID       string           `json:"id"`
	Type     canvas.EdgeType  `json:"type"`
	Source   string           `json:"source"`
	Target   string           `json:"target"`
	Params   *geometry.Params `json:"params,omitempty"`
	Auth     *authedge.View   `json:"auth,omitempty"`
	Dangling bool             `json:"dangling,omitempty"`
}

// Frame is everything a renderer needs to draw the canvas once.
type Frame struct {
	Nodes     []nodes.View       `json:"nodes"`
	Edges     []EdgeView         `json:"edges"`
	Camera    viewport.Transform `json:"camera"`
	Selection []string           `json:"selection"`
	NodeMenu  menu.View          `json:"nodeMenu"`
	EdgeMenu  menu.View          `json:"edgeMenu"`
	Picker    string             `json:"picker,omitempty"`
	Editing   *nodes.Form        `json:"editing,omitempty"`
}

// Render builds a Frame of the current state.
func (s *Session) Render() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.factoryOptions().DefaultSize
	f := Frame{
		Camera:    s.camera.Transform(),
		Selection: s.selection.Selected(),
		NodeMenu:  s.nodeMenu.View(),
		EdgeMenu:  s.edgeMenu.View(),
		Picker:    s.picker,
	}
	if s.editing != nil {
		form := *s.editing
		f.Editing = &form
	}

	ns := s.model.Nodes()
	boxes := make(map[string]geometry.Box, len(ns))
	for _, n := range ns {
		v, err := nodes.Render(n, def, s.states[n.ID])
		if err != nil {
			return Frame{}, err
		}
		f.Nodes = append(f.Nodes, v)
		boxes[n.ID] = geometry.FromRect(v.Box)
	}

	for _, e := range s.model.Edges() {
		v := EdgeView{ID: e.ID, Type: e.Type, Source: e.Source, Target: e.Target}
		src, okS := boxes[e.Source]
		dst, okT := boxes[e.Target]
		switch {
		case !okS || !okT:
			v.Dangling = true
		case e.Type == canvas.EdgeAuth:
			av := s.binder.View(e, src, dst)
			v.Auth = &av
			v.Params = &av.Params
		default:
			p := geometry.EdgeParams(src, dst, e.SourceHandle.Anchor(), e.TargetHandle.Anchor(), s.cfg.Geometry)
			v.Params = &p
		}
		f.Edges = append(f.Edges, v)
	}
	return f, nil
}
