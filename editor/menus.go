package editor

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/authedge"
	"github.com/meikuraledutech/canvas/factory"
	"github.com/meikuraledutech/canvas/menu"
)

// MenuTarget selects which popup a menu call addresses.
type MenuTarget string

const (
	NodeMenu MenuTarget = "node"
	EdgeMenu MenuTarget = "edge"
)

// Icons of the per-edge menu.
const (
	IconAuth   = authedge.IconLocked
	IconDelete = "trash"
)

// ── Node menu ────────────────────────────────────────────────────────

// OpenNodeMenu opens the context menu of a node at a screen point.
func (s *Session) OpenNodeMenu(nodeID string, screen canvas.Point) (menu.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.model.Node(nodeID)
	if !ok {
		return menu.View{}, fmt.Errorf("editor: node menu %s: %w", nodeID, canvas.ErrNodeNotFound)
	}
	var entries []menu.Entry
	if n.Type == canvas.KindAgent {
		entries = append(entries, menu.Entry{
			Content: "Agregar función",
			Tooltip: "Crea una función en este punto",
			OnClick: func() error {
				_, err := s.createFromMenu(s.pending, factory.MenuState{Screen: screen, NodeID: nodeID})
				return err
			},
		})
	}
	if n.Type != canvas.KindIntegrationItem {
		entries = append(entries, menu.Entry{
			Content: "Editar",
			OnClick: func() error {
				_, err := s.openEditor(s.pending, nodeID)
				return err
			},
		})
	}
	s.edgeMenu.Close()
	s.nodeMenu.SetEntries(entries...)
	s.nodeMenu.Open(screen)
	return s.nodeMenu.View(), nil
}

// ── Edge menu ────────────────────────────────────────────────────────

// OpenEdgeMenu opens the icon menu of an edge at a screen point. Edges
// into a configured function offer the authenticator picker.
func (s *Session) OpenEdgeMenu(edgeID string, screen canvas.Point) (menu.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.model.Edge(edgeID)
	if !ok {
		return menu.View{}, fmt.Errorf("editor: edge menu %s: %w", edgeID, canvas.ErrEdgeNotFound)
	}
	var items []menu.IconItem
	if e.Type == canvas.EdgeAuth {
		items = append(items, menu.IconItem{
			Icon:    IconAuth,
			Tooltip: "Autenticación",
			OnClick: func() error {
				s.picker = edgeID
				return nil
			},
		})
	}
	items = append(items, menu.IconItem{
		Icon:    IconDelete,
		Tooltip: "Eliminar conexión",
		OnClick: func() error { return s.removeEdge(s.pending, edgeID) },
	})
	s.nodeMenu.Close()
	s.edgeMenu = menu.NewIconMenu(items...)
	s.edgeMenu.Open(screen)
	return s.edgeMenu.View(), nil
}

// ── Shared popup handling ────────────────────────────────────────────

func (s *Session) placement(t MenuTarget) (*menu.Placement, error) {
	switch t {
	case NodeMenu:
		return &s.nodeMenu.Placement, nil
	case EdgeMenu:
		return &s.edgeMenu.Placement, nil
	}
	return nil, fmt.Errorf("editor: unknown menu %q", t)
}

// MountMenu records the measured size of an open popup and returns its
// position, flipped to stay inside the viewport.
func (s *Session) MountMenu(t MenuTarget, size canvas.Size) (canvas.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.placement(t)
	if err != nil {
		return canvas.Point{}, err
	}
	if !p.IsOpen() {
		return canvas.Point{}, ErrMenuClosed
	}
	return p.Mount(size, s.camera.Size()), nil
}

// MenuPointerDown forwards a pointer-down to a popup. It reports whether
// the popup closed.
func (s *Session) MenuPointerDown(t MenuTarget, inside bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.placement(t)
	if err != nil {
		return false, err
	}
	return p.PointerDown(inside), nil
}

// SelectMenuEntry runs entry i of a popup and closes it.
func (s *Session) SelectMenuEntry(t MenuTarget, i int) error {
	b := s.lock()
	defer s.unlock(b)

	p, err := s.placement(t)
	if err != nil {
		return err
	}
	if !p.IsOpen() {
		return ErrMenuClosed
	}
	s.pending = b
	defer func() { s.pending = nil }()
	if t == NodeMenu {
		return s.nodeMenu.Select(i)
	}
	return s.edgeMenu.Select(i)
}

// Menu returns the state of a popup.
func (s *Session) Menu(t MenuTarget) (menu.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t {
	case NodeMenu:
		return s.nodeMenu.View(), nil
	case EdgeMenu:
		return s.edgeMenu.View(), nil
	}
	return menu.View{}, fmt.Errorf("editor: unknown menu %q", t)
}

func (s *Session) removeEdge(b *batch, id string) error {
	e, _ := s.model.Edge(id)
	if err := s.model.RemoveEdge(id); err != nil {
		return err
	}
	if s.picker == id {
		s.picker = ""
	}
	b.add(edgeEvent(EdgeRemoved, s.ID(), e))
	s.countEdgeRemoved(1)
	return nil
}

// ── Authenticator picker ─────────────────────────────────────────────

// Picker returns the edge whose authenticator picker is open.
func (s *Session) Picker() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.picker, s.picker != ""
}

// OpenPicker opens the authenticator picker of an edge directly, as
// clicking the icon at an auth edge's label point does.
func (s *Session) OpenPicker(edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.model.Edge(edgeID); !ok {
		return fmt.Errorf("editor: picker %s: %w", edgeID, canvas.ErrEdgeNotFound)
	}
	s.picker = edgeID
	return nil
}

// ClosePicker closes the authenticator picker.
func (s *Session) ClosePicker() {
	s.mu.Lock()
	s.picker = ""
	s.mu.Unlock()
}

// AuthOptions lists the organization's authenticators for an edge,
// marking the one currently bound.
func (s *Session) AuthOptions(ctx context.Context, edgeID string) ([]authedge.Option, error) {
	e, ok := s.Edge(edgeID)
	if !ok {
		return nil, fmt.Errorf("editor: auth options %s: %w", edgeID, canvas.ErrEdgeNotFound)
	}
	return s.binder.List(ctx, authedge.BoundID(e), s.cfg.OrganizationID)
}

// SelectAuthenticator binds authenticatorID to the function behind an
// edge. Selecting the bound authenticator again unbinds it. The edge only
// changes once the backend accepted the assignment.
func (s *Session) SelectAuthenticator(ctx context.Context, edgeID, authenticatorID string) (canvas.Edge, error) {
	s.mu.Lock()
	bd, err := s.binder.Prepare(edgeID, authenticatorID)
	s.mu.Unlock()
	if err != nil {
		return canvas.Edge{}, err
	}

	if err := s.binder.Assign(ctx, bd); err != nil {
		return canvas.Edge{}, err
	}

	b := s.lock()
	defer s.unlock(b)
	e, err := s.binder.Apply(bd)
	if err != nil {
		return canvas.Edge{}, err
	}
	if s.picker == edgeID {
		s.picker = ""
	}
	b.add(edgeEvent(EdgeUpdated, s.ID(), e))
	return e, nil
}
