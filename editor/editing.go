package editor

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/nodes"
	"github.com/meikuraledutech/canvas/remote"
)

// EditRequest is handed to the collaborator that owns a node's edit
// modal: the values to prefill and the two ways the modal can end.
type EditRequest struct {
	Form nodes.Form
	// OnSuccess is called once the collaborator saved the resource.
	// resourceID is the id of the saved backend record; it binds a new
	// function node to the function just created.
	OnSuccess func(ctx context.Context, resourceID string) error
	// OnClose dismisses the modal without refreshing anything.
	OnClose func()
}

// OpenEditor opens the edit modal of a node.
func (s *Session) OpenEditor(nodeID string) (EditRequest, error) {
	b := s.lock()
	defer s.unlock(b)
	form, err := s.openEditor(b, nodeID)
	if err != nil {
		return EditRequest{}, err
	}
	return s.request(form), nil
}

func (s *Session) openEditor(b *batch, nodeID string) (nodes.Form, error) {
	n, ok := s.model.Node(nodeID)
	if !ok {
		return nodes.Form{}, fmt.Errorf("editor: open editor %s: %w", nodeID, canvas.ErrNodeNotFound)
	}
	beh, err := nodes.For(n.Type)
	if err != nil {
		return nodes.Form{}, err
	}
	form := beh.Form(n)
	if !form.Editable() {
		return nodes.Form{}, fmt.Errorf("editor: %s: %w", nodeID, ErrNotEditable)
	}
	s.editing = &form
	b.add(Event{Type: EditorRequested, GraphID: s.ID(), ID: nodeID, Form: &form})
	return form, nil
}

// CloseEditor dismisses the open edit modal without refreshing.
func (s *Session) CloseEditor() {
	form, ok := s.Editing()
	if ok {
		s.closeEditor(form.NodeID)
	}
}

// Editing returns the form of the open edit modal, if any.
func (s *Session) Editing() (nodes.Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return nodes.Form{}, false
	}
	return *s.editing, true
}

// Request returns the EditRequest of the open modal.
func (s *Session) Request() (EditRequest, bool) {
	form, ok := s.Editing()
	if !ok {
		return EditRequest{}, false
	}
	return s.request(form), true
}

func (s *Session) request(form nodes.Form) EditRequest {
	id := form.NodeID
	return EditRequest{
		Form: form,
		OnSuccess: func(ctx context.Context, resourceID string) error {
			s.closeEditor(id)
			return s.Refresh(ctx, id, resourceID)
		},
		OnClose: func() { s.closeEditor(id) },
	}
}

func (s *Session) closeEditor(nodeID string) {
	b := s.lock()
	defer s.unlock(b)
	if s.editing == nil || s.editing.NodeID != nodeID {
		return
	}
	s.editing = nil
	b.add(Event{Type: EditorClosed, GraphID: s.ID(), ID: nodeID})
}

// Refresh reloads a node's backing resource and merges it into the node.
// A non-empty resourceID first binds an unconfigured function node to it.
// On failure the node keeps its current data.
func (s *Session) Refresh(ctx context.Context, nodeID, resourceID string) error {
	n, ok := s.Node(nodeID)
	if !ok {
		return fmt.Errorf("editor: refresh %s: %w", nodeID, canvas.ErrNodeNotFound)
	}
	beh, err := nodes.For(n.Type)
	if err != nil {
		return err
	}
	if resourceID != "" && n.Type == canvas.KindFunction {
		n.Data.FunctionID = resourceID
	}

	res, err := remote.Do(ctx, s.runner, remote.Operation{
		Title: "Actualizar nodo",
		Error: "No se pudo actualizar " + n.Data.Name,
	}, func(ctx context.Context) (nodes.Resource, error) {
		return beh.Load(ctx, s.services, n)
	})
	if err != nil {
		return err
	}

	b := s.lock()
	defer s.unlock(b)
	merged := beh.Merge(n, res)
	updated, err := s.model.UpdateNode(nodeID, func(cur *canvas.Node) { cur.Data = merged })
	if err != nil {
		// removed while the refresh was in flight
		return err
	}
	if res != nil {
		s.states[nodeID] = nodes.State{Resource: res}
	}
	b.add(nodeEvent(NodeUpdated, s.ID(), updated))
	return nil
}

// FunctionInput is what a function form submits.
type FunctionInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// SaveFunction creates or updates the backend function behind a function
// node and merges the result into the node.
func (s *Session) SaveFunction(ctx context.Context, nodeID string, in FunctionInput) (canvas.Node, error) {
	n, ok := s.Node(nodeID)
	if !ok {
		return canvas.Node{}, fmt.Errorf("editor: save function %s: %w", nodeID, canvas.ErrNodeNotFound)
	}
	if n.Type != canvas.KindFunction {
		return canvas.Node{}, fmt.Errorf("editor: save function on %s node: %w", n.Type, ErrNotEditable)
	}
	agentID := n.Data.AgentID
	if agentID == "" {
		agentID = s.cfg.AgentID
	}

	fn := &remote.Function{ID: n.Data.FunctionID, AgentID: agentID, Name: in.Name, Description: in.Description}
	op := remote.Operation{Title: "Crear función", Success: "Función creada", Error: "No se pudo crear la función"}
	call := s.services.Functions.Create
	if fn.ID != "" {
		op = remote.Operation{Title: "Actualizar función", Success: "Función actualizada", Error: "No se pudo actualizar la función"}
		call = s.services.Functions.Update
	}
	saved, err := remote.Do(ctx, s.runner, op, func(ctx context.Context) (*remote.Function, error) {
		return call(ctx, fn)
	})
	if err != nil {
		return canvas.Node{}, err
	}

	b := s.lock()
	defer s.unlock(b)
	beh, _ := nodes.For(canvas.KindFunction)
	updated, err := s.model.UpdateNode(nodeID, func(cur *canvas.Node) {
		cur.Data = beh.Merge(*cur, saved)
		cur.Data.AgentID = agentID
	})
	if err != nil {
		return canvas.Node{}, err
	}
	s.states[nodeID] = nodes.State{Resource: saved}
	if s.editing != nil && s.editing.NodeID == nodeID {
		s.editing = nil
		b.add(Event{Type: EditorClosed, GraphID: s.ID(), ID: nodeID})
	}
	b.add(nodeEvent(NodeUpdated, s.ID(), updated))
	return updated, nil
}
