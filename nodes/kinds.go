// Package nodes implements per-kind node behavior and the shared shell
// every kind is rendered through.
package nodes

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/remote"
)

// Resource is the backend record a selected node loads.
type Resource interface {
	ResourceID() string
}

// Field is one label/value line of a node body.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Body is the expanded content of a selected node.
type Body struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields,omitempty"`
}

// Action is a header button of a selected node.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

const (
	ActionEdit        = "edit"
	ActionAddFunction = "add-function"
	ActionDelete      = "delete"
)

// Form is what an edit modal is opened with.
type Form struct {
	Modal  string          `json:"modal"`
	NodeID string          `json:"nodeId"`
	Values canvas.NodeData `json:"values"`
}

// Editable reports whether the node kind has an edit modal at all.
func (f Form) Editable() bool { return f.Modal != "" }

// Behavior is everything that differs between node kinds.
type Behavior interface {
	Kind() canvas.NodeKind
	Icon(n canvas.Node) string
	// Load fetches the backing resource. It is only called once the node
	// is selected. A nil Resource with nil error means nothing to load.
	Load(ctx context.Context, svc remote.Services, n canvas.Node) (Resource, error)
	Body(n canvas.Node, res Resource) Body
	Actions(n canvas.Node) []Action
	Form(n canvas.Node) Form
	// AutoOpenEditor reports whether the edit modal must open as soon as
	// the node appears.
	AutoOpenEditor(n canvas.Node) bool
	// Merge folds a freshly loaded resource into the node's data.
	Merge(n canvas.Node, res Resource) canvas.NodeData
}

// Visitor has one method per node kind. Adding a kind to the interface
// breaks every visitor until it handles the new case.
type Visitor[T any] interface {
	Agent() T
	Function() T
	Integration() T
	IntegrationItem() T
}

// Visit dispatches kind to the matching method of v.
func Visit[T any](kind canvas.NodeKind, v Visitor[T]) (T, error) {
	switch kind {
	case canvas.KindAgent:
		return v.Agent(), nil
	case canvas.KindFunction:
		return v.Function(), nil
	case canvas.KindIntegration:
		return v.Integration(), nil
	case canvas.KindIntegrationItem:
		return v.IntegrationItem(), nil
	}
	var zero T
	return zero, fmt.Errorf("nodes: %q: %w", kind, canvas.ErrUnknownKind)
}

type registry struct{}

func (registry) Agent() Behavior           { return agentNode{} }
func (registry) Function() Behavior        { return functionNode{} }
func (registry) Integration() Behavior     { return integrationNode{} }
func (registry) IntegrationItem() Behavior { return integrationItemNode{} }

// For returns the behavior of kind.
func For(kind canvas.NodeKind) (Behavior, error) {
	return Visit[Behavior](kind, registry{})
}

var editAction = Action{ID: ActionEdit, Label: "Editar", Icon: "pencil"}

// ── Agent ────────────────────────────────────────────────────────────

type agentNode struct{}

func (agentNode) Kind() canvas.NodeKind   { return canvas.KindAgent }
func (agentNode) Icon(canvas.Node) string { return "robot" }

func (agentNode) Load(ctx context.Context, svc remote.Services, n canvas.Node) (Resource, error) {
	if n.Data.AgentID == "" {
		return nil, fmt.Errorf("nodes: agent node %s: %w", n.ID, canvas.ErrMissingAgent)
	}
	a, err := svc.Agents.GetByID(ctx, n.Data.AgentID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (agentNode) Body(n canvas.Node, res Resource) Body {
	b := Body{Title: n.Data.Name, Fields: []Field{{Label: "Descripción", Value: n.Data.Description}}}
	if a, ok := res.(*remote.Agent); ok {
		b.Title = a.Name
		b.Fields = []Field{
			{Label: "Descripción", Value: a.Description},
			{Label: "Funciones", Value: strconv.Itoa(len(a.Functions))},
		}
	}
	return b
}

func (agentNode) Actions(canvas.Node) []Action {
	return []Action{
		editAction,
		{ID: ActionAddFunction, Label: "Agregar función", Icon: "plus"},
	}
}

func (agentNode) Form(n canvas.Node) Form {
	return Form{Modal: "agent", NodeID: n.ID, Values: n.Data}
}

func (agentNode) AutoOpenEditor(canvas.Node) bool { return false }

func (agentNode) Merge(n canvas.Node, res Resource) canvas.NodeData {
	d := n.Data
	if a, ok := res.(*remote.Agent); ok {
		d.Name = a.Name
		d.Description = a.Description
	}
	return d
}

// ── Function ─────────────────────────────────────────────────────────

type functionNode struct{}

func (functionNode) Kind() canvas.NodeKind   { return canvas.KindFunction }
func (functionNode) Icon(canvas.Node) string { return "function" }

// Load finds the function inside its agent; the backend exposes functions
// only through their agent.
func (functionNode) Load(ctx context.Context, svc remote.Services, n canvas.Node) (Resource, error) {
	if n.Data.FunctionID == "" {
		return nil, nil
	}
	if n.Data.AgentID == "" {
		return nil, fmt.Errorf("nodes: function node %s: %w", n.ID, canvas.ErrMissingAgent)
	}
	a, err := svc.Agents.GetByID(ctx, n.Data.AgentID)
	if err != nil {
		return nil, err
	}
	for i := range a.Functions {
		if a.Functions[i].ID == n.Data.FunctionID {
			return &a.Functions[i], nil
		}
	}
	return nil, fmt.Errorf("nodes: function %s: %w", n.Data.FunctionID, canvas.ErrFunctionNotFound)
}

func (functionNode) Body(n canvas.Node, res Resource) Body {
	b := Body{Title: n.Data.Name, Fields: []Field{{Label: "Descripción", Value: n.Data.Description}}}
	f, ok := res.(*remote.Function)
	if !ok {
		if n.Data.FunctionID == "" {
			b.Fields = append(b.Fields, Field{Label: "Estado", Value: "Sin configurar"})
		}
		return b
	}
	auth := "Ninguno"
	if f.AuthenticatorID != "" {
		auth = f.AuthenticatorID
	}
	b.Title = f.Name
	b.Fields = []Field{
		{Label: "Descripción", Value: f.Description},
		{Label: "Parámetros", Value: strconv.Itoa(len(f.Params))},
		{Label: "Autenticador", Value: auth},
	}
	return b
}

func (functionNode) Actions(canvas.Node) []Action {
	return []Action{editAction, {ID: ActionDelete, Label: "Eliminar", Icon: "trash"}}
}

func (functionNode) Form(n canvas.Node) Form {
	return Form{Modal: "function", NodeID: n.ID, Values: n.Data}
}

// AutoOpenEditor: a function without a backing id is not configured yet.
func (functionNode) AutoOpenEditor(n canvas.Node) bool { return n.Data.FunctionID == "" }

func (functionNode) Merge(n canvas.Node, res Resource) canvas.NodeData {
	d := n.Data
	if f, ok := res.(*remote.Function); ok {
		d.Name = f.Name
		d.Description = f.Description
		d.FunctionID = f.ID
	}
	return d
}

// ── Integration ──────────────────────────────────────────────────────

// IntegrationWebChat is the integrationType of web chat channel nodes.
const IntegrationWebChat = "webchat"

type integrationNode struct{}

func (integrationNode) Kind() canvas.NodeKind { return canvas.KindIntegration }

func (integrationNode) Icon(n canvas.Node) string {
	if n.Data.IntegrationType == IntegrationWebChat {
		return "chat"
	}
	return "plug"
}

func (integrationNode) Load(ctx context.Context, svc remote.Services, n canvas.Node) (Resource, error) {
	if n.Data.IntegrationType != IntegrationWebChat {
		return nil, nil
	}
	if n.Data.AgentID == "" {
		return nil, fmt.Errorf("nodes: integration node %s: %w", n.ID, canvas.ErrMissingAgent)
	}
	w, err := svc.Integrations.GetWebChat(ctx, n.Data.AgentID)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (integrationNode) Body(n canvas.Node, res Resource) Body {
	b := Body{Title: n.Data.Name}
	if w, ok := res.(*remote.WebChat); ok {
		state := "Inactivo"
		if w.Enabled {
			state = "Activo"
		}
		b.Fields = append(b.Fields, Field{Label: "Estado", Value: state})
	}
	return b
}

func (integrationNode) Actions(canvas.Node) []Action { return []Action{editAction} }

func (integrationNode) Form(n canvas.Node) Form {
	return Form{Modal: "integration", NodeID: n.ID, Values: n.Data}
}

func (integrationNode) AutoOpenEditor(canvas.Node) bool { return false }

func (integrationNode) Merge(n canvas.Node, res Resource) canvas.NodeData {
	d := n.Data
	if w, ok := res.(*remote.WebChat); ok {
		cfg := make(map[string]any, len(w.Settings)+1)
		for k, v := range w.Settings {
			cfg[k] = v
		}
		cfg["enabled"] = w.Enabled
		d.Config = cfg
	}
	return d
}

// ── Integration item ─────────────────────────────────────────────────

type integrationItemNode struct{}

func (integrationItemNode) Kind() canvas.NodeKind   { return canvas.KindIntegrationItem }
func (integrationItemNode) Icon(canvas.Node) string { return "dot" }

func (integrationItemNode) Load(context.Context, remote.Services, canvas.Node) (Resource, error) {
	return nil, nil
}

func (integrationItemNode) Body(n canvas.Node, _ Resource) Body {
	return Body{Title: n.Data.Name, Fields: []Field{{Label: "Descripción", Value: n.Data.Description}}}
}

func (integrationItemNode) Actions(canvas.Node) []Action                    { return nil }
func (integrationItemNode) Form(n canvas.Node) Form                         { return Form{NodeID: n.ID, Values: n.Data} }
func (integrationItemNode) AutoOpenEditor(canvas.Node) bool                 { return false }
func (integrationItemNode) Merge(n canvas.Node, _ Resource) canvas.NodeData { return n.Data }
