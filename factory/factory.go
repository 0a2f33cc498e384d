// Package factory creates canvas nodes and edges: ids, default data, the
// wiring edge from a parent, and the spacing rule that stacks children to
// the right of their parent.
package factory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/graph"
	"github.com/meikuraledutech/canvas/viewport"
)

// DefaultName is given to function nodes created without a name.
const DefaultName = "Nueva Función"

// AuthSourceID is the source node id whose outgoing edges become auth
// edges.
// TODO: confirm whether every agent-kind source should produce auth edges;
// today only the node literally named "agent" does.
const AuthSourceID = "agent"

// Options tune placement. Zero fields take the defaults.
type Options struct {
	DefaultSize     canvas.Size
	HorizontalGap   float64
	VerticalSpacing float64
	FitMargin       float64
	FitDuration     time.Duration
	FitPadding      float64
}

// DefaultOptions: 200 to the right of the parent, children 300 apart,
// camera framed with a 50 margin over 500ms with 10% padding.
func DefaultOptions() Options {
	return Options{
		DefaultSize:     canvas.Size{Width: 150, Height: 40},
		HorizontalGap:   200,
		VerticalSpacing: 300,
		FitMargin:       50,
		FitDuration:     500 * time.Millisecond,
		FitPadding:      0.1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DefaultSize.Width == 0 {
		o.DefaultSize.Width = d.DefaultSize.Width
	}
	if o.DefaultSize.Height == 0 {
		o.DefaultSize.Height = d.DefaultSize.Height
	}
	if o.HorizontalGap == 0 {
		o.HorizontalGap = d.HorizontalGap
	}
	if o.VerticalSpacing == 0 {
		o.VerticalSpacing = d.VerticalSpacing
	}
	if o.FitMargin == 0 {
		o.FitMargin = d.FitMargin
	}
	if o.FitDuration == 0 {
		o.FitDuration = d.FitDuration
	}
	if o.FitPadding == 0 {
		o.FitPadding = d.FitPadding
	}
	return o
}

// Factory creates nodes and edges inside a graph.Model.
type Factory struct {
	model        *graph.Model
	camera       viewport.Camera
	opts         Options
	newID        func() string
	logger       *zap.Logger
	currentAgent string
}

// New creates a Factory. camera may be nil, in which case no camera
// transitions are requested.
func New(model *graph.Model, camera viewport.Camera, opts Options, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		model:  model,
		camera: camera,
		opts:   opts.withDefaults(),
		newID:  uuid.NewString,
		logger: logger.With(zap.String("component", "node_factory")),
	}
}

// WithIDGenerator replaces the random id suffix generator.
func (f *Factory) WithIDGenerator(gen func() string) *Factory {
	f.newID = gen
	return f
}

// SetCurrentAgent sets the agent new child nodes are created for.
func (f *Factory) SetCurrentAgent(agentID string) { f.currentAgent = agentID }

// CurrentAgent returns the current agent id.
func (f *Factory) CurrentAgent() string { return f.currentAgent }

// Options returns the effective options.
func (f *Factory) Options() Options { return f.opts }

// NodeParams describe one node to create.
type NodeParams struct {
	Position     canvas.Point
	AgentID      string
	SourceNodeID string
	ParentNodeID string
	InitialData  *canvas.NodeData
	Type         canvas.NodeKind
}

// Created is the outcome of a creation call.
type Created struct {
	Node       canvas.Node          `json:"node"`
	Edge       *canvas.Edge         `json:"edge,omitempty"`
	Transition *viewport.Transition `json:"transition,omitempty"`
}

// Build returns the node (and edge, when SourceNodeID is set) for p
// without touching the model.
func (f *Factory) Build(p NodeParams) Created {
	kind := p.Type
	if kind == "" {
		kind = canvas.KindFunction
	}

	var data canvas.NodeData
	if p.InitialData != nil {
		data = *p.InitialData
	}
	if data.Name == "" {
		data.Name = DefaultName
	}
	if p.AgentID != "" {
		data.AgentID = p.AgentID
	}
	if p.ParentNodeID != "" {
		data.ParentNodeID = p.ParentNodeID
	}

	n := canvas.Node{
		ID:       fmt.Sprintf("%s-%s", kind, f.newID()),
		Type:     kind,
		Position: p.Position,
		Data:     data,
	}
	out := Created{Node: n}
	if p.SourceNodeID != "" {
		e := f.edge(p.SourceNodeID, n.ID, canvas.SourceRight, canvas.TargetLeft)
		out.Edge = &e
	}
	return out
}

// edge builds an edge with the conventional id. Only a source literally
// named "agent" yields an auth edge.
func (f *Factory) edge(source, target string, sh, th canvas.HandleID) canvas.Edge {
	e := canvas.Edge{
		ID:           canvas.EdgeID(source, target),
		Source:       source,
		Target:       target,
		SourceHandle: sh,
		TargetHandle: th,
	}
	if source == AuthSourceID {
		e.Type = canvas.EdgeAuth
	}
	return e
}

// CreateNode builds a node as Build does and inserts it, with its edge,
// into the model.
func (f *Factory) CreateNode(p NodeParams) Created {
	c := f.Build(p)
	f.model.AddNode(c.Node)
	if c.Edge != nil {
		f.model.AddEdge(*c.Edge)
	}
	f.logger.Debug("node created",
		zap.String("node_id", c.Node.ID),
		zap.String("type", string(c.Node.Type)),
		zap.Bool("with_edge", c.Edge != nil))
	return c
}

// ChildPosition returns where the next function child of source goes:
// HorizontalGap to the right of it, VerticalSpacing below each existing
// child.
func (f *Factory) ChildPosition(source canvas.Node) canvas.Point {
	n := len(f.model.Children(source.ID, canvas.KindFunction))
	size := source.Measured(f.opts.DefaultSize)
	return canvas.Point{
		X: source.Position.X + size.Width + f.opts.HorizontalGap,
		Y: source.Position.Y + float64(n)*f.opts.VerticalSpacing,
	}
}

// CreateWithSpacing adds a function child to sourceNodeID for the current
// agent and frames the whole graph.
func (f *Factory) CreateWithSpacing(sourceNodeID string) (Created, error) {
	if f.currentAgent == "" {
		return Created{}, canvas.ErrNoCurrentAgent
	}
	source, ok := f.model.Node(sourceNodeID)
	if !ok {
		return Created{}, fmt.Errorf("factory: source %s: %w", sourceNodeID, canvas.ErrNodeNotFound)
	}

	c := f.CreateNode(NodeParams{
		Position:     f.ChildPosition(source),
		AgentID:      f.currentAgent,
		SourceNodeID: sourceNodeID,
		ParentNodeID: sourceNodeID,
		Type:         canvas.KindFunction,
	})
	c.Transition = f.FitAll()
	return c, nil
}

// FitAll frames every node, padded by FitMargin.
func (f *Factory) FitAll() *viewport.Transition {
	if f.camera == nil {
		return nil
	}
	bounds, ok := f.model.Bounds(f.opts.DefaultSize)
	if !ok {
		return nil
	}
	tr := f.camera.FitBounds(bounds.Pad(f.opts.FitMargin), viewport.FitOptions{
		Duration: f.opts.FitDuration,
		Padding:  f.opts.FitPadding,
	})
	return &tr
}

// MenuState is where a context menu was opened and for which node.
type MenuState struct {
	Screen canvas.Point `json:"screen"`
	NodeID string       `json:"nodeId"`
}

// CreateFromContextMenu creates a function child of the menu's node at the
// graph-space point under the click.
func (f *Factory) CreateFromContextMenu(m MenuState) (Created, error) {
	source, ok := f.model.Node(m.NodeID)
	if !ok {
		return Created{}, fmt.Errorf("factory: menu node %s: %w", m.NodeID, canvas.ErrNodeNotFound)
	}
	if source.Data.AgentID == "" {
		return Created{}, fmt.Errorf("factory: menu node %s: %w", m.NodeID, canvas.ErrMissingAgent)
	}

	t := viewport.Identity
	if f.camera != nil {
		t = f.camera.Transform()
	}
	return f.CreateNode(NodeParams{
		Position:     t.ScreenToFlow(m.Screen),
		AgentID:      source.Data.AgentID,
		SourceNodeID: source.ID,
		ParentNodeID: source.ID,
		Type:         canvas.KindFunction,
	}), nil
}

// CreateFromDiagram creates a standalone function node at a graph-space
// position, as a palette drop does.
func (f *Factory) CreateFromDiagram(pos canvas.Point, agentID string, initial *canvas.NodeData) Created {
	return f.CreateNode(NodeParams{
		Position:    pos,
		AgentID:     agentID,
		InitialData: initial,
		Type:        canvas.KindFunction,
	})
}

// Connection is a raw drag-to-connect gesture.
type Connection struct {
	Source       string          `json:"source" validate:"required"`
	Target       string          `json:"target" validate:"required"`
	SourceHandle canvas.HandleID `json:"sourceHandle"`
	TargetHandle canvas.HandleID `json:"targetHandle"`
}

// CreateEdge turns a connection into an edge and inserts it. Missing
// handles default to the right→left pairing.
func (f *Factory) CreateEdge(c Connection) canvas.Edge {
	sh, th := c.SourceHandle, c.TargetHandle
	if sh == "" {
		sh = canvas.SourceRight
	}
	if th == "" {
		th = canvas.TargetLeft
	}
	e := f.edge(c.Source, c.Target, sh, th)
	f.model.AddEdge(e)
	f.logger.Debug("edge created", zap.String("edge_id", e.ID), zap.String("type", string(e.Type)))
	return e
}
