package canvas

import "strings"

// NodeKind is the closed set of node types the canvas can hold.
type NodeKind string

const (
	KindAgent           NodeKind = "agent"
	KindFunction        NodeKind = "funcion"
	KindIntegration     NodeKind = "integration"
	KindIntegrationItem NodeKind = "integration-item"
)

// Kinds lists every NodeKind in display order.
var Kinds = []NodeKind{KindAgent, KindFunction, KindIntegration, KindIntegrationItem}

// Valid reports whether k is one of the declared kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindAgent, KindFunction, KindIntegration, KindIntegrationItem:
		return true
	}
	return false
}

// StyleCentral switches a node's shell to the compact circular form.
const StyleCentral = "CENTRAL"

// HandleRole is the side of a connection a handle participates in.
type HandleRole string

const (
	RoleSource HandleRole = "source"
	RoleTarget HandleRole = "target"
)

// Anchor is the side tag of a handle. All handles sit at the node center;
// the anchor only shapes the curve.
type Anchor string

const (
	AnchorLeft   Anchor = "left"
	AnchorRight  Anchor = "right"
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
)

// Horizontal reports whether a is Left or Right.
func (a Anchor) Horizontal() bool { return a == AnchorLeft || a == AnchorRight }

// HandleID is the composite "{role}-{anchor}" handle identifier.
type HandleID string

// Handle builds the HandleID for role and anchor.
func Handle(role HandleRole, anchor Anchor) HandleID {
	return HandleID(string(role) + "-" + string(anchor))
}

// Role returns the role part of h.
func (h HandleID) Role() HandleRole {
	role, _, _ := strings.Cut(string(h), "-")
	return HandleRole(role)
}

// Anchor returns the anchor part of h.
func (h HandleID) Anchor() Anchor {
	_, anchor, _ := strings.Cut(string(h), "-")
	return Anchor(anchor)
}

// Fixed handle pairing used by derived node creation.
var (
	SourceRight = Handle(RoleSource, AnchorRight)
	TargetLeft  = Handle(RoleTarget, AnchorLeft)
)

// EdgeType selects the edge renderer.
type EdgeType string

const (
	EdgeDefault EdgeType = "default"
	EdgeAuth    EdgeType = "auth"
)

// Point is a position in graph (or screen) space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a measured width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box with its origin at the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the middle of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Pad grows r by p on every side.
func (r Rect) Pad(p float64) Rect {
	return Rect{X: r.X - p, Y: r.Y - p, Width: r.Width + 2*p, Height: r.Height + 2*p}
}

// Union returns the smallest box containing r and o.
func (r Rect) Union(o Rect) Rect {
	minX, minY := min(r.X, o.X), min(r.Y, o.Y)
	maxX := max(r.X+r.Width, o.X+o.Width)
	maxY := max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// NodeData is the payload a node carries. AgentID, FunctionID and
// ParentNodeID are plain lookup keys, never ownership links.
type NodeData struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Style           string         `json:"style,omitempty"`
	ParentNodeID    string         `json:"parentNodeId,omitempty"`
	AgentID         string         `json:"agentId,omitempty"`
	FunctionID      string         `json:"functionId,omitempty"`
	IntegrationType string         `json:"integrationType,omitempty"`
	Config          map[string]any `json:"config,omitempty"`
}

// Node is a positioned vertex of the canvas.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeKind `json:"type"`
	Position Point    `json:"position"`
	Data     NodeData `json:"data"`
	Selected bool     `json:"selected,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
}

// Measured returns the node's size, falling back to def for any
// dimension the renderer has not reported yet.
func (n Node) Measured(def Size) Size {
	s := def
	if n.Width != nil {
		s.Width = *n.Width
	}
	if n.Height != nil {
		s.Height = *n.Height
	}
	return s
}

// Box returns the node's rectangle using def for unmeasured dimensions.
func (n Node) Box(def Size) Rect {
	s := n.Measured(def)
	return Rect{X: n.Position.X, Y: n.Position.Y, Width: s.Width, Height: s.Height}
}

// EdgeData is the optional payload of an edge.
type EdgeData struct {
	FunctionID      string `json:"functionId,omitempty"`
	AuthenticatorID string `json:"authenticatorId,omitempty"`
}

// Edge is a directed connection between two node handles.
type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle HandleID  `json:"sourceHandle"`
	TargetHandle HandleID  `json:"targetHandle"`
	Type         EdgeType  `json:"type,omitempty"`
	Data         *EdgeData `json:"data,omitempty"`
}

// EdgeID derives the conventional edge id for a source/target pair.
func EdgeID(source, target string) string {
	return "e" + source + "-" + target
}

// Graph is the serialized shape of a canvas.
type Graph struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Float returns a pointer to v, for the optional Width/Height fields.
func Float(v float64) *float64 { return &v }
