// Package graph holds the in-memory node and edge store behind a canvas.
//
// Nodes and edges live in insertion-ordered maps keyed by id. References
// between them (edge endpoints, parentNodeId) are plain ids resolved
// through those maps, so removing a node never reaches into anything that
// points at it. Callers that want edges gone must remove them explicitly.
//
// A Model is not safe for concurrent use.
package graph

import (
	"fmt"

	"github.com/meikuraledutech/canvas"
)

// ordered is a map that remembers insertion order.
type ordered[T any] struct {
	keys  []string
	items map[string]T
}

func newOrdered[T any]() ordered[T] {
	return ordered[T]{items: make(map[string]T)}
}

func (o *ordered[T]) set(id string, v T) {
	if _, ok := o.items[id]; !ok {
		o.keys = append(o.keys, id)
	}
	o.items[id] = v
}

func (o *ordered[T]) get(id string) (T, bool) {
	v, ok := o.items[id]
	return v, ok
}

func (o *ordered[T]) del(id string) bool {
	if _, ok := o.items[id]; !ok {
		return false
	}
	delete(o.items, id)
	for i, k := range o.keys {
		if k == id {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

func (o *ordered[T]) values() []T {
	out := make([]T, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.items[k])
	}
	return out
}

// Model is the node/edge store of one canvas.
type Model struct {
	nodes ordered[canvas.Node]
	edges ordered[canvas.Edge]
}

// New returns an empty Model.
func New() *Model {
	return &Model{nodes: newOrdered[canvas.Node](), edges: newOrdered[canvas.Edge]()}
}

// AddNode inserts n. A node with the same id is replaced in place.
func (m *Model) AddNode(n canvas.Node) {
	m.nodes.set(n.ID, n)
}

// AddEdge inserts e. An edge with the same id is replaced in place; no
// check is made that its endpoints exist.
func (m *Model) AddEdge(e canvas.Edge) {
	m.edges.set(e.ID, e)
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (canvas.Node, bool) {
	return m.nodes.get(id)
}

// Edge returns the edge with the given id.
func (m *Model) Edge(id string) (canvas.Edge, bool) {
	return m.edges.get(id)
}

// Nodes returns a copy of every node in insertion order.
func (m *Model) Nodes() []canvas.Node { return m.nodes.values() }

// Edges returns a copy of every edge in insertion order.
func (m *Model) Edges() []canvas.Edge { return m.edges.values() }

// Len returns the node and edge counts.
func (m *Model) Len() (nodes, edges int) {
	return len(m.nodes.keys), len(m.edges.keys)
}

// UpdateNode applies fn to a copy of node id and stores the result.
func (m *Model) UpdateNode(id string, fn func(*canvas.Node)) (canvas.Node, error) {
	n, ok := m.nodes.get(id)
	if !ok {
		return canvas.Node{}, fmt.Errorf("graph: update node %s: %w", id, canvas.ErrNodeNotFound)
	}
	// the stored id keys the map; id may alias a buffer the caller reuses
	stored := n.ID
	fn(&n)
	n.ID = stored
	m.nodes.set(stored, n)
	return n, nil
}

// RemoveNode deletes node id. Edges referencing it are left untouched and
// become dangling.
func (m *Model) RemoveNode(id string) error {
	if !m.nodes.del(id) {
		return fmt.Errorf("graph: remove node %s: %w", id, canvas.ErrNodeNotFound)
	}
	return nil
}

// RemoveEdge deletes edge id.
func (m *Model) RemoveEdge(id string) error {
	if !m.edges.del(id) {
		return fmt.Errorf("graph: remove edge %s: %w", id, canvas.ErrEdgeNotFound)
	}
	return nil
}

// EdgePatch describes a change to an edge's data. Nil fields are kept; a
// pointer to "" clears the field.
type EdgePatch struct {
	FunctionID      *string
	AuthenticatorID *string
}

// ReplaceEdgeData swaps the stored edge for a copy whose data has patch
// applied. The previous Edge value and its Data are never written to.
func (m *Model) ReplaceEdgeData(id string, patch EdgePatch) (canvas.Edge, error) {
	e, ok := m.edges.get(id)
	if !ok {
		return canvas.Edge{}, fmt.Errorf("graph: replace edge data %s: %w", id, canvas.ErrEdgeNotFound)
	}
	var data canvas.EdgeData
	if e.Data != nil {
		data = *e.Data
	}
	if patch.FunctionID != nil {
		data.FunctionID = *patch.FunctionID
	}
	if patch.AuthenticatorID != nil {
		data.AuthenticatorID = *patch.AuthenticatorID
	}
	e.Data = &data
	m.edges.set(e.ID, e)
	return e, nil
}

// EdgesOf returns every edge with nodeID as source or target.
func (m *Model) EdgesOf(nodeID string) []canvas.Edge {
	var out []canvas.Edge
	for _, e := range m.edges.values() {
		if e.Source == nodeID || e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// DanglingEdges returns edges whose source or target is not a known node.
func (m *Model) DanglingEdges() []canvas.Edge {
	var out []canvas.Edge
	for _, e := range m.edges.values() {
		_, src := m.nodes.get(e.Source)
		_, dst := m.nodes.get(e.Target)
		if !src || !dst {
			out = append(out, e)
		}
	}
	return out
}

// Children returns nodes of kind whose parentNodeId is parentID.
func (m *Model) Children(parentID string, kind canvas.NodeKind) []canvas.Node {
	var out []canvas.Node
	for _, n := range m.nodes.values() {
		if n.Type == kind && n.Data.ParentNodeID == parentID {
			out = append(out, n)
		}
	}
	return out
}

// Bounds returns the box enclosing every node, using def for unmeasured
// sizes. ok is false for an empty model.
func (m *Model) Bounds(def canvas.Size) (r canvas.Rect, ok bool) {
	return BoundsOf(m.nodes.values(), def)
}

// BoundsOf returns the box enclosing nodes.
func BoundsOf(nodes []canvas.Node, def canvas.Size) (r canvas.Rect, ok bool) {
	for i, n := range nodes {
		if i == 0 {
			r = n.Box(def)
			continue
		}
		r = r.Union(n.Box(def))
	}
	return r, len(nodes) > 0
}

// Snapshot returns the serialized shape of the model.
func (m *Model) Snapshot(id string) canvas.Graph {
	return canvas.Graph{ID: id, Nodes: m.Nodes(), Edges: m.Edges()}
}

// Load replaces the contents of the model with g.
func (m *Model) Load(g canvas.Graph) {
	m.nodes = newOrdered[canvas.Node]()
	m.edges = newOrdered[canvas.Edge]()
	for _, n := range g.Nodes {
		m.AddNode(n)
	}
	for _, e := range g.Edges {
		m.AddEdge(e)
	}
}
