// Package memstore is a goroutine-safe in-process canvas.Store. It backs
// tests and servers started without a database.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/meikuraledutech/canvas"
)

// Store keeps graphs in memory.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]*canvas.Graph
}

// New creates an empty Store.
func New() *Store {
	return &Store{graphs: make(map[string]*canvas.Graph)}
}

func (s *Store) CreateSchema(context.Context) error { return nil }

// DropSchema removes every graph.
func (s *Store) DropSchema(context.Context) error {
	s.mu.Lock()
	s.graphs = make(map[string]*canvas.Graph)
	s.mu.Unlock()
	return nil
}

// ── Graphs ───────────────────────────────────────────────────────────

func (s *Store) SaveGraph(_ context.Context, g *canvas.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := clone(g)
	s.graphs[g.ID] = &c
	return nil
}

func (s *Store) GetGraph(_ context.Context, graphID string) (*canvas.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[graphID]
	if !ok || empty(g) {
		return nil, nil
	}
	c := clone(g)
	return &c, nil
}

func (s *Store) DeleteGraph(_ context.Context, graphID string) error {
	s.mu.Lock()
	delete(s.graphs, graphID)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListGraphs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	for id, g := range s.graphs {
		if !empty(g) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Nodes ────────────────────────────────────────────────────────────

func (s *Store) UpsertNode(_ context.Context, graphID string, n *canvas.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.graph(graphID)
	if i := slices.IndexFunc(g.Nodes, func(x canvas.Node) bool { return x.ID == n.ID }); i >= 0 {
		g.Nodes[i] = *n
		return nil
	}
	g.Nodes = append(g.Nodes, *n)
	return nil
}

func (s *Store) GetNode(_ context.Context, graphID, nodeID string) (*canvas.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[graphID]
	if !ok {
		return nil, nil
	}
	for _, n := range g.Nodes {
		if n.ID == nodeID {
			return &n, nil
		}
	}
	return nil, nil
}

func (s *Store) DeleteNode(_ context.Context, graphID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.graphs[graphID]; ok {
		g.Nodes = slices.DeleteFunc(g.Nodes, func(x canvas.Node) bool { return x.ID == nodeID })
	}
	return nil
}

func (s *Store) ListNodes(_ context.Context, graphID string) ([]canvas.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []canvas.Node{}
	if g, ok := s.graphs[graphID]; ok {
		out = append(out, g.Nodes...)
	}
	return out, nil
}

// ── Edges ────────────────────────────────────────────────────────────

func (s *Store) UpsertEdge(_ context.Context, graphID string, e *canvas.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.graph(graphID)
	c := cloneEdge(*e)
	if i := slices.IndexFunc(g.Edges, func(x canvas.Edge) bool { return x.ID == e.ID }); i >= 0 {
		g.Edges[i] = c
		return nil
	}
	g.Edges = append(g.Edges, c)
	return nil
}

func (s *Store) GetEdge(_ context.Context, graphID, edgeID string) (*canvas.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[graphID]
	if !ok {
		return nil, nil
	}
	for _, e := range g.Edges {
		if e.ID == edgeID {
			c := cloneEdge(e)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) DeleteEdge(_ context.Context, graphID, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.graphs[graphID]; ok {
		g.Edges = slices.DeleteFunc(g.Edges, func(x canvas.Edge) bool { return x.ID == edgeID })
	}
	return nil
}

func (s *Store) ListEdges(_ context.Context, graphID string) ([]canvas.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []canvas.Edge{}
	if g, ok := s.graphs[graphID]; ok {
		for _, e := range g.Edges {
			out = append(out, cloneEdge(e))
		}
	}
	return out, nil
}

// empty reports whether g holds nothing; a graph with only dangling
// edges is still stored.
func empty(g *canvas.Graph) bool { return len(g.Nodes) == 0 && len(g.Edges) == 0 }

// must be called with mu held
func (s *Store) graph(id string) *canvas.Graph {
	g, ok := s.graphs[id]
	if !ok {
		g = &canvas.Graph{ID: id}
		s.graphs[id] = g
	}
	return g
}

func clone(g *canvas.Graph) canvas.Graph {
	c := canvas.Graph{ID: g.ID, Nodes: slices.Clone(g.Nodes), Edges: make([]canvas.Edge, 0, len(g.Edges))}
	for _, e := range g.Edges {
		c.Edges = append(c.Edges, cloneEdge(e))
	}
	return c
}

func cloneEdge(e canvas.Edge) canvas.Edge {
	if e.Data != nil {
		d := *e.Data
		e.Data = &d
	}
	return e
}
