package canvas

import (
	"context"
	"errors"
)

var (
	ErrNodeNotFound          = errors.New("canvas: node not found")
	ErrEdgeNotFound          = errors.New("canvas: edge not found")
	ErrUnknownKind           = errors.New("canvas: unknown node kind")
	ErrNoCurrentAgent        = errors.New("canvas: no current agent")
	ErrMissingAgent          = errors.New("canvas: node has no associated agent")
	ErrConnectionNotAllowed  = errors.New("canvas: connection not allowed")
	ErrAuthenticatorNotFound = errors.New("canvas: authenticator not found")
	ErrFunctionNotFound      = errors.New("canvas: function not found")
	ErrNoStore               = errors.New("canvas: no store configured")
)

// Store persists the serialized shape of canvases, one per graph id.
// Node and edge ids are unique within a graph only. Edges are stored
// without referential checks, so a dangling edge round-trips unchanged.
// Getters return nil, nil when nothing is stored.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Graphs (whole-canvas operations)
	SaveGraph(ctx context.Context, g *Graph) error
	GetGraph(ctx context.Context, graphID string) (*Graph, error)
	DeleteGraph(ctx context.Context, graphID string) error
	ListGraphs(ctx context.Context) ([]string, error)

	// Nodes
	UpsertNode(ctx context.Context, graphID string, n *Node) error
	GetNode(ctx context.Context, graphID, nodeID string) (*Node, error)
	DeleteNode(ctx context.Context, graphID, nodeID string) error
	ListNodes(ctx context.Context, graphID string) ([]Node, error)

	// Edges
	UpsertEdge(ctx context.Context, graphID string, e *Edge) error
	GetEdge(ctx context.Context, graphID, edgeID string) (*Edge, error)
	DeleteEdge(ctx context.Context, graphID, edgeID string) error
	ListEdges(ctx context.Context, graphID string) ([]Edge, error)
}
