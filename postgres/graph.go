package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/canvas"
)

// SaveGraph stores a full canvas (nodes + edges) in one transaction,
// replacing whatever was stored under g.ID. Slice order is kept.
func (s *PGStore) SaveGraph(ctx context.Context, g *canvas.Graph) error {
	if g.ID == "" {
		return fmt.Errorf("canvas: save graph: empty id")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("canvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics.
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_edges WHERE graph_id = $1`, g.ID); err != nil {
		return fmt.Errorf("canvas: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_nodes WHERE graph_id = $1`, g.ID); err != nil {
		return fmt.Errorf("canvas: delete nodes: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range g.Nodes {
		queueNode(batch, g.ID, int64(i), &g.Nodes[i])
	}
	for i := range g.Edges {
		queueEdge(batch, g.ID, int64(i), &g.Edges[i])
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("canvas: insert row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("canvas: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("canvas: commit: %w", err)
	}
	return nil
}

// GetGraph retrieves a full canvas by its ID.
// Returns nil, nil if neither nodes nor edges exist for the graphID.
func (s *PGStore) GetGraph(ctx context.Context, graphID string) (*canvas.Graph, error) {
	nodes, err := s.ListNodes(ctx, graphID)
	if err != nil {
		return nil, err
	}
	edges, err := s.ListEdges(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 && len(edges) == 0 {
		return nil, nil
	}
	return &canvas.Graph{ID: graphID, Nodes: nodes, Edges: edges}, nil
}

// DeleteGraph removes all nodes and edges for a graphID.
// No error if the graphID doesn't exist.
func (s *PGStore) DeleteGraph(ctx context.Context, graphID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("canvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM canvas_edges WHERE graph_id = $1`, graphID); err != nil {
		return fmt.Errorf("canvas: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_nodes WHERE graph_id = $1`, graphID); err != nil {
		return fmt.Errorf("canvas: delete nodes: %w", err)
	}

	return tx.Commit(ctx)
}

// ListGraphs returns the ids of every stored canvas, sorted.
func (s *PGStore) ListGraphs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT graph_id FROM canvas_nodes
		UNION
		SELECT graph_id FROM canvas_edges
		ORDER BY graph_id`)
	if err != nil {
		return nil, fmt.Errorf("canvas: list graphs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("canvas: scan graph id: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
