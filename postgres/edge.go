package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/canvas"
)

const edgeColumns = `id, source, target, source_handle, target_handle, kind, data`

const insertEdgeSQL = `INSERT INTO canvas_edges (graph_id, ord, ` + edgeColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func queueEdge(b *pgx.Batch, graphID string, ord int64, e *canvas.Edge) {
	b.Queue(insertEdgeSQL, graphID, ord, e.ID, e.Source, e.Target,
		string(e.SourceHandle), string(e.TargetHandle), string(e.Type), e.Data)
}

// UpsertEdge inserts or replaces a single edge. The endpoints are not
// checked against stored nodes.
func (s *PGStore) UpsertEdge(ctx context.Context, graphID string, e *canvas.Edge) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO canvas_edges (graph_id, ord, `+edgeColumns+`)
VALUES ($1, (SELECT COALESCE(MAX(ord), -1) + 1 FROM canvas_edges WHERE graph_id = $1),
        $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (graph_id, id) DO UPDATE SET
    source = EXCLUDED.source, target = EXCLUDED.target,
    source_handle = EXCLUDED.source_handle, target_handle = EXCLUDED.target_handle,
    kind = EXCLUDED.kind, data = EXCLUDED.data, updated_at = NOW()`,
		graphID, e.ID, e.Source, e.Target, string(e.SourceHandle), string(e.TargetHandle), string(e.Type), e.Data,
	)
	if err != nil {
		return fmt.Errorf("canvas: upsert edge %s: %w", e.ID, err)
	}
	return nil
}

// GetEdge fetches a single edge by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetEdge(ctx context.Context, graphID, edgeID string) (*canvas.Edge, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+edgeColumns+` FROM canvas_edges WHERE graph_id = $1 AND id = $2`, graphID, edgeID)
	e, err := scanEdge(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("canvas: get edge: %w", err)
	}
	return &e, nil
}

// DeleteEdge deletes an edge by its ID.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, graphID, edgeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM canvas_edges WHERE graph_id = $1 AND id = $2`, graphID, edgeID)
	if err != nil {
		return fmt.Errorf("canvas: delete edge: %w", err)
	}
	return nil
}

// ListEdges returns all edges for a graphID in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, graphID string) ([]canvas.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+edgeColumns+` FROM canvas_edges WHERE graph_id = $1 ORDER BY ord`, graphID)
	if err != nil {
		return nil, fmt.Errorf("canvas: list edges: %w", err)
	}
	defer rows.Close()

	edges := []canvas.Edge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("canvas: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvas: rows edges: %w", err)
	}

	return edges, nil
}

func scanEdge(row pgx.Row) (canvas.Edge, error) {
	var (
		e          canvas.Edge
		sh, th, tp string
	)
	err := row.Scan(&e.ID, &e.Source, &e.Target, &sh, &th, &tp, &e.Data)
	e.SourceHandle = canvas.HandleID(sh)
	e.TargetHandle = canvas.HandleID(th)
	e.Type = canvas.EdgeType(tp)
	return e, err
}
