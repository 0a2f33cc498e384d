package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/canvas"
)

const nodeColumns = `id, kind, pos_x, pos_y, width, height, selected, data`

const insertNodeSQL = `INSERT INTO canvas_nodes (graph_id, ord, ` + nodeColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func queueNode(b *pgx.Batch, graphID string, ord int64, n *canvas.Node) {
	b.Queue(insertNodeSQL, graphID, ord, n.ID, string(n.Type),
		n.Position.X, n.Position.Y, n.Width, n.Height, n.Selected, n.Data)
}

// UpsertNode inserts or replaces a single node. A new node goes after
// every node already stored; a replaced one keeps its place.
func (s *PGStore) UpsertNode(ctx context.Context, graphID string, n *canvas.Node) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO canvas_nodes (graph_id, ord, `+nodeColumns+`)
VALUES ($1, (SELECT COALESCE(MAX(ord), -1) + 1 FROM canvas_nodes WHERE graph_id = $1),
        $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (graph_id, id) DO UPDATE SET
    kind = EXCLUDED.kind, pos_x = EXCLUDED.pos_x, pos_y = EXCLUDED.pos_y,
    width = EXCLUDED.width, height = EXCLUDED.height,
    selected = EXCLUDED.selected, data = EXCLUDED.data, updated_at = NOW()`,
		graphID, n.ID, string(n.Type), n.Position.X, n.Position.Y, n.Width, n.Height, n.Selected, n.Data,
	)
	if err != nil {
		return fmt.Errorf("canvas: upsert node %s: %w", n.ID, err)
	}
	return nil
}

// GetNode fetches a single node by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, graphID, nodeID string) (*canvas.Node, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM canvas_nodes WHERE graph_id = $1 AND id = $2`, graphID, nodeID)
	n, err := scanNode(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("canvas: get node: %w", err)
	}
	return &n, nil
}

// DeleteNode deletes a node by its ID. Edges that reference it are kept.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, graphID, nodeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM canvas_nodes WHERE graph_id = $1 AND id = $2`, graphID, nodeID)
	if err != nil {
		return fmt.Errorf("canvas: delete node: %w", err)
	}
	return nil
}

// ListNodes returns all nodes for a graphID in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, graphID string) ([]canvas.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+nodeColumns+` FROM canvas_nodes WHERE graph_id = $1 ORDER BY ord`, graphID)
	if err != nil {
		return nil, fmt.Errorf("canvas: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []canvas.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("canvas: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvas: rows nodes: %w", err)
	}

	return nodes, nil
}

func scanNode(row pgx.Row) (canvas.Node, error) {
	var (
		n    canvas.Node
		kind string
	)
	err := row.Scan(&n.ID, &kind, &n.Position.X, &n.Position.Y, &n.Width, &n.Height, &n.Selected, &n.Data)
	n.Type = canvas.NodeKind(kind)
	return n, err
}
