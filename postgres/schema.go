package postgres

import "context"

// Edges reference nodes by id only; there is no foreign key, so edges
// whose endpoint was removed are stored as they are.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS canvas_nodes (
    graph_id   TEXT NOT NULL,
    id         TEXT NOT NULL,
    ord        BIGINT NOT NULL,
    kind       TEXT NOT NULL,
    pos_x      DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y      DOUBLE PRECISION NOT NULL DEFAULT 0,
    width      DOUBLE PRECISION,
    height     DOUBLE PRECISION,
    selected   BOOLEAN NOT NULL DEFAULT FALSE,
    data       JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (graph_id, id)
);

CREATE TABLE IF NOT EXISTS canvas_edges (
    graph_id      TEXT NOT NULL,
    id            TEXT NOT NULL,
    ord           BIGINT NOT NULL,
    source        TEXT NOT NULL,
    target        TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target_handle TEXT NOT NULL DEFAULT '',
    kind          TEXT NOT NULL DEFAULT '',
    data          JSONB,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (graph_id, id)
);

CREATE INDEX IF NOT EXISTS idx_canvas_nodes_ord ON canvas_nodes(graph_id, ord);
CREATE INDEX IF NOT EXISTS idx_canvas_edges_ord ON canvas_edges(graph_id, ord);
`

// CreateSchema creates the canvas_nodes and canvas_edges tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the canvas_edges and canvas_nodes tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS canvas_edges, canvas_nodes CASCADE;`)
	return err
}
