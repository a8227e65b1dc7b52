package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dshills/flowedit/pkg/flow"
)

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS flowedit_flows (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    nodes      JSONB NOT NULL DEFAULT '[]',
    edges      JSONB NOT NULL DEFAULT '[]',
    node_count INTEGER NOT NULL DEFAULT 0,
    edge_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_flowedit_flows_updated_at ON flowedit_flows(updated_at DESC);
`

// PostgresRepository implements FlowRepository using PostgreSQL via pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository connects to dsn, overriding its password when one
// is given, and creates the schema.
func NewPostgresRepository(ctx context.Context, dsn, password string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if password != "" {
		cfg.ConnConfig.Password = password
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	repo := NewPostgresRepositoryWithPool(pool)
	if err := repo.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepositoryWithPool creates a repository backed by the given pool.
func NewPostgresRepositoryWithPool(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSchema creates the flows table if it doesn't exist.
func (r *PostgresRepository) CreateSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DropSchema drops the flows table.
func (r *PostgresRepository) DropSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DROP TABLE IF EXISTS flowedit_flows CASCADE;`)
	return err
}

// Save upserts the record.
func (r *PostgresRepository) Save(ctx context.Context, rec *flow.Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	nodes, err := json.Marshal(nonNilNodes(rec.Nodes))
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edges, err := json.Marshal(nonNilEdges(rec.Edges))
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO flowedit_flows (id, name, nodes, edges, node_count, edge_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			node_count = EXCLUDED.node_count,
			edge_count = EXCLUDED.edge_count,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.Name, nodes, edges, len(rec.Nodes), len(rec.Edges), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save flow %s: %w", rec.ID, err)
	}
	return nil
}

// Load retrieves the record stored under id.
func (r *PostgresRepository) Load(ctx context.Context, id string) (*flow.Record, error) {
	var (
		rec          flow.Record
		nodes, edges []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, name, nodes, edges, updated_at FROM flowedit_flows WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Name, &nodes, &edges, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get flow %s: %w", id, err)
	}

	if err := json.Unmarshal(nodes, &rec.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(edges, &rec.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// Delete removes the record stored under id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM flowedit_flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete flow %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	return nil
}

// List returns every stored flow, most recently updated first.
func (r *PostgresRepository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, node_count, edge_count, updated_at
		FROM flowedit_flows
		ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.NodeCount, &s.EdgeCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}
