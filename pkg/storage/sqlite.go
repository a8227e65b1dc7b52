package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/dshills/flowedit/pkg/flow"
)

// SQLiteRepository implements FlowRepository using SQLite storage.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath and applies
// pending migrations.
func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if err := InitializeDatabase(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save upserts the record.
func (r *SQLiteRepository) Save(ctx context.Context, rec *flow.Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	nodes, err := json.Marshal(nonNilNodes(rec.Nodes))
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}
	edges, err := json.Marshal(nonNilEdges(rec.Edges))
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	query := `
		INSERT INTO flows (id, name, nodes, edges, node_count, edge_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			nodes = excluded.nodes,
			edges = excluded.edges,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, string(nodes), string(edges),
		len(rec.Nodes), len(rec.Edges), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

// Load retrieves the record stored under id.
func (r *SQLiteRepository) Load(ctx context.Context, id string) (*flow.Record, error) {
	var (
		rec          flow.Record
		nodes, edges string
		updatedAt    time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, nodes, edges, updated_at FROM flows WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &nodes, &edges, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query flow: %w", err)
	}

	if err := json.Unmarshal([]byte(nodes), &rec.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(edges), &rec.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}
	rec.UpdatedAt = updatedAt.UTC()
	return &rec, nil
}

// Delete removes the record stored under id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	return nil
}

// List returns every stored flow, most recently updated first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, node_count, edge_count, updated_at
		FROM flows
		ORDER BY updated_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.NodeCount, &s.EdgeCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flows: %w", err)
	}
	// Timestamps are stored as text; re-sort on the parsed values
	sortSummaries(out)
	return out, nil
}

func nonNilNodes(nodes []flow.Node) []flow.Node {
	if nodes == nil {
		return []flow.Node{}
	}
	return nodes
}

func nonNilEdges(edges []flow.Edge) []flow.Edge {
	if edges == nil {
		return []flow.Edge{}
	}
	return edges
}
