// Package storage persists flow records. Every backend implements
// FlowRepository; Backend adapts a repository to the editor's persistence
// collaborator.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/flowedit/pkg/flow"
)

// Common errors returned by FlowRepository implementations.
var (
	ErrFlowNotFound = errors.New("flow not found")
	ErrInvalidID    = errors.New("invalid flow id")
)

// Summary describes a stored flow without its graph
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	NodeCount int       `json:"nodeCount" yaml:"node_count"`
	EdgeCount int       `json:"edgeCount" yaml:"edge_count"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// FlowRepository defines the interface for flow persistence.
// Implementations must be safe for concurrent use.
type FlowRepository interface {
	// Save creates or replaces the record with rec.ID
	Save(ctx context.Context, rec *flow.Record) error

	// Load retrieves a record. Returns ErrFlowNotFound if not found.
	Load(ctx context.Context, id string) (*flow.Record, error)

	// Delete removes a record. Returns ErrFlowNotFound if not found.
	Delete(ctx context.Context, id string) error

	// List returns summaries, most recently updated first
	List(ctx context.Context) ([]Summary, error)

	// Close releases any resources.
	Close() error
}

// RepositoryBackend serves a FlowRepository to the editor store
type RepositoryBackend struct {
	repo FlowRepository
}

// Backend adapts repo to the editor's SaveFlow/LoadFlow collaborator
func Backend(repo FlowRepository) *RepositoryBackend {
	return &RepositoryBackend{repo: repo}
}

// SaveFlow stores rec
func (b *RepositoryBackend) SaveFlow(ctx context.Context, rec *flow.Record) error {
	return b.repo.Save(ctx, rec)
}

// LoadFlow loads the record stored under id
func (b *RepositoryBackend) LoadFlow(ctx context.Context, id string) (*flow.Record, error) {
	return b.repo.Load(ctx, id)
}

// ValidateID rejects ids that cannot be used as a file name or key
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func checkRecord(rec *flow.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot save flow: %w", err)
	}
	return ValidateID(rec.ID)
}

func summarize(rec *flow.Record) Summary {
	return Summary{
		ID:        rec.ID,
		Name:      rec.Name,
		NodeCount: len(rec.Nodes),
		EdgeCount: len(rec.Edges),
		UpdatedAt: rec.UpdatedAt,
	}
}

// sortSummaries orders by UpdatedAt descending, then ID
func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].UpdatedAt.After(s[j].UpdatedAt)
		}
		return s[i].ID < s[j].ID
	})
}
