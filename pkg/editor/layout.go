package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/flowedit/pkg/flow"
	"github.com/dshills/flowedit/pkg/layout"
)

// ErrNoLayouter is returned by ApplyLayout when no layout collaborator is set
var ErrNoLayouter = errors.New("editor: no layouter configured")

// Layouter computes new node positions for a graph
type Layouter interface {
	Layout(ctx context.Context, nodes []flow.Node, edges []flow.Edge, dir layout.Direction) ([]flow.Node, error)
}

// ApplyLayout repositions every node through the layouter as one undoable
// step. Only positions are taken from the result, so edits made while the
// layout ran are kept.
func (s *Store) ApplyLayout(ctx context.Context, dir layout.Direction) error {
	if s.layouter == nil {
		return ErrNoLayouter
	}

	s.mu.RLock()
	nodes := flow.CloneNodes(s.nodes)
	edges := flow.CloneEdges(s.edges)
	s.mu.RUnlock()

	laid, err := s.layouter.Layout(ctx, nodes, edges, dir)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	positions := make(map[string]flow.Position, len(laid))
	for _, n := range laid {
		positions[n.ID] = n.Position
	}

	s.update(func() bool {
		s.checkpointLocked()
		next := flow.CloneNodes(s.nodes)
		for i := range next {
			if p, ok := positions[next[i].ID]; ok {
				next[i].Position = p
			}
		}
		s.nodes = next
		s.touchLocked()
		return true
	})
	s.logger.Debug("layout applied", "direction", dir, "nodes", len(laid))
	return nil
}
