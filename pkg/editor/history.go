package editor

import (
	"time"

	"github.com/dshills/flowedit/pkg/flow"
)

// DefaultHistoryLimit bounds the undo stack when no limit is configured
const DefaultHistoryLimit = 100

// Snapshot is a point-in-time copy of the graph topology. Selection and
// viewport are deliberately not part of it.
type Snapshot struct {
	Nodes     []flow.Node
	Edges     []flow.Edge
	Timestamp time.Time
}

func newSnapshot(nodes []flow.Node, edges []flow.Edge) Snapshot {
	return Snapshot{
		Nodes:     flow.CloneNodes(nodes),
		Edges:     flow.CloneEdges(edges),
		Timestamp: time.Now(),
	}
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Nodes:     flow.CloneNodes(s.Nodes),
		Edges:     flow.CloneEdges(s.Edges),
		Timestamp: s.Timestamp,
	}
}

// History manages linear undo/redo over graph snapshots.
// past is ordered oldest to newest, future holds the next redo first.
// Any new checkpoint discards the future.
type History struct {
	past   []Snapshot
	future []Snapshot
	limit  int
}

// NewHistory creates a history holding at most limit undo entries
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		past:   make([]Snapshot, 0),
		future: make([]Snapshot, 0),
		limit:  limit,
	}
}

// Checkpoint records the pre-mutation graph and clears the redo stack
func (h *History) Checkpoint(nodes []flow.Node, edges []flow.Edge) {
	h.past = append(h.past, newSnapshot(nodes, edges))
	if len(h.past) > h.limit {
		// Drop the oldest entry
		copy(h.past, h.past[1:])
		h.past = h.past[:h.limit]
	}
	h.future = h.future[:0]
}

// Undo pops the newest past entry and pushes the current graph to the front
// of the future. ok is false when there is nothing to undo.
func (h *History) Undo(nodes []flow.Node, edges []flow.Edge) (Snapshot, bool) {
	if len(h.past) == 0 {
		return Snapshot{}, false
	}
	previous := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]Snapshot{newSnapshot(nodes, edges)}, h.future...)
	return previous.clone(), true
}

// Redo takes the first future entry and pushes the current graph onto the
// end of the past. ok is false when there is nothing to redo.
func (h *History) Redo(nodes []flow.Node, edges []flow.Edge) (Snapshot, bool) {
	if len(h.future) == 0 {
		return Snapshot{}, false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, newSnapshot(nodes, edges))
	if len(h.past) > h.limit {
		copy(h.past, h.past[1:])
		h.past = h.past[:h.limit]
	}
	return next.clone(), true
}

// CanUndo returns true if undo is available
func (h *History) CanUndo() bool {
	return len(h.past) > 0
}

// CanRedo returns true if redo is available
func (h *History) CanRedo() bool {
	return len(h.future) > 0
}

// Clear drops both stacks
func (h *History) Clear() {
	h.past = make([]Snapshot, 0)
	h.future = make([]Snapshot, 0)
}

// Len returns the sizes of the past and future stacks
func (h *History) Len() (past, future int) {
	return len(h.past), len(h.future)
}
