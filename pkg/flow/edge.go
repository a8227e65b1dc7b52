package flow

import (
	"errors"
	"fmt"
)

// Edge represents a directed connection between two nodes
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"source_handle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"target_handle,omitempty"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
	Selected     bool   `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Touches reports whether the edge has nodeID as source or target
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Connection is a candidate edge emitted by the canvas when the user drags
// from one handle to another.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Validate checks that both endpoints are set
func (c Connection) Validate() error {
	if c.Source == "" {
		return errors.New("connection: empty source")
	}
	if c.Target == "" {
		return errors.New("connection: empty target")
	}
	return nil
}

// EdgeID derives the id of the edge created from c. The canvas uses the same
// scheme, so connecting the same handles twice yields the same id.
func (c Connection) EdgeID() string {
	return fmt.Sprintf("xy-edge__%s%s-%s%s", c.Source, c.SourceHandle, c.Target, c.TargetHandle)
}

// Edge builds the edge created from c
func (c Connection) Edge() Edge {
	return Edge{
		ID:           c.EdgeID(),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	}
}

// Matches reports whether e connects the same handles as c
func (c Connection) Matches(e Edge) bool {
	return e.Source == c.Source && e.Target == c.Target &&
		e.SourceHandle == c.SourceHandle && e.TargetHandle == c.TargetHandle
}

// CloneEdges copies an edge list. A nil input yields an empty list.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// FindEdge returns the index of the edge with id, or -1
func FindEdge(edges []Edge, id string) int {
	for i := range edges {
		if edges[i].ID == id {
			return i
		}
	}
	return -1
}

// PruneEdges drops edges whose source or target is not in nodes.
// It returns the kept edges and the number dropped.
func PruneEdges(nodes []Node, edges []Edge) ([]Edge, int) {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	kept := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if ids[e.Source] && ids[e.Target] {
			kept = append(kept, e)
		}
	}
	return kept, len(edges) - len(kept)
}
