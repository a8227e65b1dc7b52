package editor

import (
	"github.com/dshills/flowedit/pkg/flow"
)

// ChangeType is the kind of an incremental change emitted by the canvas
type ChangeType string

// Change kinds
const (
	ChangeAdd        ChangeType = "add"
	ChangeRemove     ChangeType = "remove"
	ChangeReplace    ChangeType = "replace"
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
	ChangeSelect     ChangeType = "select"
)

// NodeChange is one incremental node update. Only the fields relevant to
// Type are read.
type NodeChange struct {
	Type       ChangeType
	ID         string
	Item       *flow.Node
	Position   *flow.Position
	Dragging   *bool
	Dimensions *flow.Dimensions
	Selected   *bool
}

// EdgeChange is one incremental edge update
type EdgeChange struct {
	Type     ChangeType
	ID       string
	Item     *flow.Edge
	Selected *bool
}

// applyNodeChanges folds changes into a copy of nodes. It returns the new
// list and the ids of removed nodes. Adds with an id already present are
// skipped; adds without an id get one from newID.
func applyNodeChanges(changes []NodeChange, nodes []flow.Node, newID func() string) ([]flow.Node, map[string]bool) {
	out := flow.CloneNodes(nodes)
	removed := make(map[string]bool)

	index := func(id string) int {
		return flow.FindNode(out, id)
	}

	for _, ch := range changes {
		switch ch.Type {
		case ChangeAdd:
			if ch.Item == nil {
				continue
			}
			n := ch.Item.Clone()
			if n.ID == "" {
				n.ID = newID()
			}
			if index(n.ID) >= 0 {
				continue
			}
			out = append(out, flow.EnsureNode(n))
			delete(removed, n.ID)
		case ChangeRemove:
			i := index(ch.ID)
			if i < 0 {
				continue
			}
			out = append(out[:i], out[i+1:]...)
			removed[ch.ID] = true
		case ChangeReplace:
			i := index(ch.ID)
			if i < 0 || ch.Item == nil {
				continue
			}
			n := ch.Item.Clone()
			n.ID = ch.ID
			out[i] = flow.EnsureNode(n)
		case ChangePosition:
			i := index(ch.ID)
			if i < 0 {
				continue
			}
			if ch.Position != nil {
				out[i].Position = *ch.Position
			}
			if ch.Dragging != nil {
				out[i].Dragging = *ch.Dragging
			}
		case ChangeDimensions:
			i := index(ch.ID)
			if i < 0 || ch.Dimensions == nil {
				continue
			}
			d := *ch.Dimensions
			out[i].Measured = &d
		case ChangeSelect:
			i := index(ch.ID)
			if i < 0 || ch.Selected == nil {
				continue
			}
			out[i].Selected = *ch.Selected
		}
	}
	return out, removed
}

// applyEdgeChanges folds changes into a copy of edges. Added or replaced
// edges must reference nodes in the graph; duplicates by id are skipped.
func applyEdgeChanges(changes []EdgeChange, edges []flow.Edge, nodes []flow.Node) ([]flow.Edge, map[string]bool) {
	out := flow.CloneEdges(edges)
	removed := make(map[string]bool)

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	valid := func(e flow.Edge) bool {
		return known[e.Source] && known[e.Target]
	}

	for _, ch := range changes {
		switch ch.Type {
		case ChangeAdd:
			if ch.Item == nil || !valid(*ch.Item) {
				continue
			}
			e := *ch.Item
			if e.ID == "" {
				e.ID = flow.Connection{
					Source: e.Source, Target: e.Target,
					SourceHandle: e.SourceHandle, TargetHandle: e.TargetHandle,
				}.EdgeID()
			}
			if flow.FindEdge(out, e.ID) >= 0 {
				continue
			}
			out = append(out, e)
			delete(removed, e.ID)
		case ChangeRemove:
			i := flow.FindEdge(out, ch.ID)
			if i < 0 {
				continue
			}
			out = append(out[:i], out[i+1:]...)
			removed[ch.ID] = true
		case ChangeReplace:
			i := flow.FindEdge(out, ch.ID)
			if i < 0 || ch.Item == nil || !valid(*ch.Item) {
				continue
			}
			e := *ch.Item
			e.ID = ch.ID
			out[i] = e
		case ChangeSelect:
			i := flow.FindEdge(out, ch.ID)
			if i < 0 || ch.Selected == nil {
				continue
			}
			out[i].Selected = *ch.Selected
		}
	}
	return out, removed
}

// dropEdgesTouching removes every edge incident to a node in ids
func dropEdgesTouching(edges []flow.Edge, ids map[string]bool) []flow.Edge {
	if len(ids) == 0 {
		return edges
	}
	kept := make([]flow.Edge, 0, len(edges))
	for _, e := range edges {
		if ids[e.Source] || ids[e.Target] {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
