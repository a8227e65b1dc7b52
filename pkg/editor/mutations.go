package editor

import (
	"github.com/dshills/flowedit/pkg/flow"
)

// SetNodes replaces the node list wholesale. Nodes are normalized; edges left
// dangling by the replacement are dropped. No history entry is recorded.
func (s *Store) SetNodes(nodes []flow.Node) {
	normalized := flow.EnsureNodes(nodes)
	s.update(func() bool {
		s.nodes = normalized
		s.edges = s.pruneLocked(s.edges)
		s.clearStaleSelectionLocked()
		s.revision++
		return true
	})
}

// SetEdges replaces the edge list wholesale. No history entry is recorded.
func (s *Store) SetEdges(edges []flow.Edge) {
	s.update(func() bool {
		s.edges = s.pruneLocked(edges)
		s.clearStaleSelectionLocked()
		s.revision++
		return true
	})
}

func (s *Store) pruneLocked(edges []flow.Edge) []flow.Edge {
	kept, dropped := flow.PruneEdges(s.nodes, edges)
	if dropped > 0 {
		s.logger.Debug("dropped dangling edges", "count", dropped)
	}
	return kept
}

// ApplyNodeChanges folds a batch of incremental canvas changes into the
// node list. A non-empty batch records one history entry. Removed nodes take
// their incident edges with them.
func (s *Store) ApplyNodeChanges(changes []NodeChange) {
	if len(changes) == 0 {
		return
	}
	s.update(func() bool {
		s.checkpointLocked()
		nodes, removed := applyNodeChanges(changes, s.nodes, s.newID)
		s.nodes = nodes
		s.edges = dropEdgesTouching(s.edges, removed)
		s.clearStaleSelectionLocked()
		s.touchLocked()
		return true
	})
}

// ApplyEdgeChanges folds a batch of incremental canvas changes into the
// edge list. A non-empty batch records one history entry.
func (s *Store) ApplyEdgeChanges(changes []EdgeChange) {
	if len(changes) == 0 {
		return
	}
	s.update(func() bool {
		s.checkpointLocked()
		edges, _ := applyEdgeChanges(changes, s.edges, s.nodes)
		s.edges = edges
		s.clearStaleSelectionLocked()
		s.touchLocked()
		return true
	})
}

// Connect adds the edge described by c. Connections with a missing
// endpoint, an unknown node, identical endpoints or an existing twin are
// ignored. It returns the new edge id and whether the edge was added.
func (s *Store) Connect(c flow.Connection) (string, bool) {
	if err := c.Validate(); err != nil {
		s.logger.Debug("ignoring connection", "error", err)
		return "", false
	}
	if c.Source == c.Target {
		s.logger.Debug("ignoring self connection", "node", c.Source)
		return "", false
	}

	edge := c.Edge()
	added := s.update(func() bool {
		if flow.FindNode(s.nodes, c.Source) < 0 || flow.FindNode(s.nodes, c.Target) < 0 {
			return false
		}
		for _, e := range s.edges {
			if c.Matches(e) || e.ID == edge.ID {
				return false
			}
		}
		s.checkpointLocked()
		s.edges = append(flow.CloneEdges(s.edges), edge)
		s.touchLocked()
		return true
	})
	if !added {
		return "", false
	}
	return edge.ID, true
}

// AddNode creates a node of type t at pos and returns its id. The optional
// patch is merged over the defaults; the header always carries the new id.
func (s *Store) AddNode(t flow.NodeType, pos flow.Position, patch *flow.DataPatch) string {
	if t == "" {
		t = flow.TypeText
	}
	id := s.newID()

	data := flow.NodeData{
		Icon:    flow.IconNoop,
		Label:   flow.NewNodeLabel,
		Type:    t,
		Header:  flow.NewHeader(id, flow.NewNodeLabel, t),
		Payload: flow.NewPayload(t),
	}
	if patch != nil {
		merged, err := patch.Apply(data)
		if err != nil {
			s.logger.Warn("ignoring payload of new node", "node", id, "error", err)
			p := *patch
			p.Payload = nil
			merged, _ = p.Apply(data)
		}
		data = merged
	}
	data.Type = t
	if data.Header == nil {
		data.Header = flow.NewHeader(id, data.Label, t)
	}
	data.Header.NodeID = id
	data.Header.Type = t

	node := flow.EnsureNode(flow.Node{ID: id, Type: t, Position: pos, Data: data})

	s.update(func() bool {
		s.checkpointLocked()
		s.nodes = append(flow.CloneNodes(s.nodes), node)
		s.touchLocked()
		return true
	})
	return id
}

// UpdateNode merges patch into the data of node id. Unknown ids and payloads
// of the wrong variant are ignored. It reports whether the node changed.
func (s *Store) UpdateNode(id string, patch flow.DataPatch) bool {
	return s.update(func() bool {
		i := flow.FindNode(s.nodes, id)
		if i < 0 {
			return false
		}
		data, err := patch.Apply(s.nodes[i].Data)
		if err != nil {
			s.logger.Warn("rejecting node update", "node", id, "error", err)
			return false
		}
		s.checkpointLocked()
		nodes := flow.CloneNodes(s.nodes)
		nodes[i].Data = data
		nodes[i] = flow.EnsureNode(nodes[i])
		s.nodes = nodes
		s.touchLocked()
		return true
	})
}

// DuplicateNode copies node id with a fresh id, offset by (+50, +50) and a
// " (Copy)" label suffix. Edges are not duplicated.
func (s *Store) DuplicateNode(id string) (string, bool) {
	newID := s.newID()
	ok := s.update(func() bool {
		i := flow.FindNode(s.nodes, id)
		if i < 0 {
			return false
		}
		dup := s.nodes[i].Clone()
		dup.ID = newID
		dup.Position = dup.Position.Offset(50, 50)
		dup.Selected = false
		dup.Dragging = false
		dup.Data.Label += flow.CopyLabelSuffix
		if dup.Data.Header != nil {
			dup.Data.Header.NodeID = newID
			dup.Data.Header.Label = dup.Data.Label
		}

		s.checkpointLocked()
		s.nodes = append(flow.CloneNodes(s.nodes), dup)
		s.touchLocked()
		return true
	})
	if !ok {
		return "", false
	}
	return newID, true
}

// RemoveNode deletes node id together with its incident edges
func (s *Store) RemoveNode(id string) bool {
	return s.update(func() bool {
		i := flow.FindNode(s.nodes, id)
		if i < 0 {
			return false
		}
		s.checkpointLocked()
		nodes := make([]flow.Node, 0, len(s.nodes)-1)
		nodes = append(nodes, s.nodes[:i]...)
		nodes = append(nodes, s.nodes[i+1:]...)
		s.nodes = nodes
		s.edges = dropEdgesTouching(s.edges, map[string]bool{id: true})
		s.clearStaleSelectionLocked()
		s.touchLocked()
		return true
	})
}

// RemoveEdge deletes edge id
func (s *Store) RemoveEdge(id string) bool {
	return s.update(func() bool {
		i := flow.FindEdge(s.edges, id)
		if i < 0 {
			return false
		}
		s.checkpointLocked()
		edges := make([]flow.Edge, 0, len(s.edges)-1)
		edges = append(edges, s.edges[:i]...)
		edges = append(edges, s.edges[i+1:]...)
		s.edges = edges
		s.clearStaleSelectionLocked()
		s.touchLocked()
		return true
	})
}

// ClearGraph removes every node and edge as a single undoable step.
// Clearing an empty graph is a no-op.
func (s *Store) ClearGraph() bool {
	return s.update(func() bool {
		if len(s.nodes) == 0 && len(s.edges) == 0 {
			return false
		}
		s.checkpointLocked()
		s.nodes = []flow.Node{}
		s.edges = []flow.Edge{}
		s.selectedNodeID = ""
		s.selectedEdgeID = ""
		s.touchLocked()
		return true
	})
}

// Undo restores the graph recorded by the latest checkpoint
func (s *Store) Undo() bool {
	return s.update(func() bool {
		snap, ok := s.history.Undo(s.nodes, s.edges)
		if !ok {
			return false
		}
		s.nodes = snap.Nodes
		s.edges = snap.Edges
		s.clearStaleSelectionLocked()
		s.touchLocked()
		return true
	})
}

// Redo re-applies the most recently undone graph
func (s *Store) Redo() bool {
	return s.update(func() bool {
		snap, ok := s.history.Redo(s.nodes, s.edges)
		if !ok {
			return false
		}
		s.nodes = snap.Nodes
		s.edges = snap.Edges
		s.clearStaleSelectionLocked()
		s.touchLocked()
		return true
	})
}
