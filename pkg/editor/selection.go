package editor

import (
	"github.com/dshills/flowedit/pkg/flow"
)

// SelectNode makes id the selected node. An empty id clears the node
// selection; an unknown id is ignored. Selecting a node drops any edge
// selection.
func (s *Store) SelectNode(id string) bool {
	return s.update(func() bool {
		if id != "" && flow.FindNode(s.nodes, id) < 0 {
			return false
		}
		if s.selectedNodeID == id && s.selectedEdgeID == "" {
			return false
		}
		s.selectedNodeID = id
		if id != "" {
			s.selectedEdgeID = ""
		}
		return true
	})
}

// SelectEdge makes id the selected edge, the counterpart of SelectNode
func (s *Store) SelectEdge(id string) bool {
	return s.update(func() bool {
		if id != "" && flow.FindEdge(s.edges, id) < 0 {
			return false
		}
		if s.selectedEdgeID == id && s.selectedNodeID == "" {
			return false
		}
		s.selectedEdgeID = id
		if id != "" {
			s.selectedNodeID = ""
		}
		return true
	})
}

// ClearSelection drops both the node and the edge selection
func (s *Store) ClearSelection() {
	s.update(func() bool {
		if s.selectedNodeID == "" && s.selectedEdgeID == "" {
			return false
		}
		s.selectedNodeID = ""
		s.selectedEdgeID = ""
		return true
	})
}

// clearStaleSelectionLocked forgets selections whose target no longer exists
func (s *Store) clearStaleSelectionLocked() {
	if s.selectedNodeID != "" && flow.FindNode(s.nodes, s.selectedNodeID) < 0 {
		s.selectedNodeID = ""
	}
	if s.selectedEdgeID != "" && flow.FindEdge(s.edges, s.selectedEdgeID) < 0 {
		s.selectedEdgeID = ""
	}
}

// SetViewport stores the canvas pan and zoom. It is not part of history.
func (s *Store) SetViewport(v flow.Viewport) {
	s.update(func() bool {
		if s.viewport == v {
			return false
		}
		s.viewport = v
		return true
	})
}

// Nodes returns a deep copy of the node list
func (s *Store) Nodes() []flow.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return flow.CloneNodes(s.nodes)
}

// Edges returns a copy of the edge list
func (s *Store) Edges() []flow.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return flow.CloneEdges(s.edges)
}

// Node returns a copy of node id
func (s *Store) Node(id string) (flow.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := flow.FindNode(s.nodes, id)
	if i < 0 {
		return flow.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

// Edge returns a copy of edge id
func (s *Store) Edge(id string) (flow.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := flow.FindEdge(s.edges, id)
	if i < 0 {
		return flow.Edge{}, false
	}
	return s.edges[i], true
}

// SelectedNode resolves the node selection
func (s *Store) SelectedNode() (flow.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := flow.FindNode(s.nodes, s.selectedNodeID)
	if s.selectedNodeID == "" || i < 0 {
		return flow.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

// SelectedEdge resolves the edge selection
func (s *Store) SelectedEdge() (flow.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := flow.FindEdge(s.edges, s.selectedEdgeID)
	if s.selectedEdgeID == "" || i < 0 {
		return flow.Edge{}, false
	}
	return s.edges[i], true
}

// Viewport returns the canvas viewport
func (s *Store) Viewport() flow.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// CanUndo reports whether Undo would change the graph
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would change the graph
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}
