// Package editor implements the flow editor state core: the graph store,
// its mutation protocol, undo/redo history, selection and the persistence
// façade used by the builder UI and the CLI.
package editor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	ferrors "github.com/dshills/flowedit/pkg/errors"
	"github.com/dshills/flowedit/pkg/flow"
)

// DefaultFlowName names a flow that was never named
const DefaultFlowName = "Untitled Flow"

// Backend is the storage collaborator used by SaveFlow and LoadFlow
type Backend interface {
	SaveFlow(ctx context.Context, rec *flow.Record) error
	LoadFlow(ctx context.Context, id string) (*flow.Record, error)
}

// Options configures a Store
type Options struct {
	// FlowID identifies the flow being edited; empty means unsaved
	FlowID string
	// FlowName defaults to DefaultFlowName
	FlowName string
	// InitialNodes and InitialEdges hydrate the graph
	InitialNodes []flow.Node
	InitialEdges []flow.Edge
	// HistoryLimit bounds the undo stack, DefaultHistoryLimit when zero
	HistoryLimit int

	Backend  Backend
	Layouter Layouter
	Logger   *slog.Logger

	// NewID generates node ids, flow.NewNodeID when nil
	NewID func() string
	// Now is the clock used for record timestamps, time.Now when nil
	Now func() time.Time
}

// State is a deep-copied, read-only view of the editor
type State struct {
	Nodes          []flow.Node
	Edges          []flow.Edge
	SelectedNodeID string
	SelectedEdgeID string
	Viewport       flow.Viewport
	CanUndo        bool
	CanRedo        bool
	IsLoading      bool
	Error          string
	IsDirty        bool
	FlowID         string
	FlowName       string
	// Revision increases whenever persisted content (graph or name) changes
	Revision uint64
}

// Store is the single source of truth for one editor session. All methods
// are safe for concurrent use; every transition is atomic.
type Store struct {
	mu sync.RWMutex

	nodes          []flow.Node
	edges          []flow.Edge
	selectedNodeID string
	selectedEdgeID string
	viewport       flow.Viewport
	history        *History
	isLoading      bool
	lastErr        *ferrors.OperationalError
	isDirty        bool
	flowID         string
	flowName       string
	revision       uint64

	// persistMu is the single in-flight token shared by SaveFlow and LoadFlow
	persistMu sync.Mutex

	backend  Backend
	layouter Layouter
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates a store hydrated from opts
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	newID := opts.NewID
	if newID == nil {
		newID = flow.NewNodeID
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	name := opts.FlowName
	if name == "" {
		name = DefaultFlowName
	}

	nodes := flow.EnsureNodes(opts.InitialNodes)
	edges, dropped := flow.PruneEdges(nodes, opts.InitialEdges)
	if dropped > 0 {
		logger.Warn("dropped dangling edges from initial graph", "count", dropped)
	}

	return &Store{
		nodes:    nodes,
		edges:    edges,
		viewport: flow.DefaultViewport(),
		history:  NewHistory(opts.HistoryLimit),
		flowID:   opts.FlowID,
		flowName: name,
		backend:  opts.Backend,
		layouter: opts.Layouter,
		logger:   logger.With("component", "editor"),
		newID:    newID,
		now:      now,
		subs:     make(map[int]func(State)),
	}
}

// Subscribe registers fn to be called with the new state after every
// transition. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(st State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// update runs fn under the write lock. When fn reports a change the
// subscribers are notified after the lock is released.
func (s *Store) update(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	var st State
	if changed {
		st = s.stateLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify(st)
	}
	return changed
}

// checkpointLocked records the current graph before a structural mutation
func (s *Store) checkpointLocked() {
	s.history.Checkpoint(s.nodes, s.edges)
}

// touchLocked marks persisted content as changed and unsaved
func (s *Store) touchLocked() {
	s.isDirty = true
	s.revision++
}

// State returns a deep copy of the whole editor state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{
		Nodes:          flow.CloneNodes(s.nodes),
		Edges:          flow.CloneEdges(s.edges),
		SelectedNodeID: s.selectedNodeID,
		SelectedEdgeID: s.selectedEdgeID,
		Viewport:       s.viewport,
		CanUndo:        s.history.CanUndo(),
		CanRedo:        s.history.CanRedo(),
		IsLoading:      s.isLoading,
		IsDirty:        s.isDirty,
		FlowID:         s.flowID,
		FlowName:       s.flowName,
		Revision:       s.revision,
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Message()
	}
	return st
}

// SetFlowID assigns the identifier the flow is saved under
func (s *Store) SetFlowID(id string) {
	s.update(func() bool {
		if s.flowID == id {
			return false
		}
		s.flowID = id
		return true
	})
}

// SetFlowName renames the flow. A rename is an unsaved change.
func (s *Store) SetFlowName(name string) {
	s.update(func() bool {
		if s.flowName == name {
			return false
		}
		s.flowName = name
		s.touchLocked()
		return true
	})
}

// SetDirty overrides the dirty flag
func (s *Store) SetDirty(dirty bool) {
	s.update(func() bool {
		if s.isDirty == dirty {
			return false
		}
		s.isDirty = dirty
		return true
	})
}

// ResetFlow reinitializes every field to its default except the flow id
func (s *Store) ResetFlow() {
	s.update(func() bool {
		s.nodes = []flow.Node{}
		s.edges = []flow.Edge{}
		s.selectedNodeID = ""
		s.selectedEdgeID = ""
		s.viewport = flow.DefaultViewport()
		s.history.Clear()
		s.isLoading = false
		s.lastErr = nil
		s.isDirty = false
		s.flowName = DefaultFlowName
		s.revision++
		return true
	})
}

// LoadGraph replaces the graph and name as a fresh load: nodes are
// normalized, dangling edges dropped, and dirty flag, history and selection
// cleared. An empty name keeps the current one.
func (s *Store) LoadGraph(nodes []flow.Node, edges []flow.Edge, name string) {
	normalized := flow.EnsureNodes(nodes)
	kept, dropped := flow.PruneEdges(normalized, edges)
	if dropped > 0 {
		s.logger.Warn("dropped dangling edges while loading", "count", dropped)
	}

	s.update(func() bool {
		s.nodes = normalized
		s.edges = kept
		if name != "" {
			s.flowName = name
		}
		s.isDirty = false
		s.history.Clear()
		s.selectedNodeID = ""
		s.selectedEdgeID = ""
		s.revision++
		return true
	})
}
