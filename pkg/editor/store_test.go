package editor

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowedit/pkg/flow"
)

// sequentialIDs returns a generator of predictable node ids
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("node-%d", n)
	}
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.NewID == nil {
		opts.NewID = sequentialIDs()
	}
	return New(opts)
}

// assertSelectionExclusive checks that never both selections are set
func assertSelectionExclusive(t *testing.T, s *Store) {
	t.Helper()
	st := s.State()
	assert.False(t, st.SelectedNodeID != "" && st.SelectedEdgeID != "",
		"node %q and edge %q both selected", st.SelectedNodeID, st.SelectedEdgeID)
}

func TestNewDefaults(t *testing.T) {
	s := newTestStore(t, Options{})
	st := s.State()

	assert.Empty(t, st.Nodes)
	assert.Empty(t, st.Edges)
	assert.Equal(t, DefaultFlowName, st.FlowName)
	assert.Equal(t, flow.DefaultViewport(), st.Viewport)
	assert.False(t, st.IsDirty)
	assert.False(t, st.IsLoading)
	assert.False(t, st.CanUndo)
	assert.Empty(t, st.Error)
}

func TestNewNormalizesInitialGraph(t *testing.T) {
	s := newTestStore(t, Options{
		InitialNodes: []flow.Node{{ID: "a"}, {ID: "b", Type: flow.TypeStart}},
		InitialEdges: []flow.Edge{
			{ID: "ab", Source: "a", Target: "b"},
			{ID: "ax", Source: "a", Target: "missing"},
		},
	})

	nodes := s.Nodes()
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		require.NotNil(t, n.Data.Header)
		assert.Equal(t, n.ID, n.Data.Header.NodeID)
		assert.NotEmpty(t, n.Data.Type)
	}
	assert.Equal(t, flow.TypeText, nodes[0].Data.Type)
	assert.Equal(t, flow.TypeStart, nodes[1].Data.Type)

	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "ab", edges[0].ID)
}

func TestAddNodeScenario(t *testing.T) {
	s := New(Options{})
	id := s.AddNode(flow.TypeText, flow.Position{}, nil)

	nodes := s.Nodes()
	require.Len(t, nodes, 1)
	n := nodes[0]
	assert.Equal(t, id, n.ID)
	assert.True(t, strings.HasPrefix(id, flow.NodeIDPrefix))
	assert.Equal(t, flow.TypeText, n.Type)
	assert.Equal(t, flow.TypeText, n.Data.Type)
	assert.Equal(t, flow.NewNodeLabel, n.Data.Label)
	require.NotNil(t, n.Data.Header)
	assert.Equal(t, id, n.Data.Header.NodeID)
	assert.Equal(t, flow.StatusIdle, n.Data.Header.Status)
	assert.IsType(t, &flow.TextPayload{}, n.Data.Payload)

	st := s.State()
	assert.True(t, st.IsDirty)
	assert.True(t, st.CanUndo)
}

func TestAddNodeWithPatch(t *testing.T) {
	s := newTestStore(t, Options{})
	patch := flow.DataPatch{
		Label:   flow.Ptr("Greeting"),
		Payload: &flow.TextPayload{Content: "hello"},
	}
	id := s.AddNode(flow.TypeText, flow.Position{X: 10, Y: 20}, &patch)

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, "Greeting", n.Data.Label)
	assert.Equal(t, "Greeting", n.Data.Header.Label)
	assert.Equal(t, flow.Position{X: 10, Y: 20}, n.Position)
	assert.Equal(t, "hello", n.Data.Payload.(*flow.TextPayload).Content)
}

func TestAddNodeIgnoresMismatchedPayload(t *testing.T) {
	s := newTestStore(t, Options{})
	patch := flow.DataPatch{
		Label:   flow.Ptr("Counter"),
		Payload: &flow.TextPayload{Content: "wrong"},
	}
	id := s.AddNode(flow.TypeNumber, flow.Position{}, &patch)

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, "Counter", n.Data.Label)
	assert.IsType(t, &flow.NumberPayload{}, n.Data.Payload)
}

func TestAddNodeHeaderAlwaysCarriesID(t *testing.T) {
	s := newTestStore(t, Options{})
	patch := flow.DataPatch{Header: &flow.Header{NodeID: "someone-else", Label: "Custom"}}
	id := s.AddNode(flow.TypeAPI, flow.Position{}, &patch)

	n, _ := s.Node(id)
	assert.Equal(t, id, n.Data.Header.NodeID)
	assert.Equal(t, flow.TypeAPI, n.Data.Header.Type)
	assert.Equal(t, "Custom", n.Data.Header.Label)
}

func TestUpdateNode(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	before, _ := s.Node(b)

	ok := s.UpdateNode(a, flow.DataPatch{
		Label:   flow.Ptr("Renamed"),
		Status:  flow.Ptr(flow.StatusRunning),
		Payload: &flow.TextPayload{Content: "x"},
	})
	require.True(t, ok)

	n, _ := s.Node(a)
	assert.Equal(t, "Renamed", n.Data.Label)
	assert.Equal(t, "Renamed", n.Data.Header.Label)
	assert.Equal(t, flow.StatusRunning, n.Data.Header.Status)
	assert.Equal(t, "x", n.Data.Payload.(*flow.TextPayload).Content)

	after, _ := s.Node(b)
	assert.Equal(t, before, after, "other nodes must be untouched")
}

func TestUpdateNodeRejectsUnknownAndMismatched(t *testing.T) {
	s := newTestStore(t, Options{})
	id := s.AddNode(flow.TypeText, flow.Position{}, nil)
	before := s.State()

	assert.False(t, s.UpdateNode("missing", flow.DataPatch{Label: flow.Ptr("x")}))
	assert.False(t, s.UpdateNode(id, flow.DataPatch{Payload: &flow.NumberPayload{Value: 1}}))

	after := s.State()
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestDuplicateNodeLaw(t *testing.T) {
	s := newTestStore(t, Options{})
	patch := flow.DataPatch{Label: flow.Ptr("Source")}
	id := s.AddNode(flow.TypeModel, flow.Position{X: 12, Y: -3}, &patch)
	s.Connect(flow.Connection{Source: id, Target: s.AddNode(flow.TypeEnd, flow.Position{}, nil)})
	edgesBefore := len(s.Edges())

	dupID, ok := s.DuplicateNode(id)
	require.True(t, ok)
	assert.NotEqual(t, id, dupID)

	orig, _ := s.Node(id)
	dup, _ := s.Node(dupID)
	assert.Equal(t, orig.Position.X+50, dup.Position.X)
	assert.Equal(t, orig.Position.Y+50, dup.Position.Y)
	assert.Equal(t, "Source (Copy)", dup.Data.Label)
	assert.Equal(t, dupID, dup.Data.Header.NodeID)
	assert.Equal(t, orig.Data.Payload, dup.Data.Payload)
	assert.Len(t, s.Edges(), edgesBefore, "edges are not duplicated")

	_, ok = s.DuplicateNode("missing")
	assert.False(t, ok)
}

func TestRemoveNodeScenario(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	_, ok := s.Connect(flow.Connection{Source: a, Target: b})
	require.True(t, ok)

	require.True(t, s.RemoveNode(a))

	nodes := s.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, b, nodes[0].ID)
	assert.Empty(t, s.Edges())
}

func TestCascadeInvariant(t *testing.T) {
	s := newTestStore(t, Options{})
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = s.AddNode(flow.TypeText, flow.Position{}, nil)
	}
	for i := range ids {
		for j := range ids {
			if i != j {
				s.Connect(flow.Connection{Source: ids[i], Target: ids[j]})
			}
		}
	}
	require.Len(t, s.Edges(), 20)

	for _, victim := range ids {
		s.RemoveNode(victim)
		for _, e := range s.Edges() {
			assert.False(t, e.Touches(victim), "edge %s still references %s", e.ID, victim)
		}
	}
	assert.Empty(t, s.Edges())
}

func TestRemoveNodeClearsSelection(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	edgeID, _ := s.Connect(flow.Connection{Source: a, Target: b})

	s.SelectEdge(edgeID)
	s.RemoveNode(a)
	assert.Empty(t, s.State().SelectedEdgeID, "edge removed by cascade stays selected")

	s.SelectNode(b)
	s.RemoveNode(b)
	assert.Empty(t, s.State().SelectedNodeID)
	assert.False(t, s.RemoveNode(b))
}

func TestRemoveEdge(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	edgeID, _ := s.Connect(flow.Connection{Source: a, Target: b})
	s.SelectEdge(edgeID)

	require.True(t, s.RemoveEdge(edgeID))
	assert.Empty(t, s.Edges())
	assert.Empty(t, s.State().SelectedEdgeID)
	assert.Len(t, s.Nodes(), 2)
	assert.False(t, s.RemoveEdge(edgeID))
}

func TestConnect(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	c := flow.Connection{Source: a, Target: b, SourceHandle: "out", TargetHandle: "in"}

	id, ok := s.Connect(c)
	require.True(t, ok)
	assert.Equal(t, "xy-edge__"+a+"out-"+b+"in", id)

	tests := []struct {
		name string
		conn flow.Connection
	}{
		{"duplicate", c},
		{"empty source", flow.Connection{Target: b}},
		{"empty target", flow.Connection{Source: a}},
		{"unknown node", flow.Connection{Source: a, Target: "ghost"}},
		{"self loop", flow.Connection{Source: a, Target: a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev := s.State().Revision
			_, ok := s.Connect(tt.conn)
			assert.False(t, ok)
			assert.Len(t, s.Edges(), 1)
			assert.Equal(t, rev, s.State().Revision)
		})
	}
}

func TestInvalidConnectDoesNotCheckpoint(t *testing.T) {
	s := newTestStore(t, Options{})
	s.Connect(flow.Connection{Source: "x", Target: "y"})
	assert.False(t, s.CanUndo())
	assert.False(t, s.State().IsDirty)
}

func TestClearGraph(t *testing.T) {
	s := newTestStore(t, Options{})
	assert.False(t, s.ClearGraph())

	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	s.Connect(flow.Connection{Source: a, Target: b})
	s.SelectNode(a)
	before := s.State()

	require.True(t, s.ClearGraph())
	st := s.State()
	assert.Empty(t, st.Nodes)
	assert.Empty(t, st.Edges)
	assert.Empty(t, st.SelectedNodeID)

	require.True(t, s.Undo())
	after := s.State()
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, before.Edges, after.Edges)
}

func TestSelectionExclusivity(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	edgeID, _ := s.Connect(flow.Connection{Source: a, Target: b})

	steps := []func(){
		func() { s.SelectNode(a) },
		func() { s.SelectEdge(edgeID) },
		func() { s.SelectNode(b) },
		func() { s.SelectEdge("") },
		func() { s.SelectEdge(edgeID) },
		func() { s.SelectNode("") },
		func() { s.SelectNode("unknown") },
		func() { s.ClearSelection() },
	}
	for _, step := range steps {
		step()
		assertSelectionExclusive(t, s)
	}
}

func TestSelectNodeAndEdge(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{}, nil)
	edgeID, _ := s.Connect(flow.Connection{Source: a, Target: b})

	require.True(t, s.SelectNode(a))
	n, ok := s.SelectedNode()
	require.True(t, ok)
	assert.Equal(t, a, n.ID)

	require.True(t, s.SelectEdge(edgeID))
	_, ok = s.SelectedNode()
	assert.False(t, ok)
	e, ok := s.SelectedEdge()
	require.True(t, ok)
	assert.Equal(t, edgeID, e.ID)

	assert.False(t, s.SelectNode("unknown"))
	assert.Equal(t, edgeID, s.State().SelectedEdgeID)

	s.ClearSelection()
	_, ok = s.SelectedEdge()
	assert.False(t, ok)
}

func TestSelectionAndViewportAreNotStructural(t *testing.T) {
	s := newTestStore(t, Options{})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	s.SetDirty(false)

	s.SelectNode(a)
	s.SetViewport(flow.Viewport{X: 10, Y: 20, Zoom: 1.5})

	st := s.State()
	assert.False(t, st.IsDirty)
	assert.Equal(t, flow.Viewport{X: 10, Y: 20, Zoom: 1.5}, s.Viewport())
	past, _ := s.history.Len()
	assert.Equal(t, 1, past)
}

func TestUndoRedoInverseLaw(t *testing.T) {
	mutations := map[string]func(s *Store, ids []string){
		"add node":       func(s *Store, ids []string) { s.AddNode(flow.TypeLoop, flow.Position{X: 1}, nil) },
		"update node":    func(s *Store, ids []string) { s.UpdateNode(ids[0], flow.DataPatch{Label: flow.Ptr("x")}) },
		"duplicate node": func(s *Store, ids []string) { s.DuplicateNode(ids[1]) },
		"remove node":    func(s *Store, ids []string) { s.RemoveNode(ids[0]) },
		"remove edge":    func(s *Store, ids []string) { s.RemoveEdge(s.Edges()[0].ID) },
		"connect":        func(s *Store, ids []string) { s.Connect(flow.Connection{Source: ids[1], Target: ids[0]}) },
		"clear":          func(s *Store, ids []string) { s.ClearGraph() },
		"node changes": func(s *Store, ids []string) {
			s.ApplyNodeChanges([]NodeChange{{Type: ChangePosition, ID: ids[0], Position: &flow.Position{X: 99, Y: 99}}})
		},
		"edge changes": func(s *Store, ids []string) {
			s.ApplyEdgeChanges([]EdgeChange{{Type: ChangeRemove, ID: s.Edges()[0].ID}})
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, Options{})
			ids := []string{
				s.AddNode(flow.TypeText, flow.Position{}, nil),
				s.AddNode(flow.TypeNumber, flow.Position{X: 100}, nil),
			}
			s.Connect(flow.Connection{Source: ids[0], Target: ids[1]})
			before := s.State()

			mutate(s, ids)
			require.True(t, s.Undo())

			after := s.State()
			assert.Equal(t, before.Nodes, after.Nodes)
			assert.Equal(t, before.Edges, after.Edges)
		})
	}
}

func TestUndoRedoScenario(t *testing.T) {
	s := newTestStore(t, Options{})
	s.AddNode(flow.TypeText, flow.Position{}, nil)
	afterM1 := s.State()
	s.AddNode(flow.TypeText, flow.Position{}, nil)
	afterM2 := s.State()
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	require.True(t, s.Undo())
	require.True(t, s.Undo())
	assert.Equal(t, afterM1.Nodes, s.Nodes())

	require.True(t, s.Redo())
	assert.Equal(t, afterM2.Nodes, s.Nodes())
	assert.True(t, s.State().IsDirty)
}

func TestRedoDiscardLaw(t *testing.T) {
	s := newTestStore(t, Options{})
	s.AddNode(flow.TypeText, flow.Position{}, nil)
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	require.True(t, s.Undo())
	require.True(t, s.CanRedo())
	s.AddNode(flow.TypeEnd, flow.Position{}, nil)
	assert.False(t, s.CanRedo())

	before := s.Nodes()
	assert.False(t, s.Redo())
	assert.Equal(t, before, s.Nodes())
}

func TestUndoWithEmptyHistoryIsNoop(t *testing.T) {
	s := newTestStore(t, Options{})
	rev := s.State().Revision
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
	assert.Equal(t, rev, s.State().Revision)
	assert.False(t, s.State().IsDirty)
}

func TestUndoPrunesStaleSelection(t *testing.T) {
	s := newTestStore(t, Options{})
	id := s.AddNode(flow.TypeText, flow.Position{}, nil)
	s.SelectNode(id)

	require.True(t, s.Undo())
	assert.Empty(t, s.State().SelectedNodeID)
}

func TestHistoryLimitOption(t *testing.T) {
	s := newTestStore(t, Options{HistoryLimit: 2})
	for i := 0; i < 5; i++ {
		s.AddNode(flow.TypeText, flow.Position{}, nil)
	}
	assert.True(t, s.Undo())
	assert.True(t, s.Undo())
	assert.False(t, s.Undo())
	assert.Len(t, s.Nodes(), 3)
}

func TestSetNodesAndEdges(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]flow.Node{{ID: "a"}, {ID: "b"}})
	s.SetEdges([]flow.Edge{
		{ID: "ab", Source: "a", Target: "b"},
		{ID: "bz", Source: "b", Target: "z"},
	})

	st := s.State()
	require.Len(t, st.Nodes, 2)
	require.NotNil(t, st.Nodes[0].Data.Header)
	require.Len(t, st.Edges, 1)
	assert.False(t, st.IsDirty)
	assert.False(t, st.CanUndo)

	// Dropping a node takes dangling edges with it
	s.SetNodes([]flow.Node{{ID: "a"}})
	assert.Empty(t, s.Edges())
}

func TestSetFlowMetadata(t *testing.T) {
	s := newTestStore(t, Options{})

	s.SetFlowID("flow-1")
	assert.Equal(t, "flow-1", s.Status().FlowID)
	assert.False(t, s.Status().IsDirty)

	s.SetFlowName("Renamed")
	st := s.Status()
	assert.Equal(t, "Renamed", st.FlowName)
	assert.True(t, st.IsDirty)

	s.SetDirty(false)
	assert.False(t, s.Status().IsDirty)
}

func TestResetFlowKeepsID(t *testing.T) {
	s := newTestStore(t, Options{FlowID: "keep", FlowName: "Named"})
	s.AddNode(flow.TypeText, flow.Position{}, nil)
	s.SetViewport(flow.Viewport{X: 5, Zoom: 2})

	s.ResetFlow()
	st := s.State()
	assert.Equal(t, "keep", st.FlowID)
	assert.Equal(t, DefaultFlowName, st.FlowName)
	assert.Empty(t, st.Nodes)
	assert.Equal(t, flow.DefaultViewport(), st.Viewport)
	assert.False(t, st.IsDirty)
	assert.False(t, st.CanUndo)
}

func TestLoadGraph(t *testing.T) {
	s := newTestStore(t, Options{})
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	s.LoadGraph([]flow.Node{{ID: "x"}}, []flow.Edge{{ID: "dangling", Source: "x", Target: "gone"}}, "Loaded")
	st := s.State()
	require.Len(t, st.Nodes, 1)
	assert.Equal(t, "x", st.Nodes[0].ID)
	assert.Empty(t, st.Edges)
	assert.Equal(t, "Loaded", st.FlowName)
	assert.False(t, st.IsDirty)
	assert.False(t, st.CanUndo)

	s.LoadGraph(nil, nil, "")
	assert.Equal(t, "Loaded", s.State().FlowName)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStore(t, Options{FlowName: "Round Trip"})
	a := src.AddNode(flow.TypeStart, flow.Position{X: 1, Y: 2}, nil)
	b := src.AddNode(flow.TypeText, flow.Position{X: 3, Y: 4}, &flow.DataPatch{
		Payload: &flow.TextPayload{Content: "body", Placeholder: "p", MaxLength: 10},
	})
	src.Connect(flow.Connection{Source: a, Target: b})
	exported := src.ExportFlow()

	var buf bytes.Buffer
	require.NoError(t, flow.EncodeExport(&buf, exported))
	decoded, err := flow.DecodeExport(buf.Bytes())
	require.NoError(t, err)

	dst := New(Options{})
	dst.ImportFlow(*decoded)
	again := dst.ExportFlow()

	assert.Equal(t, exported.FlowName, again.FlowName)
	assert.Equal(t, exported.Nodes, again.Nodes)
	assert.Equal(t, exported.Edges, again.Edges)
	assert.False(t, dst.State().IsDirty)
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t, Options{})
	var (
		mu     sync.Mutex
		states []State
	)
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	s.AddNode(flow.TypeText, flow.Position{}, nil)
	s.ClearSelection() // no change, no notification
	unsubscribe()
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 1)
	assert.Len(t, states[0].Nodes, 1)
	assert.True(t, states[0].IsDirty)
}

func TestSubscriberMayCallStore(t *testing.T) {
	s := newTestStore(t, Options{})
	var seen int
	s.Subscribe(func(st State) {
		seen = len(s.Nodes())
	})
	s.AddNode(flow.TypeText, flow.Position{}, nil)
	assert.Equal(t, 1, seen)
}

func TestConcurrentMutations(t *testing.T) {
	s := New(Options{HistoryLimit: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				id := s.AddNode(flow.TypeText, flow.Position{}, nil)
				s.SelectNode(id)
				s.UpdateNode(id, flow.DataPatch{Label: flow.Ptr("n")})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Nodes(), 200)
	assertSelectionExclusive(t, s)
}
