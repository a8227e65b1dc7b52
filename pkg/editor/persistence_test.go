package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/dshills/flowedit/pkg/errors"
	"github.com/dshills/flowedit/pkg/flow"
)

// memoryBackend is an in-process Backend with hooks for failure injection
type memoryBackend struct {
	mu      sync.Mutex
	records map[string]*flow.Record
	saves   int
	saveErr error
	loadErr error
	// block, when set, is waited on inside SaveFlow
	block chan struct{}
	// entered is signalled when SaveFlow starts
	entered chan struct{}
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{records: make(map[string]*flow.Record)}
}

func (b *memoryBackend) SaveFlow(ctx context.Context, rec *flow.Record) error {
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.records[rec.ID] = rec.Clone()
	return nil
}

func (b *memoryBackend) LoadFlow(ctx context.Context, id string) (*flow.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	rec, ok := b.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec.Clone(), nil
}

func (b *memoryBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *memoryBackend) record(id string) *flow.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.records[id].Clone()
}

func TestSaveFlowWithoutIDIsNoop(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend})
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	require.NoError(t, s.SaveFlow(context.Background()))
	assert.Zero(t, backend.saveCount())
	assert.True(t, s.Status().IsDirty)
}

func TestSaveFlow(t *testing.T) {
	backend := newMemoryBackend()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, Options{
		Backend:  backend,
		FlowID:   "flow-1",
		FlowName: "Saved",
		Now:      func() time.Time { return now },
	})
	a := s.AddNode(flow.TypeText, flow.Position{}, nil)
	b := s.AddNode(flow.TypeEnd, flow.Position{}, nil)
	s.Connect(flow.Connection{Source: a, Target: b})

	require.NoError(t, s.SaveFlow(context.Background()))

	st := s.Status()
	assert.False(t, st.IsDirty)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)

	rec := backend.record("flow-1")
	require.NotNil(t, rec)
	assert.Equal(t, "Saved", rec.Name)
	assert.Len(t, rec.Nodes, 2)
	assert.Len(t, rec.Edges, 1)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestSaveFlowFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.saveErr = errors.New("disk full")
	s := newTestStore(t, Options{Backend: backend, FlowID: "flow-1"})
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	err := s.SaveFlow(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.IsKind(err, ferrors.SaveFailure))
	assert.ErrorIs(t, err, backend.saveErr)

	st := s.Status()
	assert.Equal(t, "Failed to save flow", st.Error)
	assert.True(t, st.IsDirty)
	assert.False(t, st.IsLoading)
	assert.Error(t, s.Err())

	// A later success clears the error
	backend.saveErr = nil
	require.NoError(t, s.SaveFlow(context.Background()))
	assert.Empty(t, s.Status().Error)
	assert.NoError(t, s.Err())
}

func TestSaveFlowWithoutBackend(t *testing.T) {
	s := newTestStore(t, Options{FlowID: "flow-1"})
	err := s.SaveFlow(context.Background())
	assert.ErrorIs(t, err, ErrNoBackend)
	assert.Equal(t, "Failed to save flow", s.Status().Error)
}

func TestSaveFlowKeepsDirtyWhenGraphChangesDuringSave(t *testing.T) {
	backend := newMemoryBackend()
	backend.block = make(chan struct{})
	backend.entered = make(chan struct{}, 1)
	s := newTestStore(t, Options{Backend: backend, FlowID: "flow-1"})
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.SaveFlow(context.Background()) }()

	<-backend.entered
	assert.True(t, s.Status().IsLoading)
	// Mutations are not blocked by an in-flight save
	s.AddNode(flow.TypeText, flow.Position{}, nil)
	close(backend.block)

	require.NoError(t, <-done)
	st := s.Status()
	assert.True(t, st.IsDirty, "change made during save must stay unsaved")
	assert.False(t, st.IsLoading)
	assert.Len(t, backend.record("flow-1").Nodes, 1)
}

func TestLoadWaitsForInFlightSave(t *testing.T) {
	backend := newMemoryBackend()
	backend.block = make(chan struct{})
	backend.entered = make(chan struct{}, 1)
	s := newTestStore(t, Options{Backend: backend, FlowID: "flow-1"})
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	saved := make(chan error, 1)
	go func() { saved <- s.SaveFlow(context.Background()) }()
	<-backend.entered

	loaded := make(chan error, 1)
	go func() { loaded <- s.LoadFlow(context.Background(), "flow-1") }()

	select {
	case <-loaded:
		t.Fatal("load finished while save was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(backend.block)
	require.NoError(t, <-saved)
	require.NoError(t, <-loaded)
	assert.Len(t, s.Nodes(), 1)
	assert.False(t, s.Status().IsDirty)
}

func TestLoadFlow(t *testing.T) {
	backend := newMemoryBackend()
	backend.records["stored"] = &flow.Record{
		ID:    "stored",
		Name:  "Stored Flow",
		Nodes: []flow.Node{{ID: "a"}, {ID: "b", Type: flow.TypeEnd}},
		Edges: []flow.Edge{
			{ID: "ab", Source: "a", Target: "b"},
			{ID: "dangling", Source: "a", Target: "nope"},
		},
	}
	s := newTestStore(t, Options{Backend: backend})
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	require.NoError(t, s.LoadFlow(context.Background(), "stored"))

	st := s.State()
	assert.Equal(t, "stored", st.FlowID)
	assert.Equal(t, "Stored Flow", st.FlowName)
	require.Len(t, st.Nodes, 2)
	assert.NotNil(t, st.Nodes[0].Data.Header)
	require.Len(t, st.Edges, 1)
	assert.False(t, st.IsDirty)
	assert.False(t, st.IsLoading)
	assert.False(t, st.CanUndo)
}

func TestLoadFlowFailureKeepsGraph(t *testing.T) {
	backend := newMemoryBackend()
	backend.loadErr = errors.New("connection refused")
	s := newTestStore(t, Options{Backend: backend, FlowID: "current"})
	id := s.AddNode(flow.TypeText, flow.Position{}, nil)

	err := s.LoadFlow(context.Background(), "other")
	require.Error(t, err)
	assert.True(t, ferrors.IsKind(err, ferrors.LoadFailure))

	st := s.State()
	assert.Equal(t, "Failed to load flow", st.Error)
	assert.Equal(t, "current", st.FlowID)
	require.Len(t, st.Nodes, 1)
	assert.Equal(t, id, st.Nodes[0].ID)
	assert.False(t, st.IsLoading)
}

func TestLoadFlowEmptyID(t *testing.T) {
	s := newTestStore(t, Options{Backend: newMemoryBackend()})
	err := s.LoadFlow(context.Background(), "")
	assert.True(t, ferrors.IsKind(err, ferrors.LoadFailure))
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend, FlowID: "rt"})
	a := s.AddNode(flow.TypeConditional, flow.Position{X: 5}, &flow.DataPatch{
		Payload: &flow.ConditionalPayload{Condition: "x > 1"},
	})
	b := s.AddNode(flow.TypeEnd, flow.Position{Y: 5}, nil)
	s.Connect(flow.Connection{Source: a, Target: b})
	s.SetFlowName("Round")
	want := s.ExportFlow()
	require.NoError(t, s.SaveFlow(context.Background()))

	other := newTestStore(t, Options{Backend: backend})
	require.NoError(t, other.LoadFlow(context.Background(), "rt"))
	got := other.ExportFlow()
	assert.Equal(t, want, got)
}

func TestStatusTracksLoadingDuringSave(t *testing.T) {
	backend := newMemoryBackend()
	backend.block = make(chan struct{})
	backend.entered = make(chan struct{}, 1)
	s := newTestStore(t, Options{Backend: backend, FlowID: "f"})

	var (
		mu      sync.Mutex
		loading []bool
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		loading = append(loading, st.IsLoading)
		mu.Unlock()
	})

	done := make(chan error, 1)
	go func() { done <- s.SaveFlow(context.Background()) }()
	<-backend.entered
	close(backend.block)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(loading), 2)
	assert.True(t, loading[0])
	assert.False(t, loading[len(loading)-1])
}
