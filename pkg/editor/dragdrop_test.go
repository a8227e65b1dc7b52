package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowedit/pkg/flow"
	"github.com/dshills/flowedit/pkg/layout"
)

func TestSnapToGrid(t *testing.T) {
	tests := []struct {
		in, want flow.Position
	}{
		{flow.Position{X: 0, Y: 0}, flow.Position{X: 0, Y: 0}},
		{flow.Position{X: 9, Y: 11}, flow.Position{X: 0, Y: 20}},
		{flow.Position{X: 31, Y: -29}, flow.Position{X: 40, Y: -20}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SnapToGrid(tt.in))
	}
}

func TestDrop(t *testing.T) {
	s := newTestStore(t, Options{})

	id, ok := s.Drop("TEXT_NODE", flow.Position{X: 33, Y: 47}, true)
	require.True(t, ok)

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, flow.Position{X: 40, Y: 40}, n.Position)
	assert.Equal(t, flow.TypeText, n.Data.Type)
	assert.Equal(t, id, n.Data.Header.NodeID)

	text, ok := n.Data.Payload.(*flow.TextPayload)
	require.True(t, ok)
	assert.Equal(t, "Enter your text here...", text.Placeholder)
	assert.Equal(t, 1000, text.MaxLength)
	require.NotNil(t, n.Data.Header.Execute)
	assert.True(t, n.Data.Header.Execute.IsExecute)
}

func TestDropStartNode(t *testing.T) {
	s := newTestStore(t, Options{})
	id, ok := s.Drop("START_NODE", flow.Position{X: 5, Y: 5}, false)
	require.True(t, ok)

	n, _ := s.Node(id)
	assert.Equal(t, flow.Position{X: 5, Y: 5}, n.Position)
	assert.True(t, n.Data.IsStartNode)
	assert.Nil(t, n.Data.Header.Execute)
}

func TestDropIgnoresUnknownPayload(t *testing.T) {
	s := newTestStore(t, Options{})
	for _, payload := range []string{"", "   ", "IMAGE_NODE"} {
		_, ok := s.Drop(payload, flow.Position{}, true)
		assert.False(t, ok, payload)
	}
	assert.Empty(t, s.Nodes())
	assert.False(t, s.CanUndo())
}

type stubLayouter struct {
	err error
	dir layout.Direction
}

func (l *stubLayouter) Layout(ctx context.Context, nodes []flow.Node, edges []flow.Edge, dir layout.Direction) ([]flow.Node, error) {
	l.dir = dir
	if l.err != nil {
		return nil, l.err
	}
	out := flow.CloneNodes(nodes)
	for i := range out {
		out[i].Position = flow.Position{X: float64(i) * 10, Y: 1}
		out[i].Data.Label = "should not leak"
	}
	return out, nil
}

func TestApplyLayout(t *testing.T) {
	l := &stubLayouter{}
	s := newTestStore(t, Options{Layouter: l})
	a := s.AddNode(flow.TypeText, flow.Position{X: 500}, nil)
	b := s.AddNode(flow.TypeText, flow.Position{X: 900}, nil)
	s.SetDirty(false)

	require.NoError(t, s.ApplyLayout(context.Background(), layout.LeftRight))
	assert.Equal(t, layout.LeftRight, l.dir)

	na, _ := s.Node(a)
	nb, _ := s.Node(b)
	assert.Equal(t, flow.Position{X: 0, Y: 1}, na.Position)
	assert.Equal(t, flow.Position{X: 10, Y: 1}, nb.Position)
	assert.Equal(t, flow.NewNodeLabel, na.Data.Label)
	assert.True(t, s.Status().IsDirty)

	require.True(t, s.Undo())
	na, _ = s.Node(a)
	assert.Equal(t, flow.Position{X: 500}, na.Position)
}

func TestApplyLayoutErrors(t *testing.T) {
	s := newTestStore(t, Options{})
	assert.ErrorIs(t, s.ApplyLayout(context.Background(), layout.TopBottom), ErrNoLayouter)

	boom := errors.New("boom")
	s = newTestStore(t, Options{Layouter: &stubLayouter{err: boom}})
	s.AddNode(flow.TypeText, flow.Position{}, nil)
	past, _ := s.history.Len()

	assert.ErrorIs(t, s.ApplyLayout(context.Background(), layout.TopBottom), boom)
	after, _ := s.history.Len()
	assert.Equal(t, past, after)
}

func TestApplyLayoutWithLayered(t *testing.T) {
	s := newTestStore(t, Options{Layouter: layout.NewLayered()})
	a := s.AddNode(flow.TypeStart, flow.Position{X: 300, Y: 300}, nil)
	b := s.AddNode(flow.TypeEnd, flow.Position{X: 0, Y: 0}, nil)
	s.Connect(flow.Connection{Source: a, Target: b})

	require.NoError(t, s.ApplyLayout(context.Background(), layout.TopBottom))
	na, _ := s.Node(a)
	nb, _ := s.Node(b)
	assert.Less(t, na.Position.Y, nb.Position.Y)
}
