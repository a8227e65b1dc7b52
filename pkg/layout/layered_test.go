package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowedit/pkg/flow"
)

func node(id string) flow.Node {
	return flow.Node{ID: id, Type: flow.TypeText}
}

func edge(src, dst string) flow.Edge {
	return flow.Edge{ID: src + "->" + dst, Source: src, Target: dst}
}

func positions(nodes []flow.Node) map[string]flow.Position {
	out := make(map[string]flow.Position, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n.Position
	}
	return out
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"TB", TopBottom, false},
		{"lr", LeftRight, false},
		{" tb ", TopBottom, false},
		{"RL", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayeredLinearTopBottom(t *testing.T) {
	l := NewLayered()
	nodes := []flow.Node{node("a"), node("b"), node("c")}
	edges := []flow.Edge{edge("a", "b"), edge("b", "c")}

	out, err := l.Layout(context.Background(), nodes, edges, TopBottom)
	require.NoError(t, err)
	require.Len(t, out, 3)

	pos := positions(out)
	assert.Equal(t, 0.0, pos["a"].Y)
	assert.Equal(t, 150.0, pos["b"].Y)
	assert.Equal(t, 300.0, pos["c"].Y)
	// A single node per rank is centered on the axis
	assert.Equal(t, -100.0, pos["a"].X)
	assert.Equal(t, pos["a"].X, pos["c"].X)
}

func TestLayeredLeftRight(t *testing.T) {
	l := NewLayered()
	nodes := []flow.Node{node("a"), node("b")}
	edges := []flow.Edge{edge("a", "b")}

	out, err := l.Layout(context.Background(), nodes, edges, LeftRight)
	require.NoError(t, err)

	pos := positions(out)
	assert.Equal(t, 0.0, pos["a"].X)
	assert.Equal(t, 250.0, pos["b"].X)
	assert.Equal(t, -50.0, pos["a"].Y)
}

func TestLayeredBranching(t *testing.T) {
	l := NewLayered()
	nodes := []flow.Node{node("start"), node("cond"), node("left"), node("right"), node("end")}
	edges := []flow.Edge{
		edge("start", "cond"),
		edge("cond", "left"),
		edge("cond", "right"),
		edge("left", "end"),
		edge("right", "end"),
	}

	out, err := l.Layout(context.Background(), nodes, edges, TopBottom)
	require.NoError(t, err)
	pos := positions(out)

	assert.Less(t, pos["start"].Y, pos["cond"].Y)
	assert.Less(t, pos["cond"].Y, pos["left"].Y)
	assert.Equal(t, pos["left"].Y, pos["right"].Y)
	assert.Less(t, pos["right"].Y, pos["end"].Y)
	assert.Less(t, pos["left"].X, pos["right"].X)
	assert.Equal(t, 250.0, pos["right"].X-pos["left"].X)
}

func TestLayeredLongestPath(t *testing.T) {
	l := NewLayered()
	nodes := []flow.Node{node("a"), node("b"), node("c")}
	// a->c directly and through b: c must sit below b
	edges := []flow.Edge{edge("a", "c"), edge("a", "b"), edge("b", "c")}

	out, err := l.Layout(context.Background(), nodes, edges, TopBottom)
	require.NoError(t, err)
	pos := positions(out)
	assert.Greater(t, pos["c"].Y, pos["b"].Y)
}

func TestLayeredCycle(t *testing.T) {
	l := NewLayered()
	nodes := []flow.Node{node("root"), node("x"), node("y")}
	edges := []flow.Edge{edge("root", "x"), edge("x", "y"), edge("y", "x")}

	out, err := l.Layout(context.Background(), nodes, edges, TopBottom)
	require.NoError(t, err)
	require.Len(t, out, 3)
	pos := positions(out)
	assert.Equal(t, 0.0, pos["root"].Y)
	assert.Greater(t, pos["x"].Y, pos["root"].Y)
	assert.Equal(t, pos["x"].Y, pos["y"].Y)
}

func TestLayeredKeepsDataAndIgnoresDanglingEdges(t *testing.T) {
	l := NewLayered()
	in := node("a")
	in.Data.Label = "Keep me"
	out, err := l.Layout(context.Background(), []flow.Node{in}, []flow.Edge{edge("a", "ghost")}, TopBottom)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Keep me", out[0].Data.Label)
}

func TestLayeredEmptyAndErrors(t *testing.T) {
	l := NewLayered()

	out, err := l.Layout(context.Background(), nil, nil, TopBottom)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = l.Layout(context.Background(), []flow.Node{node("a")}, nil, Direction("XX"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Layout(ctx, []flow.Node{node("a")}, nil, TopBottom)
	assert.ErrorIs(t, err, context.Canceled)
}
