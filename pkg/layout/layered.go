// Package layout positions flow nodes automatically. The default layouter is
// a layered (Sugiyama-style) layout in either vertical or horizontal
// direction.
package layout

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/flowedit/pkg/flow"
)

// Direction is the rank direction of a layout
type Direction string

// Supported directions
const (
	TopBottom Direction = "TB"
	LeftRight Direction = "LR"
)

// ParseDirection accepts TB or LR in any case
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case TopBottom:
		return TopBottom, nil
	case LeftRight:
		return LeftRight, nil
	}
	return "", fmt.Errorf("invalid layout direction %q: want TB or LR", s)
}

// Default layout dimensions
const (
	DefaultNodeWidth  = 200
	DefaultNodeHeight = 100
	DefaultRankSep    = 50
	DefaultNodeSep    = 50
)

// Layered assigns each node a rank from the longest path to it, orders the
// nodes of each rank by the barycenter of their predecessors and spaces
// ranks and nodes evenly. Positions are node top-left corners.
type Layered struct {
	NodeWidth  float64
	NodeHeight float64
	// RankSep is the gap between ranks, NodeSep the gap within a rank
	RankSep float64
	NodeSep float64
}

// NewLayered returns a layouter with the default dimensions
func NewLayered() *Layered {
	return &Layered{
		NodeWidth:  DefaultNodeWidth,
		NodeHeight: DefaultNodeHeight,
		RankSep:    DefaultRankSep,
		NodeSep:    DefaultNodeSep,
	}
}

// Layout returns copies of nodes with new positions. Edges pointing at
// unknown nodes are ignored. Nodes on a cycle are placed after the last rank.
func (l *Layered) Layout(ctx context.Context, nodes []flow.Node, edges []flow.Edge, dir Direction) ([]flow.Node, error) {
	if dir == "" {
		dir = TopBottom
	}
	if dir != TopBottom && dir != LeftRight {
		return nil, fmt.Errorf("invalid layout direction %q", dir)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := flow.CloneNodes(nodes)
	if len(out) == 0 {
		return out, nil
	}

	order := make(map[string]int, len(out))
	for i, n := range out {
		order[n.ID] = i
	}

	adjacency := make(map[string][]string, len(out))
	predecessors := make(map[string][]string, len(out))
	inDegree := make(map[string]int, len(out))
	for _, n := range out {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		if _, ok := order[e.Source]; !ok {
			continue
		}
		if _, ok := order[e.Target]; !ok {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		predecessors[e.Target] = append(predecessors[e.Target], e.Source)
		inDegree[e.Target]++
	}

	layers := assignLayers(out, adjacency, inDegree)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orderLayers(layers, predecessors)
	l.assignPositions(out, order, layers, dir)
	return out, nil
}

// assignLayers runs Kahn's algorithm, placing every node one rank below its
// deepest predecessor
func assignLayers(nodes []flow.Node, adjacency map[string][]string, inDegree map[string]int) [][]string {
	layerOf := make(map[string]int, len(nodes))
	remaining := make(map[string]int, len(inDegree))
	for k, v := range inDegree {
		remaining[k] = v
	}

	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if remaining[n.ID] == 0 {
			queue = append(queue, n.ID)
			layerOf[n.ID] = 0
		}
	}

	maxLayer := 0
	processed := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed[current] = true

		next := layerOf[current] + 1
		for _, neighbor := range adjacency[current] {
			remaining[neighbor]--
			if next > layerOf[neighbor] {
				layerOf[neighbor] = next
			}
			if next > maxLayer {
				maxLayer = next
			}
			if remaining[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	// Whatever Kahn could not reach sits on a cycle
	cyclic := false
	for _, n := range nodes {
		if !processed[n.ID] {
			cyclic = true
			break
		}
	}
	depth := maxLayer + 1
	if cyclic {
		depth++
	}

	layers := make([][]string, depth)
	for _, n := range nodes {
		layer := layerOf[n.ID]
		if !processed[n.ID] {
			layer = depth - 1
		}
		layers[layer] = append(layers[layer], n.ID)
	}

	// Drop ranks left empty by nodes moved to the cycle rank
	compact := layers[:0]
	for _, layer := range layers {
		if len(layer) > 0 {
			compact = append(compact, layer)
		}
	}
	return compact
}

// orderLayers sorts each rank by the mean index of each node's predecessors
// in the rank above. Nodes without predecessors keep their relative order.
func orderLayers(layers [][]string, predecessors map[string][]string) {
	for i := 1; i < len(layers); i++ {
		above := make(map[string]int, len(layers[i-1]))
		for j, id := range layers[i-1] {
			above[id] = j
		}

		weight := make(map[string]float64, len(layers[i]))
		for j, id := range layers[i] {
			sum, count := 0.0, 0
			for _, p := range predecessors[id] {
				if idx, ok := above[p]; ok {
					sum += float64(idx)
					count++
				}
			}
			if count == 0 {
				weight[id] = float64(j)
				continue
			}
			weight[id] = sum / float64(count)
		}

		layer := layers[i]
		sort.SliceStable(layer, func(a, b int) bool {
			return weight[layer[a]] < weight[layer[b]]
		})
	}
}

func (l *Layered) assignPositions(nodes []flow.Node, order map[string]int, layers [][]string, dir Direction) {
	w, h := l.NodeWidth, l.NodeHeight
	if w <= 0 {
		w = DefaultNodeWidth
	}
	if h <= 0 {
		h = DefaultNodeHeight
	}

	// rank is the axis ranks advance along, cross the axis within a rank
	rankSize, crossSize := h, w
	if dir == LeftRight {
		rankSize, crossSize = w, h
	}

	for rank, layer := range layers {
		span := float64(len(layer))*crossSize + float64(len(layer)-1)*l.NodeSep
		start := -span / 2
		main := float64(rank) * (rankSize + l.RankSep)

		for i, id := range layer {
			cross := start + float64(i)*(crossSize+l.NodeSep)
			p := flow.Position{X: cross, Y: main}
			if dir == LeftRight {
				p = flow.Position{X: main, Y: cross}
			}
			nodes[order[id]].Position = p
		}
	}
}
