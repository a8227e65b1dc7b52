package editor

import (
	"math"
	"strings"

	"github.com/dshills/flowedit/pkg/flow"
)

// DropPayloadKey is the drag data key the palette writes the node type under
const DropPayloadKey = "application/reactflow"

// GridSize is the snap grid of the canvas
const GridSize = 20

// SnapToGrid rounds p to the nearest grid point
func SnapToGrid(p flow.Position) flow.Position {
	return flow.Position{
		X: math.Round(p.X/GridSize) * GridSize,
		Y: math.Round(p.Y/GridSize) * GridSize,
	}
}

// Drop creates a node from a palette drag. payload is the node type tag
// read from DropPayloadKey and pos the drop point in flow coordinates.
// Empty or unknown tags are ignored.
func (s *Store) Drop(payload string, pos flow.Position, snap bool) (string, bool) {
	t := flow.NodeType(strings.TrimSpace(payload))
	if !t.Valid() {
		s.logger.Debug("ignoring drop", "payload", payload)
		return "", false
	}
	if snap {
		pos = SnapToGrid(pos)
	}
	patch := flow.DefaultData(t)
	return s.AddNode(t, pos, &patch), true
}
