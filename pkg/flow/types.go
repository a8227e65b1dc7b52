// Package flow defines the node and edge model edited by the flow builder,
// its normalization rules and its export/import wire format.
package flow

import (
	"github.com/google/uuid"
)

// NodeType is the tag that selects a node's payload variant
type NodeType string

// Node types offered by the builder palette
const (
	TypeText        NodeType = "TEXT_NODE"
	TypeNumber      NodeType = "NUMBER_NODE"
	TypeStart       NodeType = "START_NODE"
	TypeEnd         NodeType = "END_NODE"
	TypeConditional NodeType = "CONDITIONAL_NODE"
	TypeLoop        NodeType = "LOOP_NODE"
	TypeAPI         NodeType = "API_NODE"
	TypeModel       NodeType = "MODEL_NODE"
	TypeTool        NodeType = "TOOL_NODE"
)

// NodeTypes lists every known node type in palette order
var NodeTypes = []NodeType{
	TypeStart, TypeEnd, TypeText, TypeNumber, TypeConditional,
	TypeLoop, TypeAPI, TypeModel, TypeTool,
}

// Valid reports whether t is a known node type
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the NodeType
func (t NodeType) String() string {
	return string(t)
}

// NodeStatus is the execution status shown in a node header
type NodeStatus string

// Node statuses
const (
	StatusIdle    NodeStatus = "IDLE"
	StatusRunning NodeStatus = "RUNNING"
	StatusSuccess NodeStatus = "SUCCESS"
	StatusFailure NodeStatus = "FAILURE"
)

// IconRef is a symbolic key into the renderer's icon registry.
// State never carries renderers directly so that it stays serializable.
type IconRef string

// IconNoop renders nothing
const IconNoop IconRef = "noop"

// Position is a point on the canvas
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Offset returns p shifted by dx, dy
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Dimensions is the measured size of a rendered node
type Dimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Viewport is the canvas pan offset and zoom
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// DefaultViewport is the viewport of a fresh editor
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Zoom: 1}
}

// NodeIDPrefix prefixes every generated node id
const NodeIDPrefix = "node-"

// NewNodeID generates a new node id. UUIDv4 makes collisions impossible for
// practical purposes, independent of the clock.
func NewNodeID() string {
	return NodeIDPrefix + uuid.NewString()
}

// NewFlowID generates a new flow id
func NewFlowID() string {
	return uuid.NewString()
}
