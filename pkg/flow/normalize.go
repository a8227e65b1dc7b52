package flow

import "fmt"

// Fallback values used when a node arrives without them
const (
	DefaultNodeLabel = "Node"
	NewNodeLabel     = "New Node"
	CopyLabelSuffix  = " (Copy)"
)

// EnsureNodes returns normalized deep copies of nodes. Every node comes out
// with an icon, label, type tag, header and payload for its type. Applying it
// twice yields the same result as applying it once.
func EnsureNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = EnsureNode(nodes[i])
	}
	return out
}

// EnsureNode normalizes a single node, see EnsureNodes
func EnsureNode(node Node) Node {
	n := node.Clone()

	kind := n.Kind()
	if kind == "" {
		kind = TypeText
	}

	if n.Data.Icon == "" {
		n.Data.Icon = IconNoop
	}
	if n.Data.Label == "" {
		n.Data.Label = DefaultNodeLabel
	}
	n.Data.Type = kind
	if n.Type == "" {
		n.Type = kind
	}

	if n.Data.Header == nil {
		n.Data.Header = NewHeader(n.ID, n.Data.Label, kind)
	} else {
		if n.Data.Header.NodeID == "" {
			n.Data.Header.NodeID = n.ID
		}
		if n.Data.Header.Label == "" {
			n.Data.Header.Label = n.Data.Label
		}
		if n.Data.Header.Type == "" {
			n.Data.Header.Type = kind
		}
		if n.Data.Header.Status == "" {
			n.Data.Header.Status = StatusIdle
		}
	}

	if n.Data.Payload == nil {
		n.Data.Payload = NewPayload(kind)
	}
	return n
}

// DataPatch is a partial update of a node's data. Nil fields are left
// untouched. Payload replaces the whole variant and must match the node type.
type DataPatch struct {
	Icon        *IconRef
	Label       *string
	Description *string
	Header      *Header
	IsStartNode *bool
	IsEndNode   *bool
	Status      *NodeStatus
	Payload     Payload
}

// Ptr returns a pointer to v, handy for building patches
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether the patch changes nothing
func (p DataPatch) IsEmpty() bool {
	return p.Icon == nil && p.Label == nil && p.Description == nil && p.Header == nil &&
		p.IsStartNode == nil && p.IsEndNode == nil && p.Status == nil && p.Payload == nil
}

// Apply shallow-merges the patch into a copy of d
func (p DataPatch) Apply(d NodeData) (NodeData, error) {
	out := d.Clone()
	if p.Payload != nil && out.Type != "" && p.Payload.Kind() != out.Type {
		return d, fmt.Errorf("payload kind %s does not match node type %s", p.Payload.Kind(), out.Type)
	}

	if p.Icon != nil {
		out.Icon = *p.Icon
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.IsStartNode != nil {
		out.IsStartNode = *p.IsStartNode
	}
	if p.IsEndNode != nil {
		out.IsEndNode = *p.IsEndNode
	}
	if p.Header != nil {
		out.Header = p.Header.Clone()
	}
	if p.Label != nil {
		out.Label = *p.Label
		// Keep the header title in step unless the caller replaced the header
		if p.Header == nil && out.Header != nil {
			out.Header.Label = *p.Label
		}
	}
	if p.Status != nil && out.Header != nil {
		out.Header.Status = *p.Status
	}
	if p.Payload != nil {
		out.Payload = ClonePayload(p.Payload)
	}
	return out, nil
}
