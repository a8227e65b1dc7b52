package flow

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// CopyAction describes the header's copy button
type CopyAction struct {
	IsCopy   bool    `json:"isCopy"`
	CopyIcon IconRef `json:"copyIcon,omitempty"`
}

// DeleteAction describes the header's delete button
type DeleteAction struct {
	IsDelete   bool    `json:"isDelete"`
	DeleteIcon IconRef `json:"deleteIcon,omitempty"`
}

// ExecuteAction describes the header's execute button
type ExecuteAction struct {
	IsExecute   bool    `json:"isExecute"`
	ExecuteIcon IconRef `json:"executeIcon,omitempty"`
}

// Header is the descriptor rendered at the top of every node
type Header struct {
	NodeID  string         `json:"nodeId,omitempty"`
	Label   string         `json:"label"`
	Copy    CopyAction     `json:"copy"`
	Delete  DeleteAction   `json:"delete"`
	Execute *ExecuteAction `json:"execute,omitempty"`
	Info    IconRef        `json:"info,omitempty"`
	Type    NodeType       `json:"type,omitempty"`
	Status  NodeStatus     `json:"status,omitempty"`
}

// NewHeader builds the default header for a node: copy and delete enabled,
// status idle.
func NewHeader(nodeID, label string, t NodeType) *Header {
	return &Header{
		NodeID: nodeID,
		Label:  label,
		Copy:   CopyAction{IsCopy: true},
		Delete: DeleteAction{IsDelete: true},
		Type:   t,
		Status: StatusIdle,
	}
}

// Clone returns a deep copy of h
func (h *Header) Clone() *Header {
	if h == nil {
		return nil
	}
	c := *h
	if h.Execute != nil {
		e := *h.Execute
		c.Execute = &e
	}
	return &c
}

// NodeData is the payload rendered by a node. Common fields live here, the
// type-specific fields live in Payload and are flattened into the same JSON
// object on the wire.
type NodeData struct {
	Icon        IconRef
	Label       string
	Description string
	Type        NodeType
	Header      *Header
	IsStartNode bool
	IsEndNode   bool
	Payload     Payload
}

type nodeDataJSON struct {
	Icon        IconRef  `json:"icon,omitempty"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Type        NodeType `json:"type,omitempty"`
	Header      *Header  `json:"header"`
	IsStartNode bool     `json:"isStartNode"`
	IsEndNode   bool     `json:"isEndNode"`
}

// MarshalJSON flattens the payload fields next to the common fields
func (d NodeData) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(nodeDataJSON{
		Icon:        d.Icon,
		Label:       d.Label,
		Description: d.Description,
		Type:        d.Type,
		Header:      d.Header,
		IsStartNode: d.IsStartNode,
		IsEndNode:   d.IsEndNode,
	})
	if err != nil {
		return nil, err
	}
	if d.Payload == nil {
		return base, nil
	}

	extra, err := json.Marshal(d.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", d.Payload.Kind(), err)
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(extra, &merged); err != nil {
		return nil, err
	}
	var common map[string]json.RawMessage
	if err := json.Unmarshal(base, &common); err != nil {
		return nil, err
	}
	// Common fields win over payload fields of the same name
	for k, v := range common {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Clone returns a deep copy of d
func (d NodeData) Clone() NodeData {
	c := d
	c.Header = d.Header.Clone()
	c.Payload = ClonePayload(d.Payload)
	return c
}

// Node is a vertex of the flow graph
type Node struct {
	ID       string      `json:"id"`
	Type     NodeType    `json:"type,omitempty"`
	Position Position    `json:"position"`
	Data     NodeData    `json:"data"`
	Selected bool        `json:"selected,omitempty"`
	Dragging bool        `json:"dragging,omitempty"`
	Measured *Dimensions `json:"measured,omitempty"`
}

// UnmarshalJSON decodes a node and picks the payload variant from the data
// type tag, falling back to the node type.
func (n *Node) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID       string          `json:"id"`
		Type     NodeType        `json:"type"`
		Position Position        `json:"position"`
		Data     json.RawMessage `json:"data"`
		Selected bool            `json:"selected"`
		Dragging bool            `json:"dragging"`
		Measured *Dimensions     `json:"measured"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*n = Node{
		ID:       aux.ID,
		Type:     aux.Type,
		Position: aux.Position,
		Selected: aux.Selected,
		Dragging: aux.Dragging,
		Measured: aux.Measured,
	}

	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}

	var base nodeDataJSON
	if err := json.Unmarshal(aux.Data, &base); err != nil {
		return fmt.Errorf("node %s: decode data: %w", aux.ID, err)
	}
	n.Data = NodeData{
		Icon:        base.Icon,
		Label:       base.Label,
		Description: base.Description,
		Type:        base.Type,
		Header:      base.Header,
		IsStartNode: base.IsStartNode,
		IsEndNode:   base.IsEndNode,
	}

	kind := base.Type
	if kind == "" {
		kind = aux.Type
	}
	payload, err := decodePayload(kind, aux.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", aux.ID, err)
	}
	n.Data.Payload = payload
	return nil
}

// MarshalYAML stores a node through its JSON form so both encodings share
// one field layout.
func (n Node) MarshalYAML() (interface{}, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// UnmarshalYAML is the inverse of MarshalYAML
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var generic map[string]interface{}
	if err := value.Decode(&generic); err != nil {
		return err
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("node: re-encode yaml: %w", err)
	}
	return n.UnmarshalJSON(raw)
}

// Clone returns a deep copy of n
func (n Node) Clone() Node {
	c := n
	c.Data = n.Data.Clone()
	if n.Measured != nil {
		m := *n.Measured
		c.Measured = &m
	}
	return c
}

// Kind returns the effective node type: the data tag, else the node tag
func (n Node) Kind() NodeType {
	if n.Data.Type != "" {
		return n.Data.Type
	}
	return n.Type
}

// CloneNodes deep-copies a node list. A nil input yields an empty list.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}

// FindNode returns the index of the node with id, or -1
func FindNode(nodes []Node, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}
