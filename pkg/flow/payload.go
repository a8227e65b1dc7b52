package flow

import (
	"encoding/json"
	"fmt"
)

// Payload is the type-specific part of a node's data. Each node type has
// exactly one payload variant with a closed field set.
type Payload interface {
	// Kind returns the node type this payload belongs to
	Kind() NodeType
	clone() Payload
}

// KeyValue is an ordered header, query or parameter entry
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// TextPayload holds free text
type TextPayload struct {
	Content     string `json:"content"`
	Placeholder string `json:"placeholder,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
}

// Kind returns TypeText
func (p *TextPayload) Kind() NodeType { return TypeText }

func (p *TextPayload) clone() Payload {
	c := *p
	return &c
}

// NumberPayload holds a numeric value with optional bounds
type NumberPayload struct {
	Value float64  `json:"value"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Step  float64  `json:"step,omitempty"`
}

// Kind returns TypeNumber
func (p *NumberPayload) Kind() NodeType { return TypeNumber }

func (p *NumberPayload) clone() Payload {
	c := *p
	if p.Min != nil {
		v := *p.Min
		c.Min = &v
	}
	if p.Max != nil {
		v := *p.Max
		c.Max = &v
	}
	return &c
}

// StartPayload marks the entry of a flow
type StartPayload struct{}

// Kind returns TypeStart
func (p *StartPayload) Kind() NodeType { return TypeStart }

func (p *StartPayload) clone() Payload { return &StartPayload{} }

// EndPayload marks an exit of a flow
type EndPayload struct {
	ReturnValue string `json:"returnValue,omitempty"`
}

// Kind returns TypeEnd
func (p *EndPayload) Kind() NodeType { return TypeEnd }

func (p *EndPayload) clone() Payload {
	c := *p
	return &c
}

// ConditionalPayload branches on an expression
type ConditionalPayload struct {
	Condition string `json:"condition"`
}

// Kind returns TypeConditional
func (p *ConditionalPayload) Kind() NodeType { return TypeConditional }

func (p *ConditionalPayload) clone() Payload {
	c := *p
	return &c
}

// LoopPayload iterates over a collection
type LoopPayload struct {
	Collection    string `json:"collection"`
	ItemVariable  string `json:"itemVariable"`
	MaxIterations int    `json:"maxIterations,omitempty"`
}

// Kind returns TypeLoop
func (p *LoopPayload) Kind() NodeType { return TypeLoop }

func (p *LoopPayload) clone() Payload {
	c := *p
	return &c
}

// APIPayload describes an HTTP call
type APIPayload struct {
	Method  string     `json:"method"`
	URL     string     `json:"url"`
	Headers []KeyValue `json:"headers,omitempty"`
	Query   []KeyValue `json:"queryParams,omitempty"`
	Body    string     `json:"body,omitempty"`
}

// Kind returns TypeAPI
func (p *APIPayload) Kind() NodeType { return TypeAPI }

func (p *APIPayload) clone() Payload {
	c := *p
	c.Headers = cloneKeyValues(p.Headers)
	c.Query = cloneKeyValues(p.Query)
	return &c
}

// ModelPayload configures a model invocation
type ModelPayload struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
}

// Kind returns TypeModel
func (p *ModelPayload) Kind() NodeType { return TypeModel }

func (p *ModelPayload) clone() Payload {
	c := *p
	return &c
}

// ToolPayload invokes a named tool
type ToolPayload struct {
	ToolName   string     `json:"toolName"`
	Parameters []KeyValue `json:"parameters,omitempty"`
}

// Kind returns TypeTool
func (p *ToolPayload) Kind() NodeType { return TypeTool }

func (p *ToolPayload) clone() Payload {
	c := *p
	c.Parameters = cloneKeyValues(p.Parameters)
	return &c
}

func cloneKeyValues(kv []KeyValue) []KeyValue {
	if kv == nil {
		return nil
	}
	out := make([]KeyValue, len(kv))
	copy(out, kv)
	return out
}

// NewPayload returns the zero payload for t, or nil for unknown types
func NewPayload(t NodeType) Payload {
	switch t {
	case TypeText:
		return &TextPayload{}
	case TypeNumber:
		return &NumberPayload{}
	case TypeStart:
		return &StartPayload{}
	case TypeEnd:
		return &EndPayload{}
	case TypeConditional:
		return &ConditionalPayload{}
	case TypeLoop:
		return &LoopPayload{}
	case TypeAPI:
		return &APIPayload{}
	case TypeModel:
		return &ModelPayload{}
	case TypeTool:
		return &ToolPayload{}
	default:
		return nil
	}
}

// ClonePayload deep-copies p
func ClonePayload(p Payload) Payload {
	if p == nil {
		return nil
	}
	return p.clone()
}

// decodePayload reads the variant for t out of a flattened data object
func decodePayload(t NodeType, raw []byte) (Payload, error) {
	p := NewPayload(t)
	if p == nil || len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}
