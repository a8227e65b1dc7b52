package flow

import (
	"errors"
	"time"
)

// Record is a persisted flow as exchanged with a storage backend
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Nodes     []Node    `json:"nodes" yaml:"nodes"`
	Edges     []Edge    `json:"edges" yaml:"edges"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Validate checks that the record can be stored
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}
	if r.ID == "" {
		return errors.New("record must have an ID")
	}
	return nil
}

// Clone returns a deep copy of r
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		ID:        r.ID,
		Name:      r.Name,
		Nodes:     CloneNodes(r.Nodes),
		Edges:     CloneEdges(r.Edges),
		UpdatedAt: r.UpdatedAt,
	}
}

// Export returns the export document for r
func (r *Record) Export() Export {
	return Export{
		Nodes:    CloneNodes(r.Nodes),
		Edges:    CloneEdges(r.Edges),
		FlowName: r.Name,
	}
}
