package flow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Export is the document written by the export action and read by import
type Export struct {
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
	FlowName string `json:"flowName"`
}

// exportTimeLayout matches the browser's Date.toISOString
const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

//go:embed export.schema.json
var exportSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadExportSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(exportSchema))
	})
	return compiledSchema, schemaErr
}

// EncodeExport writes exp as JSON indented with two spaces
func EncodeExport(w io.Writer, exp Export) error {
	if exp.Nodes == nil {
		exp.Nodes = []Node{}
	}
	if exp.Edges == nil {
		exp.Edges = []Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("failed to encode flow export: %w", err)
	}
	return nil
}

// ExportFileName names a downloaded export: <flowName or "flow">-<ISO8601>.json
// Path separators in the flow name are replaced so the result is always a
// single path element.
func ExportFileName(flowName string, at time.Time) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '-'
		}
		return r
	}, strings.TrimSpace(flowName))
	if name == "" || name == "." || name == ".." {
		name = "flow"
	}
	return fmt.Sprintf("%s-%s.json", name, at.UTC().Format(exportTimeLayout))
}

// DecodeExport parses an import document. The document is checked against
// the export schema first; partially specified nodes are accepted and left
// for normalization. A legacy top-level "name" is used when "flowName" is
// absent, and edges without an id get one derived from their endpoints.
func DecodeExport(data []byte) (*Export, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty import document")
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("import document is not valid JSON")
	}

	schema, err := loadExportSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load export schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("failed to decode import document: %w", err)
	}

	if exp.FlowName == "" {
		if legacy := gjson.GetBytes(data, "name"); legacy.Type == gjson.String {
			exp.FlowName = legacy.String()
		}
	}
	if exp.Nodes == nil {
		exp.Nodes = []Node{}
	}
	if exp.Edges == nil {
		exp.Edges = []Edge{}
	}
	for i := range exp.Edges {
		if exp.Edges[i].ID == "" {
			e := exp.Edges[i]
			exp.Edges[i].ID = Connection{
				Source:       e.Source,
				Target:       e.Target,
				SourceHandle: e.SourceHandle,
				TargetHandle: e.TargetHandle,
			}.EdgeID()
		}
	}
	return &exp, nil
}

// Query runs a gjson path against the JSON form of exp
func Query(exp Export, path string) (gjson.Result, error) {
	var buf bytes.Buffer
	if err := EncodeExport(&buf, exp); err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(buf.Bytes(), path), nil
}
