// Command validate-export checks a flow export document without touching
// any storage backend.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dshills/flowedit/pkg/flow"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <export-file>\n", os.Args[0])
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	exp, err := flow.DecodeExport(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	nodes := flow.EnsureNodes(exp.Nodes)
	edges, dropped := flow.PruneEdges(nodes, exp.Edges)

	if err := flow.Validate(nodes, edges); err != nil {
		var verr *flow.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "✗ %d problems:\n", len(verr.Problems))
			for _, p := range verr.Problems {
				fmt.Fprintf(os.Stderr, "  - %s\n", p)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	name := exp.FlowName
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("✓ Flow '%s' is valid\n", name)
	fmt.Printf("  - Nodes: %d\n", len(nodes))
	fmt.Printf("  - Edges: %d\n", len(edges))
	if dropped > 0 {
		fmt.Printf("  - Dangling edges dropped on import: %d\n", dropped)
	}
}
