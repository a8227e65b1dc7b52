package flow

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// ValidationError collects every problem found in a graph
type ValidationError struct {
	Problems []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow validation failed: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the structural invariants of a graph. Editing never calls
// it; it is a check run before a flow is handed to an executor.
func Validate(nodes []Node, edges []Edge) error {
	var problems []string

	nodeIDs := make(map[string]bool, len(nodes))
	startCount := 0
	for _, node := range nodes {
		if node.ID == "" {
			problems = append(problems, "found node with empty node ID")
			continue
		}
		if nodeIDs[node.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node ID found: %s", node.ID))
		}
		nodeIDs[node.ID] = true

		kind := node.Kind()
		if !kind.Valid() {
			problems = append(problems, fmt.Sprintf("node %s has unknown type %q", node.ID, kind))
		}
		if kind == TypeStart || node.Data.IsStartNode {
			startCount++
		}
		if node.Data.Header == nil {
			problems = append(problems, fmt.Sprintf("node %s has no header", node.ID))
		}
		if cond, ok := node.Data.Payload.(*ConditionalPayload); ok {
			if err := ValidateCondition(cond.Condition); err != nil {
				problems = append(problems, fmt.Sprintf("node %s: %v", node.ID, err))
			}
		}
	}
	if startCount > 1 {
		problems = append(problems, fmt.Sprintf("flow must have at most one start node (found %d)", startCount))
	}

	edgeIDs := make(map[string]bool, len(edges))
	for _, edge := range edges {
		if edge.ID == "" {
			problems = append(problems, "found edge with empty edge ID")
		} else if edgeIDs[edge.ID] {
			problems = append(problems, fmt.Sprintf("duplicate edge ID found: %s", edge.ID))
		}
		edgeIDs[edge.ID] = true

		if !nodeIDs[edge.Source] {
			problems = append(problems, fmt.Sprintf("edge %s references missing source node: %s", edge.ID, edge.Source))
		}
		if !nodeIDs[edge.Target] {
			problems = append(problems, fmt.Sprintf("edge %s references missing target node: %s", edge.ID, edge.Target))
		}
		if edge.Source != "" && edge.Source == edge.Target {
			problems = append(problems, fmt.Sprintf("edge %s: self-loop detected (node %s to itself)", edge.ID, edge.Source))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidateCondition compiles a conditional node expression. Variables are
// bound at execution time, so undefined identifiers are allowed here.
// Builtins are disabled so that variables such as count or len are not
// resolved as functions.
func ValidateCondition(condition string) error {
	if strings.TrimSpace(condition) == "" {
		return fmt.Errorf("empty condition")
	}
	if _, err := expr.Compile(condition, expr.AllowUndefinedVariables(), expr.DisableAllBuiltins(), expr.AsBool()); err != nil {
		return fmt.Errorf("invalid condition %q: %w", condition, err)
	}
	return nil
}
