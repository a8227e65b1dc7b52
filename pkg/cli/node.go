package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/flow"
)

// newNodeCommand creates the node command group
func newNodeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Add, change and remove nodes",
	}

	cmd.AddCommand(newNodeAddCommand(a))
	cmd.AddCommand(newNodeUpdateCommand(a))
	cmd.AddCommand(newNodeMoveCommand(a))
	cmd.AddCommand(newNodeDuplicateCommand(a))
	cmd.AddCommand(newNodeRemoveCommand(a))

	return cmd
}

func newNodeAddCommand(a *app) *cobra.Command {
	var (
		x, y        float64
		label       string
		description string
		snap        bool
	)

	cmd := &cobra.Command{
		Use:   "add <flow-id> <type>",
		Short: "Add a node from the palette",
		Long: `Add a node of the given type with its palette defaults.

The type is a node tag (TEXT_NODE) or its short form (text).
Positions snap to a 20px grid when editor.snap_to_grid is set; --snap overrides it.

Examples:
  flowedit node add summarizer model --x 0 --y 150 --label "Summarize"
  flowedit node add summarizer CONDITIONAL_NODE --snap=false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseNodeType(args[1])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("snap") {
				snap = a.cfg.Editor.SnapToGrid
			}

			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				id, ok := store.Drop(string(t), flow.Position{X: x, Y: y}, snap)
				if !ok {
					return fmt.Errorf("cannot add node of type %s", t)
				}

				var patch flow.DataPatch
				if label != "" {
					patch.Label = flow.Ptr(label)
				}
				if description != "" {
					patch.Description = flow.Ptr(description)
				}
				if !patch.IsEmpty() {
					store.UpdateNode(id, patch)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s node %s\n", t, id)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "X position")
	cmd.Flags().Float64Var(&y, "y", 0, "Y position")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Node label (default: palette label)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Node description")
	cmd.Flags().BoolVar(&snap, "snap", false, "Snap the position to the grid (default: editor.snap_to_grid)")

	return cmd
}

func newNodeUpdateCommand(a *app) *cobra.Command {
	var (
		label       string
		description string
		icon        string
		status      string
	)

	cmd := &cobra.Command{
		Use:   "update <flow-id> <node-id>",
		Short: "Change a node's data",
		Long: `Change a node's label, description, icon or header status.
Only the flags given are changed.

Examples:
  flowedit node update summarizer node-1234 --label "Summarize input"
  flowedit node update summarizer node-1234 --status RUNNING`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch flow.DataPatch
			if cmd.Flags().Changed("label") {
				patch.Label = flow.Ptr(label)
			}
			if cmd.Flags().Changed("description") {
				patch.Description = flow.Ptr(description)
			}
			if cmd.Flags().Changed("icon") {
				patch.Icon = flow.Ptr(flow.IconRef(icon))
			}
			if cmd.Flags().Changed("status") {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &st
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update (use --label, --description, --icon or --status)")
			}

			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				if _, ok := store.Node(args[1]); !ok {
					return fmt.Errorf("node not found: %s", args[1])
				}
				if !store.UpdateNode(args[1], patch) {
					return fmt.Errorf("failed to update node %s", args[1])
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated node %s\n", args[1])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "New label")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&icon, "icon", "", "New icon key")
	cmd.Flags().StringVar(&status, "status", "", "Header status: IDLE, RUNNING, SUCCESS or FAILURE")

	return cmd
}

func parseStatus(s string) (flow.NodeStatus, error) {
	st := flow.NodeStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case flow.StatusIdle, flow.StatusRunning, flow.StatusSuccess, flow.StatusFailure:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func newNodeMoveCommand(a *app) *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "move <flow-id> <node-id>",
		Short: "Move a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				if _, ok := store.Node(args[1]); !ok {
					return fmt.Errorf("node not found: %s", args[1])
				}
				pos := flow.Position{X: x, Y: y}
				store.ApplyNodeChanges([]editor.NodeChange{
					{Type: editor.ChangePosition, ID: args[1], Position: &pos},
				})
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Moved node %s to (%g, %g)\n", args[1], x, y)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "X position")
	cmd.Flags().Float64Var(&y, "y", 0, "Y position")

	return cmd
}

func newNodeDuplicateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <flow-id> <node-id>",
		Short: "Copy a node without its edges",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				id, ok := store.DuplicateNode(args[1])
				if !ok {
					return fmt.Errorf("node not found: %s", args[1])
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Duplicated node %s as %s\n", args[1], id)
				return nil
			})
		},
	}
}

func newNodeRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <flow-id> <node-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a node and its edges",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				before := len(store.Edges())
				if !store.RemoveNode(args[1]) {
					return fmt.Errorf("node not found: %s", args[1])
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed node %s (%d edges removed)\n", args[1], before-len(store.Edges()))
				return nil
			})
		},
	}
}
