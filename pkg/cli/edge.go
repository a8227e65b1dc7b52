package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/flow"
)

// newEdgeCommand creates the edge command group
func newEdgeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Connect and disconnect nodes",
	}

	cmd.AddCommand(newEdgeConnectCommand(a))
	cmd.AddCommand(newEdgeRemoveCommand(a))

	return cmd
}

func newEdgeConnectCommand(a *app) *cobra.Command {
	var sourceHandle, targetHandle string

	cmd := &cobra.Command{
		Use:   "connect <flow-id> <source-node> <target-node>",
		Short: "Connect two nodes",
		Long: `Connect two nodes. Self connections, unknown nodes and
connections that already exist are rejected.

Examples:
  flowedit edge connect summarizer node-a node-b
  flowedit edge connect summarizer cond-1 node-b --source-handle true`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flow.Connection{
				Source:       args[1],
				Target:       args[2],
				SourceHandle: sourceHandle,
				TargetHandle: targetHandle,
			}
			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				id, ok := store.Connect(c)
				if !ok {
					return fmt.Errorf("cannot connect %s to %s: self connection, unknown node or duplicate edge", c.Source, c.Target)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Connected %s -> %s (%s)\n", c.Source, c.Target, id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sourceHandle, "source-handle", "", "Source handle id")
	cmd.Flags().StringVar(&targetHandle, "target-handle", "", "Target handle id")

	return cmd
}

func newEdgeRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <flow-id> <edge-id>",
		Aliases: []string{"rm"},
		Short:   "Remove an edge",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				if !store.RemoveEdge(args[1]) {
					return fmt.Errorf("edge not found: %s", args[1])
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed edge %s\n", args[1])
				return nil
			})
		},
	}
}
