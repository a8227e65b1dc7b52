package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/flow"
	"github.com/dshills/flowedit/pkg/layout"
)

// newLayoutCommand creates the layout command
func newLayoutCommand(a *app) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "layout <flow-id>",
		Short: "Arrange the nodes in layers",
		Long: `Reposition every node with the layered layout.

Direction is TB (top to bottom) or LR (left to right); the default comes from
layout.direction in the configuration.

Examples:
  flowedit layout summarizer
  flowedit layout summarizer --direction LR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Direction()
			if direction != "" {
				parsed, err := layout.ParseDirection(direction)
				if err != nil {
					return err
				}
				dir = parsed
			}

			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				if err := store.ApplyLayout(cmd.Context(), dir); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Arranged %d nodes (%s)\n", len(store.Nodes()), dir)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "Layout direction: TB or LR")

	return cmd
}

// newClearCommand creates the clear command
func newClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <flow-id>",
		Short: "Remove every node and edge of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				if !store.ClearGraph() {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Flow is already empty.")
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared flow %s\n", args[0])
				return nil
			})
		},
	}
}

// newValidateCommand creates the validate command
func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <flow-id>",
		Short: "Check a flow's structure",
		Long: `Check a flow for problems an executor would reject.

This checks:
- Node and edge ids are present and unique
- Node types are known and at most one start node exists
- Edges reference existing nodes and are not self loops
- Conditional expressions compile`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.viewFlow(cmd, args[0], func(store *editor.Store) error {
				err := flow.Validate(store.Nodes(), store.Edges())
				if err == nil {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Flow is valid")
					return nil
				}

				var verr *flow.ValidationError
				if errors.As(err, &verr) {
					_, _ = fmt.Fprintf(cmd.OutOrStderr(), "✗ Flow validation failed (%d problems)\n", len(verr.Problems))
					for _, p := range verr.Problems {
						_, _ = fmt.Fprintf(cmd.OutOrStderr(), "  - %s\n", p)
					}
				}
				return err
			})
		},
	}
}

// newPaletteCommand creates the palette command
func newPaletteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "palette",
		Short: "List the node types that can be added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, c := range flow.Palette() {
				_, _ = fmt.Fprintf(w, "%s\n", a.dict.T(c.Key, c.Key))
				for _, e := range c.Entries {
					_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", e.Type, a.dict.T(e.LabelKey, ""), a.dict.T(e.DescriptionKey, ""))
				}
			}
			return w.Flush()
		},
	}
}
