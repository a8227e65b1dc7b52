package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/flow"
	"github.com/dshills/flowedit/pkg/storage"
)

const (
	templateBlank    = "blank"
	templateStartEnd = "start-end"
)

// newNewCommand creates the new command
func newNewCommand(a *app) *cobra.Command {
	var (
		id       string
		template string
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a flow",
		Long: `Create and save a new flow.

Templates:
  blank      no nodes (default)
  start-end  a start node connected to an end node

Examples:
  flowedit new "Support triage"
  flowedit new "Summarizer" --template start-end --id summarizer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if template != templateBlank && template != templateStartEnd {
				return fmt.Errorf("unknown template %q (use %s or %s)", template, templateBlank, templateStartEnd)
			}
			if id == "" {
				id = flow.NewFlowID()
			}
			if err := storage.ValidateID(id); err != nil {
				return err
			}

			repo, err := a.openRepository(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			if _, err := repo.Load(cmd.Context(), id); err == nil {
				return fmt.Errorf("flow %s already exists", id)
			} else if !errors.Is(err, storage.ErrFlowNotFound) {
				return fmt.Errorf("failed to check flow %s: %w", id, err)
			}

			store := a.newStore(repo, id, args[0])
			if template == templateStartEnd {
				start, _ := store.Drop(string(flow.TypeStart), flow.Position{}, a.cfg.Editor.SnapToGrid)
				end, _ := store.Drop(string(flow.TypeEnd), flow.Position{Y: 200}, a.cfg.Editor.SnapToGrid)
				store.Connect(flow.Connection{Source: start, Target: end})
			}
			store.SetDirty(true)

			if err := store.SaveFlow(cmd.Context()); err != nil {
				return fmt.Errorf("failed to save flow: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created flow %q\n", store.Status().FlowName)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Flow ID (default: generated)")
	cmd.Flags().StringVarP(&template, "template", "t", templateBlank, "Starting template: blank or start-end")

	return cmd
}

// newListCommand creates the list command
func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			flows, err := repo.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list flows: %w", err)
			}
			if len(flows) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No flows found.")
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nCreate one with: flowedit new <name>")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tNODES\tEDGES\tUPDATED")
			for _, f := range flows {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					f.ID, f.Name, f.NodeCount, f.EdgeCount, f.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

// newShowCommand creates the show command
func newShowCommand(a *app) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "show <flow-id>",
		Short: "Show a flow's nodes and edges",
		Long: `Show a flow's nodes and edges.

--query runs a gjson path against the flow's export document.

Examples:
  flowedit show summarizer
  flowedit show summarizer --query 'nodes.#.id'
  flowedit show summarizer --query 'edges.#(source=="start").target'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.viewFlow(cmd, args[0], func(store *editor.Store) error {
				if query != "" {
					res, err := flow.Query(store.ExportFlow(), query)
					if err != nil {
						return err
					}
					if !res.Exists() {
						return fmt.Errorf("query %q matched nothing", query)
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.String())
					return nil
				}
				a.printFlow(cmd, store)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "gjson path to extract from the export document")

	return cmd
}

func (a *app) printFlow(cmd *cobra.Command, store *editor.Store) {
	st := store.State()
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Flow: %s\n", st.FlowName)
	_, _ = fmt.Fprintf(out, "ID:   %s\n", st.FlowID)

	_, _ = fmt.Fprintf(out, "\nNodes (%d):\n", len(st.Nodes))
	if len(st.Nodes) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "  ID\tTYPE\tLABEL\tPOSITION")
		for _, n := range st.Nodes {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t(%g, %g)\n", n.ID, n.Kind(), a.label(n), n.Position.X, n.Position.Y)
		}
		_ = w.Flush()
	}

	_, _ = fmt.Fprintf(out, "\nEdges (%d):\n", len(st.Edges))
	if len(st.Edges) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "  ID\tSOURCE\tTARGET")
		for _, e := range st.Edges {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", e.ID, e.Source, e.Target)
		}
		_ = w.Flush()
	}
}

// newDeleteCommand creates the delete command
func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <flow-id>",
		Short: "Delete a stored flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			if err := repo.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete flow: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted flow %s\n", args[0])
			return nil
		},
	}
}

// newRenameCommand creates the rename command
func newRenameCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <flow-id> <name>",
		Short: "Rename a flow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFlow(cmd, args[0], func(store *editor.Store) error {
				store.SetFlowName(args[1])
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Renamed flow %s to %q\n", args[0], args[1])
				return nil
			})
		},
	}
}
