package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/flow"
	"github.com/dshills/flowedit/pkg/layout"
)

const editHelp = `Commands:
  show                          print nodes and edges
  status                        print dirty/undo state
  add <type> [x y]              add a node from the palette
  label <node> <text>           relabel a node
  move <node> <x> <y>           move a node
  dup <node>                    duplicate a node
  rm <node>                     remove a node and its edges
  connect <source> <target>     connect two nodes
  disconnect <edge>             remove an edge
  select <node> | select-edge <edge> | deselect
  undo | redo
  layout [TB|LR]
  clear
  rename <name>
  save
  quit                          save pending changes and exit`

// newEditCommand creates the edit command
func newEditCommand(a *app) *cobra.Command {
	var noAutosave bool

	cmd := &cobra.Command{
		Use:   "edit <flow-id>",
		Short: "Edit a flow interactively",
		Long: `Open a flow in a line-oriented editing session.

Every line is one command (type 'help' for the list). Unlike the one-shot
commands, a session keeps its undo history, and changes are saved
automatically after editor.autosave.delay of inactivity.

Examples:
  flowedit edit summarizer
  printf 'add text\nundo\nquit\n' | flowedit edit summarizer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.viewFlow(cmd, args[0], func(store *editor.Store) error {
				autosave := a.cfg.Editor.Autosave.Enabled && !noAutosave
				saver := editor.NewAutosaver(store, autosave, a.cfg.Editor.Autosave.Delay)

				s := &editSession{app: a, store: store, out: cmd.OutOrStdout()}
				runErr := s.run(cmd.Context(), cmd.InOrStdin())

				saver.Close()
				if store.Status().IsDirty {
					if err := store.SaveFlow(cmd.Context()); err != nil {
						return fmt.Errorf("failed to save flow %s: %w", args[0], err)
					}
				}
				return runErr
			})
		},
	}

	cmd.Flags().BoolVar(&noAutosave, "no-autosave", false, "Only save on 'save' and 'quit'")

	return cmd
}

type editSession struct {
	app   *app
	store *editor.Store
	out   io.Writer
}

func (s *editSession) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// run executes commands from r until quit or EOF. Command errors are
// printed and the session continues.
func (s *editSession) run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := s.exec(ctx, scanner.Text())
		if err != nil {
			s.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

func (s *editSession) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s), see 'help'", name, n)
		}
		return nil
	}

	switch name {
	case "help", "?":
		s.printf("%s\n", editHelp)

	case "quit", "exit", "q":
		return true, nil

	case "show":
		st := s.store.State()
		for _, n := range st.Nodes {
			marker := " "
			if n.ID == st.SelectedNodeID {
				marker = "*"
			}
			s.printf("%s %s\t%s\t%s\t(%g, %g)\n", marker, n.ID, n.Kind(), s.app.label(n), n.Position.X, n.Position.Y)
		}
		for _, e := range st.Edges {
			marker := " "
			if e.ID == st.SelectedEdgeID {
				marker = "*"
			}
			s.printf("%s %s\t%s -> %s\n", marker, e.ID, e.Source, e.Target)
		}

	case "status":
		st := s.store.State()
		s.printf("flow=%s name=%q nodes=%d edges=%d dirty=%t undo=%t redo=%t\n",
			st.FlowID, st.FlowName, len(st.Nodes), len(st.Edges), st.IsDirty, st.CanUndo, st.CanRedo)
		if st.Error != "" {
			s.printf("last error: %s\n", st.Error)
		}

	case "add":
		if err := need(1); err != nil {
			return false, err
		}
		t, err := parseNodeType(args[0])
		if err != nil {
			return false, err
		}
		var pos flow.Position
		if len(args) >= 3 {
			if pos, err = parsePosition(args[1], args[2]); err != nil {
				return false, err
			}
		}
		id, _ := s.store.Drop(string(t), pos, s.app.cfg.Editor.SnapToGrid)
		s.printf("added %s\n", id)

	case "label":
		if err := need(2); err != nil {
			return false, err
		}
		text := strings.Join(args[1:], " ")
		if !s.store.UpdateNode(args[0], flow.DataPatch{Label: flow.Ptr(text)}) {
			return false, fmt.Errorf("node not found: %s", args[0])
		}

	case "move":
		if err := need(3); err != nil {
			return false, err
		}
		if _, ok := s.store.Node(args[0]); !ok {
			return false, fmt.Errorf("node not found: %s", args[0])
		}
		pos, err := parsePosition(args[1], args[2])
		if err != nil {
			return false, err
		}
		s.store.ApplyNodeChanges([]editor.NodeChange{{Type: editor.ChangePosition, ID: args[0], Position: &pos}})

	case "dup":
		if err := need(1); err != nil {
			return false, err
		}
		id, ok := s.store.DuplicateNode(args[0])
		if !ok {
			return false, fmt.Errorf("node not found: %s", args[0])
		}
		s.printf("added %s\n", id)

	case "rm":
		if err := need(1); err != nil {
			return false, err
		}
		if !s.store.RemoveNode(args[0]) {
			return false, fmt.Errorf("node not found: %s", args[0])
		}

	case "connect":
		if err := need(2); err != nil {
			return false, err
		}
		id, ok := s.store.Connect(flow.Connection{Source: args[0], Target: args[1]})
		if !ok {
			return false, fmt.Errorf("cannot connect %s to %s", args[0], args[1])
		}
		s.printf("added %s\n", id)

	case "disconnect":
		if err := need(1); err != nil {
			return false, err
		}
		if !s.store.RemoveEdge(args[0]) {
			return false, fmt.Errorf("edge not found: %s", args[0])
		}

	case "select":
		if err := need(1); err != nil {
			return false, err
		}
		if !s.store.SelectNode(args[0]) {
			return false, fmt.Errorf("node not found: %s", args[0])
		}

	case "select-edge":
		if err := need(1); err != nil {
			return false, err
		}
		if !s.store.SelectEdge(args[0]) {
			return false, fmt.Errorf("edge not found: %s", args[0])
		}

	case "deselect":
		s.store.ClearSelection()

	case "undo":
		if !s.store.Undo() {
			return false, fmt.Errorf("nothing to undo")
		}

	case "redo":
		if !s.store.Redo() {
			return false, fmt.Errorf("nothing to redo")
		}

	case "layout":
		dir := s.app.cfg.Direction()
		if len(args) > 0 {
			parsed, err := layout.ParseDirection(args[0])
			if err != nil {
				return false, err
			}
			dir = parsed
		}
		if err := s.store.ApplyLayout(ctx, dir); err != nil {
			return false, err
		}

	case "clear":
		s.store.ClearGraph()

	case "rename":
		if err := need(1); err != nil {
			return false, err
		}
		s.store.SetFlowName(strings.Join(args, " "))

	case "save":
		if err := s.store.SaveFlow(ctx); err != nil {
			return false, err
		}
		s.printf("saved\n")

	default:
		return false, fmt.Errorf("unknown command %q, see 'help'", name)
	}
	return false, nil
}

func parsePosition(xs, ys string) (flow.Position, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return flow.Position{}, fmt.Errorf("invalid x %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return flow.Position{}, fmt.Errorf("invalid y %q", ys)
	}
	return flow.Position{X: x, Y: y}, nil
}
