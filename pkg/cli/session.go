package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/flow"
	"github.com/dshills/flowedit/pkg/storage"
)

// openRepository opens the configured backend, resolving its password from
// the credential store
func (a *app) openRepository(cmd *cobra.Command) (storage.FlowRepository, error) {
	password, err := storage.ResolvePassword(a.credentials, a.cfg.Storage.PasswordCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage password: %w", err)
	}
	repo, err := storage.Open(cmd.Context(), a.cfg.StorageOptions(password, a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", a.cfg.Storage.Backend, err)
	}
	return repo, nil
}

func (a *app) newStore(repo storage.FlowRepository, id, name string) *editor.Store {
	return editor.New(editor.Options{
		FlowID:       id,
		FlowName:     name,
		HistoryLimit: a.cfg.Editor.HistoryLimit,
		Backend:      storage.Backend(repo),
		Layouter:     a.cfg.Layouter(),
		Logger:       a.logger,
	})
}

// viewFlow loads flow id into a store and hands it to fn
func (a *app) viewFlow(cmd *cobra.Command, id string, fn func(*editor.Store) error) error {
	repo, err := a.openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	store := a.newStore(repo, "", "")
	if err := store.LoadFlow(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to load flow %s: %w", id, err)
	}
	return fn(store)
}

// editFlow is viewFlow followed by a save when fn left the flow dirty
func (a *app) editFlow(cmd *cobra.Command, id string, fn func(*editor.Store) error) error {
	return a.viewFlow(cmd, id, func(store *editor.Store) error {
		if err := fn(store); err != nil {
			return err
		}
		if !store.Status().IsDirty {
			return nil
		}
		if err := store.SaveFlow(cmd.Context()); err != nil {
			return fmt.Errorf("failed to save flow %s: %w", id, err)
		}
		return nil
	})
}

// parseNodeType accepts a full tag (TEXT_NODE) or its short form (text)
func parseNodeType(s string) (flow.NodeType, error) {
	tag := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasSuffix(tag, "_NODE") {
		tag += "_NODE"
	}
	t := flow.NodeType(tag)
	if !t.Valid() {
		names := make([]string, len(flow.NodeTypes))
		for i, known := range flow.NodeTypes {
			names[i] = string(known)
		}
		return "", fmt.Errorf("unknown node type %q (known: %s)", s, strings.Join(names, ", "))
	}
	return t, nil
}

// label resolves a node label that may be a translation key, including the
// label of a duplicated node
func (a *app) label(n flow.Node) string {
	l := n.Data.Label
	if a.dict.Has(l) {
		return a.dict.T(l, l)
	}
	if base, ok := strings.CutSuffix(l, flow.CopyLabelSuffix); ok && a.dict.Has(base) {
		return a.dict.T(base, base) + flow.CopyLabelSuffix
	}
	return l
}
