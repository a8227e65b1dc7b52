package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/config"
	"github.com/dshills/flowedit/pkg/i18n"
	"github.com/dshills/flowedit/pkg/storage"
)

const (
	// Version is the current version of flowedit
	Version = "0.1.0"
)

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	ConfigDir string
	Debug     bool
}

// app is what every command runs against. PersistentPreRunE fills it in.
type app struct {
	flags       GlobalFlags
	cfg         *config.Config
	logger      *slog.Logger
	dict        *i18n.Dictionary
	credentials storage.CredentialStore
}

// NewRootCommand creates the root cobra command for flowedit
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowedit",
		Short: "flowedit - edit agent flow graphs from the command line",
		Long: `flowedit edits the node/edge graphs of a visual agent builder.

Flows are stored in the configured backend (filesystem, sqlite, memory, redis
or postgres). Every editing command loads a flow, applies one change through
the editor core and saves it back.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVar(&a.flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.flags.ConfigDir, "config-dir", "", "Configuration directory (default: $FLOWEDIT_CONFIG_DIR or ~/.flowedit)")

	cmd.AddCommand(newNewCommand(a))
	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newShowCommand(a))
	cmd.AddCommand(newDeleteCommand(a))
	cmd.AddCommand(newRenameCommand(a))
	cmd.AddCommand(newNodeCommand(a))
	cmd.AddCommand(newEdgeCommand(a))
	cmd.AddCommand(newLayoutCommand(a))
	cmd.AddCommand(newClearCommand(a))
	cmd.AddCommand(newValidateCommand(a))
	cmd.AddCommand(newExportCommand(a))
	cmd.AddCommand(newImportCommand(a))
	cmd.AddCommand(newPaletteCommand(a))
	cmd.AddCommand(newEditCommand(a))
	cmd.AddCommand(newCredentialCommand(a))

	return cmd
}

// init loads the configuration, the logger and the dictionary
func (a *app) init(cmd *cobra.Command) error {
	dir, err := config.ResolveDir(a.flags.ConfigDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.flags.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.logger.Debug("configuration loaded", "dir", dir, "backend", cfg.Storage.Backend)

	dict, err := i18n.Load(cfg.DictionaryPath())
	if err != nil {
		return fmt.Errorf("failed to load dictionary: %w", err)
	}
	a.dict = dict

	if a.credentials == nil {
		a.credentials = storage.NewKeyringCredentialStore(a.logger)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
