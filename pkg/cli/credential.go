package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/flowedit/pkg/storage"
)

const maxCredentialSize = 1 << 20 // 1MB limit for all credential inputs

// isOnlyWhitespace checks if a byte slice contains only Unicode whitespace characters
// without allocating strings. Returns true if empty or whitespace-only.
func isOnlyWhitespace(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 is treated as non-whitespace
			return false
		}
		if !unicode.IsSpace(r) {
			return false
		}
		i += size
	}
	return true
}

// newCredentialCommand creates the credential management command
func newCredentialCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage storage credentials",
		Long: `Manage storage backend passwords in the system keyring.

Credentials are stored in your system's native credential store (Keychain on macOS,
Credential Manager on Windows, Secret Service on Linux) and never in plain text files.
Reference one from config.yaml with storage.password_credential.`,
	}

	cmd.AddCommand(newCredentialSetCommand(a))
	cmd.AddCommand(newCredentialGetCommand(a))
	cmd.AddCommand(newCredentialDeleteCommand(a))
	cmd.AddCommand(newCredentialListCommand(a))

	return cmd
}

// newCredentialSetCommand creates the credential set subcommand
func newCredentialSetCommand(a *app) *cobra.Command {
	var (
		value    string
		useStdin bool
	)

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential",
		Long: `Store a credential under a name.

Examples:
  # Prompt for the value (recommended for local use)
  flowedit credential set redis-password

  # Read from stdin (recommended for automation)
  printf '%s' "$PGPASSWORD" | flowedit credential set postgres --stdin

Note:
  - All input methods have a 1MB maximum credential size limit
  - --stdin reads until EOF; only trailing CR/LF characters are removed
  - Whitespace-only credentials are rejected`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var credValue string
			switch {
			case useStdin:
				limitedReader := io.LimitReader(cmd.InOrStdin(), maxCredentialSize+1)
				inputBytes, err := io.ReadAll(limitedReader)

				// Ensure buffer is zeroed on all exit paths
				defer func() {
					for i := range inputBytes {
						inputBytes[i] = 0
					}
				}()

				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				if len(inputBytes) > maxCredentialSize {
					return fmt.Errorf("credential value exceeds maximum size of %d bytes", maxCredentialSize)
				}

				trimmed := bytes.TrimRight(inputBytes, "\r\n")
				if len(trimmed) == 0 {
					return fmt.Errorf("credential value cannot be empty")
				}
				if isOnlyWhitespace(trimmed) {
					return fmt.Errorf("credential cannot contain only whitespace characters")
				}
				credValue = string(trimmed)

			case value != "":
				_, _ = fmt.Fprintln(cmd.OutOrStderr(), "Warning: Using --value flag exposes credential in shell history.")

				if len(value) > maxCredentialSize {
					return fmt.Errorf("credential value exceeds maximum size of %d bytes", maxCredentialSize)
				}
				if strings.TrimSpace(value) == "" {
					return fmt.Errorf("credential cannot contain only whitespace characters")
				}
				credValue = value

			default:
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("no terminal to prompt on; use --stdin or --value")
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enter value for '%s': ", name)

				// Read password without echo
				passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
				_, _ = fmt.Fprintln(cmd.OutOrStdout())

				defer func() {
					for i := range passwordBytes {
						passwordBytes[i] = 0
					}
				}()

				if err != nil {
					return fmt.Errorf("failed to read credential value: %w", err)
				}
				if len(passwordBytes) > maxCredentialSize {
					return fmt.Errorf("credential value exceeds maximum size of %d bytes", maxCredentialSize)
				}
				if isOnlyWhitespace(passwordBytes) {
					return fmt.Errorf("credential value cannot be empty or whitespace")
				}
				credValue = string(passwordBytes)
			}

			if err := a.credentials.Set(name, credValue); err != nil {
				return fmt.Errorf("failed to store credential: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Credential '%s' stored\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&value, "value", "v", "", "Credential value (optional - will prompt securely if omitted)")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read credential value from stdin")
	cmd.MarkFlagsMutuallyExclusive("stdin", "value")

	return cmd
}

// newCredentialGetCommand creates the credential get subcommand
func newCredentialGetCommand(a *app) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Check a stored credential",
		Long: `Report whether a credential is stored. The value is only printed
with --reveal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.credentials.Get(args[0])
			if errors.Is(err, storage.ErrCredentialNotFound) {
				return fmt.Errorf("credential '%s' is not set", args[0])
			}
			if err != nil {
				return err
			}
			if reveal {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Credential '%s' is set\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the credential value")

	return cmd
}

// newCredentialDeleteCommand creates the credential delete subcommand
func newCredentialDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.credentials.Delete(args[0]); err != nil {
				return fmt.Errorf("failed to delete credential: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Credential '%s' deleted\n", args[0])
			return nil
		},
	}
}

// newCredentialListCommand creates the credential list subcommand
func newCredentialListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credential names",
		Long: `List stored credential names. Values are never shown.
The entry referenced by storage.password_credential is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.credentials.List()
			if err != nil {
				return fmt.Errorf("failed to list credentials: %w", err)
			}
			if len(keys) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No credentials configured.")
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nAdd one with: flowedit credential set <name>")
				return nil
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configured Credentials:")
			for _, k := range keys {
				marker := ""
				if k == a.cfg.Storage.PasswordCredential {
					marker = " (storage)"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  - %s%s\n", k, marker)
			}
			return nil
		},
	}
}
