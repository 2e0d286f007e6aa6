package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var completionInstall bool

// shellCompletion describes how a shell loads ptrack's completion script.
type shellCompletion struct {
	// generate writes the completion script.
	generate func(w io.Writer) error
	// loadHint is the command that loads the script in the current session.
	loadHint string
	// installDir returns the user-local completion directory, or "" when
	// automatic install is not supported.
	installDir func(home string) string
	fileName   string
	postNote   func(dir string) []string
}

var shells = map[string]shellCompletion{
	"bash": {
		generate:   func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
		loadHint:   `eval "$(ptrack completion bash)"`,
		installDir: func(home string) string { return filepath.Join(home, ".local", "share", "bash-completion", "completions") },
		fileName:   "ptrack",
		postNote: func(dir string) []string {
			return []string{"Restart your shell or run: source " + filepath.Join(dir, "ptrack")}
		},
	},
	"zsh": {
		generate:   func(w io.Writer) error { return rootCmd.GenZshCompletion(w) },
		loadHint:   `eval "$(ptrack completion zsh)"`,
		installDir: func(home string) string { return filepath.Join(home, ".local", "share", "zsh", "site-functions") },
		fileName:   "_ptrack",
		postNote: func(dir string) []string {
			return []string{
				"Ensure this directory is in your fpath. Add to ~/.zshrc if needed:",
				fmt.Sprintf("  fpath=(%s $fpath)", dir),
				"  autoload -Uz compinit && compinit",
			}
		},
	},
	"fish": {
		generate:   func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
		loadHint:   "ptrack completion fish | source",
		installDir: func(home string) string { return filepath.Join(home, ".config", "fish", "completions") },
		fileName:   "ptrack.fish",
		postNote: func(string) []string {
			return []string{"Completions will be available in new fish sessions automatically."}
		},
	},
	"powershell": {
		generate: func(w io.Writer) error { return rootCmd.GenPowerShellCompletionWithDesc(w) },
		loadHint: "ptrack completion powershell | Out-String | Invoke-Expression",
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for ptrack",
	Long: `Set up shell tab-completions for ptrack commands, flags, and arguments.

Supported shells: bash, zsh, fish, powershell

Quick install (adds completions to your user-local completion directory):

  ptrack completion bash --install
  ptrack completion zsh --install
  ptrack completion fish --install

Or print the completion script to stdout (for manual setup):

  ptrack completion bash`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into your user-local completion directory")

	// Remove Cobra's default completion command and add ours.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell, ok := shells[args[0]]
	if !ok {
		return fmt.Errorf("unsupported shell %q (supported: %s)", args[0], strings.Join(supportedShells(), ", "))
	}

	if completionInstall {
		return installCompletion(cmd, args[0], shell)
	}

	// Hints go to stderr so they don't interfere with piping the script.
	hints := cmd.ErrOrStderr()
	fmt.Fprintln(hints, "# To load completions in your current session:")
	fmt.Fprintf(hints, "#   %s\n", shell.loadHint)
	if shell.installDir != nil {
		fmt.Fprintln(hints, "#")
		fmt.Fprintln(hints, "# To install permanently:")
		fmt.Fprintf(hints, "#   ptrack completion %s --install\n", args[0])
	}
	fmt.Fprintln(hints, "#")
	return shell.generate(cmd.OutOrStdout())
}

func installCompletion(cmd *cobra.Command, name string, shell shellCompletion) error {
	if shell.installDir == nil {
		return fmt.Errorf("automatic install is not supported for %s; run 'ptrack completion %s' and add the output to your profile", name, name)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("detecting home directory: %w", err)
	}

	dir := shell.installDir(home)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating completion directory: %w", err)
	}
	target := filepath.Join(dir, shell.fileName)
	if err := writeCompletionFile(target, shell.generate); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s completions installed to %s\n", name, target)
	for _, line := range shell.postNote(dir) {
		fmt.Fprintln(out, line)
	}
	return nil
}

// writeCompletionFile creates target, writes the script into it and
// propagates close errors.
func writeCompletionFile(target string, generate func(io.Writer) error) error {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating completion file %s: %w", target, err)
	}

	writeErr := generate(f)
	closeErr := f.Close()

	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing completion file %s: %w", target, closeErr)
	}
	return nil
}

func supportedShells() []string {
	names := make([]string, 0, len(shells))
	for name := range shells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
