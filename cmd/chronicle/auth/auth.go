// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/chronicle/pkg/cliui"
	"github.com/papercomputeco/chronicle/pkg/credentials"
)

const authLongDesc string = `Store API credentials for generation providers and the vector store.

Credentials are stored in credentials.toml in the .chronicle/ directory and
used by chronicle serve when the matching environment variable is not set.

Supported providers: gemini, openai, anthropic, qdrant

Examples:
  chronicle auth gemini              Prompt for a Gemini API key
  chronicle auth qdrant              Prompt for a Qdrant Cloud API key
  chronicle auth --list              Show which key each provider will use
  chronicle auth --remove openai     Remove stored OpenAI credentials
  echo $KEY | chronicle auth openai  Pipe API key from stdin`

const authShortDesc string = "Store API credentials"

type authCommander struct {
	configDir string
	list      bool
	remove    string

	in  io.Reader
	out io.Writer
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			switch {
			case cmder.list:
				return cmder.runList()
			case cmder.remove != "":
				return cmder.runRemove(cmder.remove)
			case len(args) == 0:
				return fmt.Errorf("provider argument required\n\nSupported providers: %s",
					strings.Join(credentials.ProviderNames(), ", "))
			default:
				return cmder.runStore(args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.ProviderNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "Show credential status for every provider")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func (c *authCommander) manager() (*credentials.Manager, error) {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	return mgr, nil
}

func (c *authCommander) runStore(name string) error {
	provider, err := credentials.Lookup(name)
	if err != nil {
		return err
	}

	apiKey, err := readAPIKey(c.in, c.out, provider)
	if err != nil {
		return err
	}

	mgr, err := c.manager()
	if err != nil {
		return err
	}

	if err := mgr.SetKey(provider.Name, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider.Name),
		cliui.DimStyle.Render("($"+provider.EnvVar+" takes precedence when set)"),
	)

	return nil
}

func (c *authCommander) runList() error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}

	statuses, err := mgr.Statuses()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s  %s\n\n", cliui.KeyStyle.Render("Credentials"), cliui.DimStyle.Render(mgr.Path()))

	stored := 0
	for _, s := range statuses {
		if s.Stored {
			stored++
		}
		fmt.Fprintf(c.out, "  %s  %-10s %-18s %s\n",
			statusMark(s),
			cliui.NameStyle.Render(s.Provider.Name),
			cliui.DimStyle.Render(s.Provider.Purpose),
			describeSource(s),
		)
	}

	if stored == 0 {
		fmt.Fprintf(c.out, "\n  No stored credentials. Use 'chronicle auth <provider>' to add one.\n")
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(name string) error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}

	if err := mgr.RemoveKey(name); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n",
		cliui.SuccessMark, cliui.NameStyle.Render(strings.ToLower(strings.TrimSpace(name))))

	return nil
}

func statusMark(s credentials.Status) string {
	if s.Active() == credentials.SourceNone {
		return cliui.DimStyle.Render("●")
	}
	return cliui.SuccessMark
}

func describeSource(s credentials.Status) string {
	switch s.Active() {
	case credentials.SourceEnv:
		desc := "$" + s.Provider.EnvVar
		if s.Stored {
			desc += cliui.DimStyle.Render(" (overrides stored " + s.Masked + ")")
		}
		return desc
	case credentials.SourceFile:
		desc := "stored " + s.Masked
		if !s.UpdatedAt.IsZero() {
			desc += cliui.DimStyle.Render(" " + s.UpdatedAt.Local().Format("2006-01-02"))
		}
		return desc
	default:
		return cliui.DimStyle.Render("not set ($" + s.Provider.EnvVar + ")")
	}
}

// readAPIKey reads an API key from in. A terminal gets a hidden-input prompt;
// anything else is read up to the first newline.
func readAPIKey(in io.Reader, out io.Writer, provider credentials.Provider) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter API key for %s (%s): ", provider.Name, provider.EnvVar)

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
