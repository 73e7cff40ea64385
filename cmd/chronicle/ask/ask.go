// Package askcmder provides the ask command for answering questions from
// stored records.
package askcmder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/chronicle/api/search"
	"github.com/papercomputeco/chronicle/pkg/cliui"
	"github.com/papercomputeco/chronicle/pkg/client"
	"github.com/papercomputeco/chronicle/pkg/config"
	"github.com/papercomputeco/chronicle/pkg/logger"
)

type askCommander struct {
	question string
	raw      bool

	apiTarget string
	ownerID   string

	debug  bool
	logger *slog.Logger
}

const askLongDesc string = `Ask a question about your records via the chronicle API.

The server retrieves the records most relevant to the question and has the
configured generation model answer from them. When search or generation is
unavailable the server still replies with a short explanation instead of an
error.

Examples:
  chronicle ask "what did I decide about the retry budget?"
  chronicle ask "which links mention pgx?" --owner alice
  chronicle ask "summarize my notes on kafka" --raw`

const askShortDesc string = "Ask a question about your records"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			target, err := config.ResolveClient(cmd)
			if err != nil {
				return err
			}
			cmder.apiTarget, cmder.ownerID = target.APITarget, target.OwnerID
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = strings.Join(args, " ")

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")
	config.ClientFlags.Register(cmd, config.FlagAPITarget, config.FlagOwnerID)

	return cmd
}

func (c *askCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)

	cl, err := client.New(c.apiTarget, c.ownerID)
	if err != nil {
		return err
	}

	c.logger.Debug("asking chronicle API", "target", c.apiTarget, "owner", c.ownerID)

	var out *search.Output
	err = cliui.Step(cmd.ErrOrStderr(), "Asking chronicle", func() error {
		var qerr error
		out, qerr = cl.Query(cmd.Context(), c.question)
		return qerr
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), Render(out, c.raw, terminalWidth(cmd.OutOrStdout())))
	return nil
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !cliui.IsTerminal(w) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// Render formats an answer and its supporting records for the terminal,
// wrapping markdown at width columns.
func Render(out *search.Output, raw bool, width int) string {
	var b strings.Builder

	text := out.Answer.Answer
	if !raw {
		if rendered, err := cliui.RenderMarkdown(text, width); err == nil {
			text = rendered
		}
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}

	if len(out.RelevantRecords) == 0 {
		return b.String()
	}

	b.WriteString(cliui.Heading("Sources:"))
	for _, rec := range out.RelevantRecords {
		b.WriteString(cliui.Bullet(rec.Title, rec.ID))
	}
	b.WriteString("\n")

	return b.String()
}
