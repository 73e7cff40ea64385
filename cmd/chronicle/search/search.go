// Package searchcmder provides the search command for ranked search over records.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/chronicle/api/search"
	"github.com/papercomputeco/chronicle/pkg/client"
	"github.com/papercomputeco/chronicle/pkg/config"
	"github.com/papercomputeco/chronicle/pkg/logger"
	"github.com/papercomputeco/chronicle/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query string
	topK  int
	quiet bool

	apiTarget string
	ownerID   string

	debug  bool
	logger *slog.Logger
}

const searchLongDesc string = `Search your records via the chronicle API.

Returns the records most relevant to the query text. The server uses the
vector store when it is reachable and falls back to keyword matching over
titles, bodies and tags when it is not; each result shows which path found it.

Use --quiet to output only record IDs, one per line.

Example:
  chronicle search "connection pooling"
  chronicle search "kafka" --top 10
  chronicle search "retry budget" --api-target http://localhost:8081 --owner alice
  chronicle search "draft" --quiet | xargs -n1 chronicle records delete`

const searchShortDesc string = "Search your records"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			target, err := config.ResolveClient(cmd)
			if err != nil {
				return err
			}
			cmder.apiTarget, cmder.ownerID = target.APITarget, target.OwnerID
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", apisearch.DefaultTopK, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only record IDs, one per line (for piping)")
	config.ClientFlags.Register(cmd, config.FlagAPITarget, config.FlagOwnerID)

	return cmd
}

func (c *searchCommander) run(w io.Writer) error {
	c.logger = logger.NewLogger(c.debug)

	cl, err := client.New(c.apiTarget, c.ownerID)
	if err != nil {
		return err
	}

	output, err := cl.Search(context.Background(), c.query, c.topK)
	if err != nil {
		return err
	}

	c.logger.Debug("search complete", "query", c.query, "count", output.Count)

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(w, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Fprintln(w, result.Record.ID)
		}
		return nil
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(w, i+1, result)
	}

	return nil
}

func printResult(w io.Writer, rank int, result apisearch.Result) {
	rec := result.Record

	fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		dimStyle.Render(string(result.Source)),
		idStyle.Render(rec.ID),
	)
	fmt.Fprintf(w, "  %s\n", titleStyle.Render(rec.Title))

	fmt.Fprintf(w, "  %s\n", previewStyle.Render(utils.Preview(rec.Body, 77)))

	if len(rec.Tags) > 0 {
		fmt.Fprintf(w, "  %s\n", tagStyle.Render("#"+strings.Join(rec.Tags, " #")))
	}
	if len(rec.SourceLinks) > 0 {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render(fmt.Sprintf("%d source links", len(rec.SourceLinks))))
	}

	fmt.Fprintln(w)
}
