package recordscmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/api/records"
	"github.com/papercomputeco/chronicle/pkg/cliui"
)

type addCommander struct {
	clientFlags

	title string
	body  string
	tags  []string
	links []string
}

const addLongDesc string = `Store a new record.

The title is the positional argument; --body is required. Repeat --tag and
--link for multiple values.

Examples:
  chronicle records add "Retry budget" --body "Three attempts, fibonacci backoff" --tag ops
  chronicle records add "pgx notes" --body "Pool sizing" --link https://github.com/jackc/pgx`

const addShortDesc string = "Store a new record"

func newAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.title = strings.Join(args, " ")
			return cmder.run(cmd)
		},
	}

	cmder.register(cmd)
	cmd.Flags().StringVarP(&cmder.body, "body", "b", "", "Record body text")
	cmd.Flags().StringSliceVarP(&cmder.tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringSliceVarP(&cmder.links, "link", "l", nil, "Source link to fetch and index (repeatable)")

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command) error {
	cl, err := c.client()
	if err != nil {
		return err
	}

	rec, err := cl.CreateRecord(context.Background(), records.CreateInput{
		Title:       c.title,
		Body:        c.body,
		Tags:        c.tags,
		SourceLinks: c.links,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Stored %s %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(rec.Title),
		cliui.DimStyle.Render(rec.ID),
	)
	return nil
}
