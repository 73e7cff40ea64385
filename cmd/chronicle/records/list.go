package recordscmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/cliui"
)

func newListCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your records, newest first",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return flags.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := flags.client()
			if err != nil {
				return err
			}

			list, err := cl.ListRecords(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No records.")
				return nil
			}

			for _, rec := range list {
				line := fmt.Sprintf("  %s  %s  %s",
					cliui.DimStyle.Render(rec.CreatedAt.Format("2006-01-02")),
					cliui.KeyStyle.Render(rec.ID),
					cliui.ValueStyle.Render(rec.Title),
				)
				if len(rec.Tags) > 0 {
					line += "  " + cliui.DimStyle.Render(strings.Join(rec.Tags, ","))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
