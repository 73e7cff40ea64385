// Package browsecmder provides the browse command, an interactive terminal
// browser over the records stored by a chronicle API server.
package browsecmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/client"
	"github.com/papercomputeco/chronicle/pkg/config"
)

type browseCommander struct {
	apiTarget string
	ownerID   string
}

const browseLongDesc string = `Browse your records in an interactive terminal UI.

Records are listed newest first. Select one to read its body, tags, source
links and the text fetched from those links.

Keys:
  j/k      move
  enter    open record
  h/esc    back to the list
  d        delete the selected record
  r        reload
  q        quit`

const browseShortDesc string = "Browse records interactively"

func NewBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}
	cmd := &cobra.Command{
		Use:   "browse",
		Short: browseShortDesc,
		Long:  browseLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			target, err := config.ResolveClient(cmd)
			if err != nil {
				return err
			}
			cmder.apiTarget, cmder.ownerID = target.APITarget, target.OwnerID
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := client.New(cmder.apiTarget, cmder.ownerID)
			if err != nil {
				return err
			}
			return runBrowseTUI(cmd.Context(), cl)
		},
	}

	config.ClientFlags.Register(cmd, config.FlagAPITarget, config.FlagOwnerID)

	return cmd
}

func runBrowseTUI(ctx context.Context, source recordSource) error {
	if ctx == nil {
		ctx = context.Background()
	}

	list, err := source.ListRecords(ctx)
	if err != nil {
		return err
	}

	return runProgram(ctx, newBrowseModel(source, list))
}
