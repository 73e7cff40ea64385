// Package recordscmder provides the records command for adding, listing and
// deleting records through the chronicle API.
package recordscmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/client"
	"github.com/papercomputeco/chronicle/pkg/config"
)

const recordsLongDesc string = `Manage records stored by a running chronicle API server.

  chronicle records add <title> --body <text> [--tag t]... [--link url]...
  chronicle records list
  chronicle records delete <id>

Source links are fetched by the server when the record is created and their
text is indexed alongside the body.`

const recordsShortDesc string = "Manage stored records"

// clientFlags are shared by every records subcommand.
type clientFlags struct {
	apiTarget string
	ownerID   string
}

func NewRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: recordsShortDesc,
		Long:  recordsLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func (f *clientFlags) register(cmd *cobra.Command) {
	config.ClientFlags.Register(cmd, config.FlagAPITarget, config.FlagOwnerID)
}

// load resolves the target from flags, environment and config.toml.
func (f *clientFlags) load(cmd *cobra.Command) error {
	target, err := config.ResolveClient(cmd)
	if err != nil {
		return err
	}
	f.apiTarget, f.ownerID = target.APITarget, target.OwnerID
	return nil
}

func (f *clientFlags) client() (*client.Client, error) {
	return client.New(f.apiTarget, f.ownerID)
}
