// Package chroniclecmder is the root chronicle command.
package chroniclecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/chronicle/cmd/chronicle/ask"
	browsecmder "github.com/papercomputeco/chronicle/cmd/chronicle/browse"
	authcmder "github.com/papercomputeco/chronicle/cmd/chronicle/auth"
	configcmder "github.com/papercomputeco/chronicle/cmd/chronicle/config"
	recordscmder "github.com/papercomputeco/chronicle/cmd/chronicle/records"
	searchcmder "github.com/papercomputeco/chronicle/cmd/chronicle/search"
	servecmder "github.com/papercomputeco/chronicle/cmd/chronicle/serve"
	versioncmder "github.com/papercomputeco/chronicle/cmd/version"
	"github.com/papercomputeco/chronicle/pkg/utils"
)

const chronicleLongDesc string = `Chronicle stores your notes and answers questions about them.

Run the server and talk to it using:
  chronicle serve                  Run the API and MCP server
  chronicle records add <title>    Store a new record
  chronicle browse                 Browse records interactively
  chronicle search <query>         Search your records
  chronicle ask <question>         Ask a question about your records
  chronicle config list            Show the current configuration
  chronicle auth <provider>        Store an API key`

const chronicleShortDesc string = "Chronicle - searchable personal records"

func NewChronicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chronicle",
		Short:        chronicleShortDesc,
		Long:         chronicleLongDesc,
		Version:      utils.Build().Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("chronicle {{.Version}}\n")

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .chronicle/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(recordscmder.NewRecordsCmd())
	cmd.AddCommand(browsecmder.NewBrowseCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
