package configcmder

import (
	"github.com/spf13/cobra"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file stored in the
.chronicle/ directory, marking defaults and any CHRONICLE_* environment
variable that overrides it.

Examples:
  chronicle config get generation.provider
  chronicle config get timeouts.vector`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkKey(args[0]); err != nil {
				return err
			}

			c, err := newConfigCommander(cmd)
			if err != nil {
				return err
			}

			e, err := c.entry(args[0])
			if err != nil {
				return err
			}

			c.printTarget()
			c.printf("%s\n", e.render(len(e.key)))
			return nil
		},
	}
}
