package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key with its value from config.toml, marking
defaults and keys a CHRONICLE_* environment variable overrides.

Examples:
  chronicle config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newConfigCommander(cmd)
			if err != nil {
				return err
			}

			keys := config.ValidConfigKeys()
			width := 0
			for _, k := range keys {
				width = max(width, len(k))
			}

			c.printTarget()
			for _, key := range keys {
				e, err := c.entry(key)
				if err != nil {
					return err
				}
				c.printf("%s", e.render(width))
			}
			c.printf("\n")

			return nil
		},
	}
}
