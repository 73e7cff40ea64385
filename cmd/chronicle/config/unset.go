package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/cliui"
	"github.com/papercomputeco/chronicle/pkg/config"
)

const unsetLongDesc string = `Reset a configuration value to its default.

Examples:
  chronicle config unset timeouts.generation
  chronicle config unset eventstream.brokers`

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unset <key>",
		Short:             "Reset a configuration value to its default",
		Long:              unsetLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := checkKey(key); err != nil {
				return err
			}

			c, err := newConfigCommander(cmd)
			if err != nil {
				return err
			}

			c.printTarget()
			if err := c.cfger.UnsetConfigValue(key); err != nil {
				return err
			}

			def, _ := config.DefaultConfigValue(key)
			if def == "" {
				def = "<not set>"
			}
			c.printf("  %s Reset %s to %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), cliui.DimStyle.Render(def))
			return nil
		},
	}
}
