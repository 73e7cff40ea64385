package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .chronicle/ directory. Duration keys take Go duration strings
("5s", "1m30s") and eventstream.brokers takes a comma-separated list.

Examples:
  chronicle config set generation.provider openai
  chronicle config set timeouts.generation 90s
  chronicle config set eventstream.brokers localhost:9092,localhost:9093
  chronicle config set embedding.dimensions 768`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := checkKey(key); err != nil {
				return err
			}

			c, err := newConfigCommander(cmd)
			if err != nil {
				return err
			}

			c.printTarget()
			if err := c.cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			c.printf("  %s Set %s = %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
			return nil
		},
	}
}
