// Package configcmder provides the config command for managing persistent
// chronicle configuration stored in the .chronicle/ directory.
package configcmder

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/cliui"
	"github.com/papercomputeco/chronicle/pkg/config"
)

const configLongDesc string = `Manage persistent chronicle configuration.

Configuration is stored as config.toml in the .chronicle/ directory and provides
default values for command flags. CLI flags and CHRONICLE_* environment
variables always take precedence over config file values; get and list point
out keys an environment variable currently overrides.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  api.listen, client.api_target, client.owner_id,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  generation.provider, generation.model, generation.target,
  ingest.max_concurrency, ingest.max_chars, ingest.requests_per_second,
  timeouts.vector, timeouts.store, timeouts.generation, timeouts.fetch,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  log.level, log.format

Use subcommands to manage configuration values:
  chronicle config set <key> <value>    Set a configuration value
  chronicle config get <key>            Get a configuration value
  chronicle config unset <key>          Reset a key to its default
  chronicle config list                 List all configuration values

Examples:
  chronicle config set generation.provider anthropic
  chronicle config set vector_store.provider chroma
  chronicle config get client.owner_id
  chronicle config unset timeouts.generation
  chronicle config list`

const configShortDesc string = "Manage persistent chronicle configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newUnsetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// configCommander holds what every config subcommand needs once flags are parsed.
type configCommander struct {
	cmd   *cobra.Command
	cfger *config.Configer
}

func newConfigCommander(cmd *cobra.Command) (*configCommander, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &configCommander{cmd: cmd, cfger: cfger}, nil
}

func (c *configCommander) printf(format string, args ...any) {
	fmt.Fprintf(c.cmd.OutOrStdout(), format, args...)
}

func (c *configCommander) printTarget() {
	if target := c.cfger.GetTarget(); target != "" {
		c.printf("\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
		return
	}
	c.printf("\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// entry is one key as get and list display it.
type entry struct {
	key       string
	value     string
	isDefault bool
	envVar    string
	envValue  string
}

func (c *configCommander) entry(key string) (entry, error) {
	value, err := c.cfger.GetConfigValue(key)
	if err != nil {
		return entry{}, err
	}
	def, err := config.DefaultConfigValue(key)
	if err != nil {
		return entry{}, err
	}

	e := entry{key: key, value: value, isDefault: value == def, envVar: config.EnvVarForKey(key)}
	if v, ok := os.LookupEnv(e.envVar); ok && v != "" {
		e.envValue = v
	}
	return e, nil
}

// render formats e with its key padded to width.
func (e entry) render(width int) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, e.key)))
	b.WriteString("  ")

	if e.value == "" {
		b.WriteString(cliui.DimStyle.Render("<not set>"))
	} else {
		b.WriteString(cliui.ValueStyle.Render(fmt.Sprintf("%q", e.value)))
		if e.isDefault {
			b.WriteString(cliui.DimStyle.Render(" (default)"))
		}
	}

	if e.envValue != "" {
		b.WriteString(cliui.DimStyle.Render(fmt.Sprintf("  overridden by $%s=%q", e.envVar, e.envValue)))
	}

	b.WriteString("\n")
	return b.String()
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}
