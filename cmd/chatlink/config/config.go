// Package configcmder provides the config command for managing persistent
// chatlink configuration stored in the .chatlink/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent chatlink configuration.

Configuration is stored as config.toml in the .chatlink/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  bridge.target, bridge.user_id, bridge.timeout, bridge.retry_max,
  mock.listen,
  events.enabled, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  chatlink config set <key> <value>    Set a configuration value
  chatlink config get <key>            Get a configuration value
  chatlink config list                 List all configuration values

Examples:
  chatlink config set bridge.target http://localhost:2026
  chatlink config set bridge.user_id alice
  chatlink config get bridge.target
  chatlink config list`

const configShortDesc string = "Manage persistent chatlink configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
