// Package pingcmder provides the ping command for checking bridge
// connectivity and configuration.
package pingcmder

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwahub/chatlink/pkg/bridge"
	"github.com/rwahub/chatlink/pkg/cliui"
	"github.com/rwahub/chatlink/pkg/config"
	"github.com/rwahub/chatlink/pkg/logger"
)

type pingCommander struct {
	target   string
	retryMax uint
	debug    bool
}

const pingLongDesc string = `Check bridge connectivity and fetch its advertised configuration.

Probes the bridge's connection test endpoint, then retrieves the
configuration the bridge advertises to clients.

Examples:
  chatlink ping
  chatlink ping --target http://localhost:2026`

const pingShortDesc string = "Check bridge connectivity"

func NewPingCmd() *cobra.Command {
	cmder := &pingCommander{}

	cmd := &cobra.Command{
		Use:   "ping",
		Short: pingShortDesc,
		Long:  pingLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed(config.FlagBridgeTarget) {
				cmder.target = cfg.Bridge.Target
			}
			if !cmd.Flags().Changed(config.FlagRetryMax) {
				cmder.retryMax = cfg.Bridge.RetryMax
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.CommandFlags, config.FlagBridgeTarget, &cmder.target)
	config.AddUintFlag(cmd, config.CommandFlags, config.FlagRetryMax, &cmder.retryMax)

	return cmd
}

func (c *pingCommander) run() error {
	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	client := bridge.NewClient(c.target,
		bridge.WithLogger(log),
		bridge.WithTimeout(10*time.Second),
		bridge.WithRetryMax(int(c.retryMax)),
	)

	ctx := context.Background()

	fmt.Println()
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Bridge:"),
		cliui.NameStyle.Render(c.target),
	)

	var probe map[string]any
	if err := cliui.Step(os.Stdout, "connection test", func() error {
		var err error
		probe, err = client.TestConnection(ctx)
		return err
	}); err != nil {
		return err
	}

	var cfg map[string]any
	if err := cliui.Step(os.Stdout, "fetching config", func() error {
		var err error
		cfg, err = client.FetchConfig(ctx)
		return err
	}); err != nil {
		return err
	}

	fmt.Println()
	printPayload("Probe", probe)
	printPayload("Config", cfg)

	return nil
}

func printPayload(title string, payload map[string]any) {
	if len(payload) == 0 {
		return
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("  %s\n", cliui.KeyStyle.Render(title))
	for _, k := range keys {
		fmt.Printf("    %s: %v\n", cliui.DimStyle.Render(k), payload[k])
	}
	fmt.Println()
}
