// Package mockcmder provides the mock command for running a local mock
// bridge server.
package mockcmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwahub/chatlink/pkg/config"
	"github.com/rwahub/chatlink/pkg/logger"
	"github.com/rwahub/chatlink/pkg/mockbridge"
)

type mockCommander struct {
	listen string
	debug  bool
}

const mockLongDesc string = `Run a local mock bridge server.

The mock speaks the same wire contract as the real bridge and answers from
canned RWA-flavored replies, making it useful for development and demos
without a live AI backend. Streamed replies are paced so clients render
them incrementally.

Examples:
  chatlink mock
  chatlink mock --listen 127.0.0.1:3000`

const mockShortDesc string = "Run a local mock bridge"

func NewMockCmd() *cobra.Command {
	cmder := &mockCommander{}

	cmd := &cobra.Command{
		Use:   "mock",
		Short: mockShortDesc,
		Long:  mockLongDesc,
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

			if !cmd.Flags().Changed(config.CommandFlags[config.FlagMockListen].Name) {
				cmder.listen = cfg.Mock.Listen
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

	config.AddStringFlag(cmd, config.CommandFlags, config.FlagMockListen, &cmder.listen)

	return cmd
}

func (c *mockCommander) run() error {
	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	server := mockbridge.NewServer(c.listen,
		mockbridge.WithLogger(log),
		mockbridge.WithDeltaDelay(40*time.Millisecond),
	)

	return server.Run()
}
