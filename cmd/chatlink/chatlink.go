// Package chatlinkcmder
package chatlinkcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/rwahub/chatlink/cmd/chatlink/chat"
	configcmder "github.com/rwahub/chatlink/cmd/chatlink/config"
	mockcmder "github.com/rwahub/chatlink/cmd/chatlink/mock"
	pingcmder "github.com/rwahub/chatlink/cmd/chatlink/ping"
	versioncmder "github.com/rwahub/chatlink/cmd/version"
)

const chatlinkLongDesc string = `Chatlink is a terminal client for the RWA Hub conversational AI bridge.

Chat with the assistant using:
  chatlink chat        Start an interactive chat session
  chatlink ping        Check bridge connectivity and configuration
  chatlink mock        Run a local mock bridge for development`

const chatlinkShortDesc string = "Chatlink - RWA Hub chat client"

func NewChatlinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatlink",
		Short: chatlinkShortDesc,
		Long:  chatlinkLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .chatlink/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(pingcmder.NewPingCmd())
	cmd.AddCommand(mockcmder.NewMockCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
