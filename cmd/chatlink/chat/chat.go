// Package chatcmder provides the chat command for interactive conversations
// with the bridge.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rwahub/chatlink/pkg/bridge"
	"github.com/rwahub/chatlink/pkg/chat"
	"github.com/rwahub/chatlink/pkg/cliui"
	"github.com/rwahub/chatlink/pkg/config"
	"github.com/rwahub/chatlink/pkg/dotdir"
	"github.com/rwahub/chatlink/pkg/eventstream"
	"github.com/rwahub/chatlink/pkg/eventstream/kafka"
	"github.com/rwahub/chatlink/pkg/logger"
	"github.com/rwahub/chatlink/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	target   string
	userID   string
	retryMax uint
	noStream bool
	debug    bool

	configDir string

	session *chat.Session
}

const chatLongDesc string = `Start an interactive chat session with the bridge.

Messages stream back token by token. The server-issued conversation id is
saved in the .chatlink/ directory, so a later "chatlink chat" resumes the
same conversation.

Slash commands inside the session:
  /clear    Start a new conversation (clears id and history)
  /id       Print the current conversation id
  /exit     Quit (Ctrl+D also works)

Examples:
  chatlink chat
  chatlink chat --target http://localhost:2026 --user alice
  chatlink chat --no-stream`

const chatShortDesc string = "Interactive chat with the bridge"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
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
			if !cmd.Flags().Changed(config.FlagUserID) {
				cmder.userID = cfg.Bridge.UserID
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
	config.AddStringFlag(cmd, config.CommandFlags, config.FlagUserID, &cmder.userID)
	config.AddUintFlag(cmd, config.CommandFlags, config.FlagRetryMax, &cmder.retryMax)
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Use blocking requests and render replies as markdown")

	return cmd
}

func (c *chatCommander) run() error {
	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	clientOpts := []bridge.Option{
		bridge.WithLogger(log),
		bridge.WithRetryMax(int(c.retryMax)),
	}
	if d := cfg.Bridge.TimeoutDuration(); d > 0 {
		clientOpts = append(clientOpts, bridge.WithTimeout(d))
	}
	client := bridge.NewClient(c.target, clientOpts...)

	// Resume the last conversation if one was saved.
	ddm := dotdir.NewManager()
	state, err := ddm.LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	opts := []chat.SessionOption{
		chat.WithLogger(log),
		chat.WithUserID(c.userID),
	}
	if state != nil && state.ConversationID != "" {
		opts = append(opts, chat.WithConversationID(state.ConversationID))
	}
	c.session = chat.NewSession(client, opts...)

	if cfg.Events.Enabled {
		publisher, err := kafka.NewPublisher(cfg.Events.BrokerList(), cfg.Events.Topic)
		if err != nil {
			return fmt.Errorf("creating event publisher: %w", err)
		}

		tp := eventstream.NewTurnPublisher(publisher,
			eventstream.EventSource{Service: "chatlink", UserID: c.userID},
			eventstream.WithLogger(log),
		)
		cancel := c.session.Subscribe(tp)
		defer func() {
			cancel()
			if err := tp.Close(); err != nil {
				log.Warn("closing event publisher", "error", err)
			}
		}()
	}

	fmt.Println()
	if id := c.session.ConversationID(); id != "" {
		fmt.Printf("  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.IDStyle.Render(utils.Truncate(id, 24)),
		)
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Bridge:"),
		cliui.NameStyle.Render(c.target),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/exit":
			fmt.Println()
			return scanner.Err()

		case "/clear":
			c.session.Clear()
			if err := ddm.ClearSessionState(c.configDir); err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			}
			fmt.Printf("  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue

		case "/id":
			if id := c.session.ConversationID(); id != "" {
				fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Conversation:"), cliui.IDStyle.Render(id))
			} else {
				fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No conversation id yet."))
			}
			continue
		}

		if err := c.sendTurn(input); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		if id := c.session.ConversationID(); id != "" {
			if err := ddm.SaveSessionState(&dotdir.SessionState{
				ConversationID: id,
				UserID:         c.userID,
			}, c.configDir); err != nil {
				log.Warn("saving session state", "error", err)
			}
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendTurn performs one turn, streaming by default.
func (c *chatCommander) sendTurn(input string) error {
	if c.noStream {
		resp, err := c.session.SendMessage(context.Background(), input, "")
		if err != nil {
			return err
		}

		rendered, err := cliui.RenderMarkdown(resp.Data.Content)
		if err != nil {
			rendered = resp.Data.Content
		}
		fmt.Print(assistantPrompt)
		fmt.Print(rendered)
		return nil
	}

	fmt.Print(assistantPrompt)

	var printed bool
	err := c.session.SendStreamMessage(context.Background(), input, func(ev chat.StreamEvent) {
		switch ev.Type {
		case chat.EventMessageDelta:
			if ev.Content != "" {
				fmt.Print(ev.Content)
				printed = true
			}
		case chat.EventError:
			fmt.Print(chat.ErrorReply)
			printed = true
		}
	}, "")
	if err != nil {
		fmt.Println()
		return err
	}

	// The bridge may skip deltas and deliver the whole reply in the
	// completion event; print the committed message in that case.
	if !printed {
		msgs := c.session.Messages()
		if n := len(msgs); n > 0 && msgs[n-1].IsAssistant() {
			fmt.Print(msgs[n-1].Content)
		}
	}

	return nil
}
