// Package mockbridge is a stand-in bridge service for local development and
// tests. It speaks the same wire contract as the real bridge — the blocking
// JSON call, the streaming event frames, and the probe endpoints — but
// answers from a canned responder instead of a model.
package mockbridge

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rwahub/chatlink/pkg/chat"
	"github.com/rwahub/chatlink/pkg/logger"
)

// DefaultListenAddr is where the mock bridge listens when unconfigured.
const DefaultListenAddr = "127.0.0.1:2026"

// mockBotID identifies the canned responder in response payloads.
const mockBotID = "mock-bot"

// Server is the mock bridge HTTP server.
type Server struct {
	listenAddr string
	logger     *slog.Logger
	responder  Responder

	// deltaDelay paces streamed deltas so clients see incremental
	// rendering. Zero means no pacing (tests).
	deltaDelay time.Duration

	app *fiber.App
}

// Option configures a Server created with NewServer.
type Option func(*Server)

// WithLogger sets the server's logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithResponder replaces the default keyword responder.
func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithDeltaDelay paces streamed deltas by d each.
func WithDeltaDelay(d time.Duration) Option {
	return func(s *Server) { s.deltaDelay = d }
}

// NewServer creates a mock bridge listening on listenAddr. An empty address
// selects DefaultListenAddr.
func NewServer(listenAddr string, opts ...Option) *Server {
	if listenAddr == "" {
		listenAddr = DefaultListenAddr
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	s := &Server{
		listenAddr: listenAddr,
		logger:     logger.Nop(),
		responder:  KeywordResponder,
		app:        app,
	}

	for _, opt := range opts {
		opt(s)
	}

	app.Post("/api/v1/chat", s.handleChat)
	app.Get("/api/v1/test/connection", s.handleConnection)
	app.Get("/api/v1/config", s.handleConfig)

	return s
}

// Run starts the server on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("starting mock bridge", "listen", s.listenAddr)
	return s.app.Listen(s.listenAddr)
}

// RunWithListener starts the server on the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting mock bridge", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Close gracefully shuts the server down.
func (s *Server) Close() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chat.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(chat.ChatResponse{
			Message: "invalid request body",
		})
	}

	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(chat.ChatResponse{
			Message: "no messages in request",
		})
	}

	lastUser := req.Messages[len(req.Messages)-1].Content

	// The mock issues an id on first contact and echoes it afterwards,
	// matching the real bridge's conversation lifecycle.
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = "conv-" + uuid.NewString()
	}

	s.logger.Debug("handling chat",
		"user_id", req.UserID,
		"conversation_id", conversationID,
		"stream", req.Stream,
	)

	reply, err := s.responder(lastUser)

	if req.Stream {
		return s.streamReply(c, conversationID, reply, err)
	}

	if err != nil {
		return c.JSON(chat.ChatResponse{
			Success:        false,
			Message:        err.Error(),
			ConversationID: conversationID,
		})
	}

	return c.JSON(chat.ChatResponse{
		Success:        true,
		ConversationID: conversationID,
		Data: chat.ResponseData{
			Content:   reply,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			BotID:     mockBotID,
			UserID:    req.UserID,
		},
	})
}

// streamReply writes the reply as a sequence of event frames: word-sized
// deltas, then chat_completed carrying the conversation id, then end. On a
// responder error it writes an error event instead of deltas.
//
// io.Pipe + SetBodyStream rather than SetBodyStreamWriter: the pipe gives
// per-chunk backpressure, so each frame reaches the client as it is written
// instead of buffering until the handler returns.
func (s *Server) streamReply(c *fiber.Ctx, conversationID, reply string, respErr error) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()

		if respErr != nil {
			writeFrame(pw, chat.StreamEvent{Type: chat.EventError, Error: respErr.Error()})
			writeFrame(pw, chat.StreamEvent{Type: chat.EventEnd})
			return
		}

		for _, delta := range splitDeltas(reply) {
			writeFrame(pw, chat.StreamEvent{Type: chat.EventMessageDelta, Content: delta})
			if s.deltaDelay > 0 {
				time.Sleep(s.deltaDelay)
			}
		}

		writeFrame(pw, chat.StreamEvent{
			Type:           chat.EventChatCompleted,
			ConversationID: conversationID,
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
		})
		writeFrame(pw, chat.StreamEvent{Type: chat.EventEnd})
	}()

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func writeFrame(w io.Writer, ev chat.StreamEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// splitDeltas breaks a reply into word-boundary chunks, whitespace attached
// to the preceding word so concatenation reproduces the reply exactly.
func splitDeltas(reply string) []string {
	if reply == "" {
		return nil
	}

	var deltas []string
	var b strings.Builder

	for _, r := range reply {
		b.WriteRune(r)
		if r == ' ' && b.Len() > 0 {
			deltas = append(deltas, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		deltas = append(deltas, b.String())
	}

	return deltas
}

func (s *Server) handleConnection(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "mock bridge reachable",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"bot_id":      mockBotID,
		"streaming":   true,
		"mock":        true,
		"listen":      s.listenAddr,
		"server_time": time.Now().UTC().Format(time.RFC3339),
	})
}
