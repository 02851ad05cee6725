package mockbridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rwahub/chatlink/pkg/bridge"
	"github.com/rwahub/chatlink/pkg/chat"
	"github.com/rwahub/chatlink/pkg/mockbridge"
	"github.com/rwahub/chatlink/pkg/sse"
)

func chatRequestBody(content, conversationID string, stream bool) *bytes.Reader {
	body, err := json.Marshal(chat.ChatRequest{
		UserID:         "guest",
		Messages:       []chat.Message{chat.NewUserMessage(content)},
		ConversationID: conversationID,
		Stream:         stream,
	})
	Expect(err).ToNot(HaveOccurred())
	return bytes.NewReader(body)
}

var _ = Describe("Server", func() {
	var server *mockbridge.Server

	BeforeEach(func() {
		server = mockbridge.NewServer("")
	})

	Describe("blocking chat", func() {
		It("answers with a canned reply and issues a conversation id", func() {
			req, err := http.NewRequest(http.MethodPost, "/api/v1/chat", chatRequestBody("what is rwa?", "", false))
			Expect(err).ToNot(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var chatResp chat.ChatResponse
			Expect(json.NewDecoder(resp.Body).Decode(&chatResp)).To(Succeed())

			Expect(chatResp.Success).To(BeTrue())
			Expect(chatResp.ConversationID).To(HavePrefix("conv-"))
			Expect(chatResp.Data.Content).To(ContainSubstring("Real World Assets"))
			Expect(chatResp.Data.BotID).To(Equal("mock-bot"))
			Expect(chatResp.Data.UserID).To(Equal("guest"))
		})

		It("echoes a caller-supplied conversation id", func() {
			req, err := http.NewRequest(http.MethodPost, "/api/v1/chat", chatRequestBody("hello", "conv-existing", false))
			Expect(err).ToNot(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()

			var chatResp chat.ChatResponse
			Expect(json.NewDecoder(resp.Body).Decode(&chatResp)).To(Succeed())
			Expect(chatResp.ConversationID).To(Equal("conv-existing"))
		})

		It("rejects an empty message list", func() {
			body, err := json.Marshal(chat.ChatRequest{UserID: "guest"})
			Expect(err).ToNot(HaveOccurred())

			req, err := http.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
			Expect(err).ToNot(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports responder failures as success=false", func() {
			failing := mockbridge.NewServer("", mockbridge.WithResponder(func(string) (string, error) {
				return "", errors.New("bot unavailable")
			}))

			req, err := http.NewRequest(http.MethodPost, "/api/v1/chat", chatRequestBody("hello", "", false))
			Expect(err).ToNot(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := failing.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()

			var chatResp chat.ChatResponse
			Expect(json.NewDecoder(resp.Body).Decode(&chatResp)).To(Succeed())
			Expect(chatResp.Success).To(BeFalse())
			Expect(chatResp.Message).To(Equal("bot unavailable"))
		})
	})

	Describe("streaming chat", func() {
		decodeFrames := func(body io.Reader) []chat.StreamEvent {
			var events []chat.StreamEvent
			decoder := sse.NewDecoder(body)
			for {
				frame, err := decoder.Next()
				Expect(err).ToNot(HaveOccurred())
				if frame == nil {
					return events
				}
				ev, err := chat.ParseStreamEvent([]byte(frame.Data))
				Expect(err).ToNot(HaveOccurred())
				events = append(events, *ev)
			}
		}

		It("streams word deltas, then chat_completed, then end", func() {
			req, err := http.NewRequest(http.MethodPost, "/api/v1/chat", chatRequestBody("tell me about the platform", "", true))
			Expect(err).ToNot(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			events := decodeFrames(resp.Body)
			Expect(len(events)).To(BeNumerically(">", 3))

			var rebuilt strings.Builder
			for _, ev := range events[:len(events)-2] {
				Expect(ev.Type).To(Equal(chat.EventMessageDelta))
				rebuilt.WriteString(ev.Content)
			}

			completed := events[len(events)-2]
			Expect(completed.Type).To(Equal(chat.EventChatCompleted))
			Expect(completed.ConversationID).To(HavePrefix("conv-"))

			Expect(events[len(events)-1].Type).To(Equal(chat.EventEnd))

			// Concatenated deltas reproduce the reply exactly.
			Expect(rebuilt.String()).To(ContainSubstring("RWA Hub"))
		})

		It("streams an error event when the responder fails", func() {
			failing := mockbridge.NewServer("", mockbridge.WithResponder(func(string) (string, error) {
				return "", errors.New("upstream exploded")
			}))

			req, err := http.NewRequest(http.MethodPost, "/api/v1/chat", chatRequestBody("hello", "", true))
			Expect(err).ToNot(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := failing.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()

			events := decodeFrames(resp.Body)
			Expect(events).To(HaveLen(2))
			Expect(events[0].Type).To(Equal(chat.EventError))
			Expect(events[0].Error).To(Equal("upstream exploded"))
			Expect(events[1].Type).To(Equal(chat.EventEnd))
		})
	})

	Describe("probes", func() {
		It("answers the connection probe", func() {
			req, err := http.NewRequest(http.MethodGet, "/api/v1/test/connection", nil)
			Expect(err).ToNot(HaveOccurred())

			resp, err := server.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var probe map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&probe)).To(Succeed())
			Expect(probe).To(HaveKeyWithValue("success", true))
		})

		It("advertises its config", func() {
			req, err := http.NewRequest(http.MethodGet, "/api/v1/config", nil)
			Expect(err).ToNot(HaveOccurred())

			resp, err := server.App().Test(req, -1)
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()

			var cfg map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&cfg)).To(Succeed())
			Expect(cfg).To(HaveKeyWithValue("bot_id", "mock-bot"))
			Expect(cfg).To(HaveKeyWithValue("mock", true))
		})
	})

	Describe("end to end with the bridge client", func() {
		It("carries a full streamed conversation through a session", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).ToNot(HaveOccurred())

			go func() {
				_ = server.RunWithListener(listener)
			}()
			defer server.Close()

			client := bridge.NewClient("http://" + listener.Addr().String())
			session := chat.NewSession(client)

			Expect(session.SendStreamMessage(context.Background(), "What is RWA?", nil, "")).To(Succeed())

			msgs := session.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
			Expect(msgs[1].Content).To(ContainSubstring("Real World Assets"))
			Expect(session.ConversationID()).To(HavePrefix("conv-"))

			// The second turn reuses the issued conversation id.
			first := session.ConversationID()
			Expect(session.SendStreamMessage(context.Background(), "And the risks?", nil, "")).To(Succeed())
			Expect(session.ConversationID()).To(Equal(first))
			Expect(session.Messages()).To(HaveLen(4))
		})
	})
})
