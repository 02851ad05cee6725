package bridge_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rwahub/chatlink/pkg/bridge"
	"github.com/rwahub/chatlink/pkg/chat"
)

var _ = Describe("Client", func() {
	Describe("Chat", func() {
		It("posts the request and decodes the response", func() {
			var gotReq chat.ChatRequest

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/api/v1/chat"))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
				Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())

				json.NewEncoder(w).Encode(chat.ChatResponse{
					Success:        true,
					ConversationID: "conv-42",
					Data:           chat.ResponseData{Content: "a reply", BotID: "bot-1"},
				})
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)
			resp, err := client.Chat(context.Background(), chat.ChatRequest{
				UserID:   "guest",
				Messages: []chat.Message{chat.NewUserMessage("hello")},
				Stream:   true, // the client forces this off for blocking calls
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(gotReq.Stream).To(BeFalse())
			Expect(gotReq.UserID).To(Equal("guest"))
			Expect(gotReq.Messages).To(HaveLen(1))

			Expect(resp.Success).To(BeTrue())
			Expect(resp.ConversationID).To(Equal("conv-42"))
			Expect(resp.Data.Content).To(Equal("a reply"))
		})

		It("retries transient server failures", func() {
			var calls atomic.Int32

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				json.NewEncoder(w).Encode(chat.ChatResponse{Success: true})
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL,
				bridge.WithRetry(2, time.Millisecond, 5*time.Millisecond),
			)
			resp, err := client.Chat(context.Background(), chat.ChatRequest{})
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Success).To(BeTrue())
			Expect(calls.Load()).To(Equal(int32(2)))
		})

		It("honors a zero retry budget set via WithRetryMax", func() {
			var calls atomic.Int32

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL, bridge.WithRetryMax(0))
			_, err := client.Chat(context.Background(), chat.ChatRequest{})
			Expect(err).To(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(1)))
		})

		It("returns a protocol error on a non-200 status", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such bot", http.StatusNotFound)
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL,
				bridge.WithRetry(0, time.Millisecond, time.Millisecond),
			)
			_, err := client.Chat(context.Background(), chat.ChatRequest{})
			Expect(bridge.IsProtocol(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("404"))
		})

		It("returns a protocol error on an undecodable body", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>definitely not json</html>")
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)
			_, err := client.Chat(context.Background(), chat.ChatRequest{})
			Expect(bridge.IsProtocol(err)).To(BeTrue())
		})

		It("returns a transport error when the bridge is unreachable", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			upstream.Close() // nobody home

			client := bridge.NewClient(upstream.URL,
				bridge.WithRetry(0, time.Millisecond, time.Millisecond),
			)
			_, err := client.Chat(context.Background(), chat.ChatRequest{})
			Expect(bridge.IsTransport(err)).To(BeTrue())
		})
	})

	Describe("ChatStream", func() {
		writeFrame := func(w http.ResponseWriter, payload string) {
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		It("forwards decoded events in order and stops at end", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req chat.ChatRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Stream).To(BeTrue())
				Expect(r.Header.Get("Accept")).To(Equal("text/event-stream"))

				w.Header().Set("Content-Type", "text/event-stream")
				writeFrame(w, `{"type":"message_delta","content":"RWA is"}`)
				writeFrame(w, `{"type":"message_delta","content":" real-world assets."}`)
				writeFrame(w, `{"type":"chat_completed","conversation_id":"conv-1"}`)
				writeFrame(w, `{"type":"end"}`)
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)

			var events []chat.StreamEvent
			err := client.ChatStream(context.Background(), chat.ChatRequest{}, func(ev chat.StreamEvent) {
				events = append(events, ev)
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(events).To(HaveLen(4))
			Expect(events[0].Content).To(Equal("RWA is"))
			Expect(events[1].Content).To(Equal(" real-world assets."))
			Expect(events[2].Type).To(Equal(chat.EventChatCompleted))
			Expect(events[2].ConversationID).To(Equal("conv-1"))
			Expect(events[3].Type).To(Equal(chat.EventEnd))
		})

		It("skips malformed frames without aborting the stream", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				writeFrame(w, `{"type":"message_delta","content":"keep"}`)
				writeFrame(w, `{"type":"message_delta","content":`)
				writeFrame(w, `{"type":"telemetry","content":"unknown"}`)
				writeFrame(w, `{"type":"end"}`)
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)

			var events []chat.StreamEvent
			err := client.ChatStream(context.Background(), chat.ChatRequest{}, func(ev chat.StreamEvent) {
				events = append(events, ev)
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(events).To(HaveLen(2))
			Expect(events[0].Content).To(Equal("keep"))
			Expect(events[1].Type).To(Equal(chat.EventEnd))
		})

		It("returns nil when the stream closes without an end event", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				writeFrame(w, `{"type":"message_delta","content":"cut short"}`)
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)

			var events []chat.StreamEvent
			err := client.ChatStream(context.Background(), chat.ChatRequest{}, func(ev chat.StreamEvent) {
				events = append(events, ev)
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})

		It("returns a protocol error on a non-200 status", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "stream refused", http.StatusServiceUnavailable)
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)
			err := client.ChatStream(context.Background(), chat.ChatRequest{}, nil)
			Expect(bridge.IsProtocol(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("stream refused"))
		})

		It("never retries a stream", func() {
			var calls atomic.Int32

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL,
				bridge.WithRetry(3, time.Millisecond, 5*time.Millisecond),
			)
			err := client.ChatStream(context.Background(), chat.ChatRequest{}, nil)
			Expect(err).To(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(1)))
		})
	})

	Describe("probes", func() {
		It("fetches the connection probe payload", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/v1/test/connection"))
				json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "bridge ok"})
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)
			probe, err := client.TestConnection(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(probe).To(HaveKeyWithValue("success", true))
		})

		It("fetches the advertised config", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/v1/config"))
				json.NewEncoder(w).Encode(map[string]any{"bot_id": "bot-1"})
			}))
			defer upstream.Close()

			client := bridge.NewClient(upstream.URL)
			cfg, err := client.FetchConfig(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg).To(HaveKeyWithValue("bot_id", "bot-1"))
		})
	})
})
