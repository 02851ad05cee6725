// Package sse provides a minimal, purpose-built decoder for the
// server-sent-event-style streams emitted by the chat bridge service. The
// bridge frames every event as a single line of the form "data: <json>";
// blank lines and comment lines act as keep-alives between events.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities, and does not implement the full SSE field grammar — the
// bridge only ever emits "data:" lines.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single decoded frame from the bridge stream.
type Event struct {
	// Data is the payload of the "data:" line with the marker and a single
	// optional leading space stripped. It is opaque at this layer; callers
	// decode it as JSON.
	Data string
}
