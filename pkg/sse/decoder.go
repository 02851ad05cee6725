package sse

import (
	"bufio"
	"io"
	"strings"
)

const dataMarker = "data:"

// Decoder reads bridge stream frames from a source io.Reader.
//
// The underlying transport may deliver partial lines across read boundaries;
// the decoder buffers any trailing partial line and only yields complete
// lines terminated by a newline (or by the end of the stream). Lines that do
// not carry the "data:" marker — blank keep-alive lines, ": comment" lines,
// anything else — are skipped.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder that reads frames from src.
// A decode pass is not restartable; a new pass requires a new reader.
func NewDecoder(src io.Reader) *Decoder {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Decoder{scanner: scanner}
}

// Next returns the next data frame from the stream. It blocks until a
// complete "data:" line is available. Next returns nil, nil when the source
// is exhausted, and the scanner's error if the underlying read failed.
func (d *Decoder) Next() (*Event, error) {
	for d.scanner.Scan() {
		raw := d.scanner.Text()

		// Blank lines separate events and carry no payload.
		if raw == "" {
			continue
		}

		// Lines starting with ':' are comments (keep-alives).
		if strings.HasPrefix(raw, ":") {
			continue
		}

		payload, ok := strings.CutPrefix(raw, dataMarker)
		if !ok {
			// Not a data line. Ignored per the skip policy.
			continue
		}

		// Strip a single leading space after the colon, per the SSE format.
		payload = strings.TrimPrefix(payload, " ")
		if strings.TrimSpace(payload) == "" {
			continue
		}

		return &Event{Data: payload}, nil
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, nil
}
