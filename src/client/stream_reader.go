package client

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// maxEventSize bounds a single event-stream line.
const maxEventSize = 1024 * 1024

// RawEvent is one dispatched event-stream message.
type RawEvent struct {
	Event string
	Data  []byte
}

// -----------------------------------------------------------------------------

// StreamReader parses text/event-stream framing: "event:" and "data:" fields,
// comment lines starting with ':' and a blank line that dispatches the event.
type StreamReader struct {
	scanner *bufio.Scanner
}

func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &StreamReader{scanner: sc}
}

// -----------------------------------------------------------------------------

// Next blocks until a full event has been read. It returns io.EOF when the
// stream ends cleanly; a partial trailing event is discarded.
func (sr *StreamReader) Next() (RawEvent, error) {
	var (
		event   string
		data    bytes.Buffer
		hasData bool
	)

	for sr.scanner.Scan() {
		line := strings.TrimSuffix(sr.scanner.Text(), "\r")

		if line == "" {
			if !hasData && event == "" {
				continue
			}
			if event == "" {
				event = "message"
			}
			return RawEvent{Event: event, Data: data.Bytes()}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
	}

	if err := sr.scanner.Err(); err != nil {
		return RawEvent{}, err
	}
	return RawEvent{}, io.EOF
}
