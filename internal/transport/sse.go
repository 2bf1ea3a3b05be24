package transport

import (
	"encoding/json"
	"errors"
	"strings"
)

const (
	EventPrefix = "data: "
	DoneMarker  = "[DONE]"
)

var (
	ErrNotEvent       = errors.New("not an event line")
	ErrMalformedEvent = errors.New("malformed event payload")
)

// DoneEvent terminates a relay stream.
var DoneEvent = []byte(EventPrefix + DoneMarker + "\n\n")

type ContentEvent struct {
	Content string `json:"content"`
}

func EncodeContentEvent(content string) ([]byte, error) {
	data, err := json.Marshal(ContentEvent{Content: content})
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(EventPrefix)+len(data)+2)
	buf = append(buf, EventPrefix...)
	buf = append(buf, data...)
	buf = append(buf, '\n', '\n')
	return buf, nil
}

type Event struct {
	Content string
	Done    bool
}

// ParseEventLine decodes a single line of a relay stream. Lines without the
// data prefix return ErrNotEvent; undecodable payloads return ErrMalformedEvent.
func ParseEventLine(line string) (Event, error) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, EventPrefix) {
		return Event{}, ErrNotEvent
	}

	data := line[len(EventPrefix):]
	if data == DoneMarker {
		return Event{Done: true}, nil
	}

	var ev ContentEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return Event{}, ErrMalformedEvent
	}
	return Event{Content: ev.Content}, nil
}
