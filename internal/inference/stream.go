package inference

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const doneMarker = "[DONE]"

// Stream is a lazy, single-pass sequence of content deltas. Next blocks
// until the next delta is available and returns io.EOF once the upstream
// signals completion. A Stream cannot be restarted.
type Stream struct {
	model  string
	body   io.ReadCloser
	reader *bufio.Reader
	err    error
}

func newStream(model string, body io.ReadCloser) *Stream {
	return &Stream{
		model:  model,
		body:   body,
		reader: bufio.NewReader(body),
	}
}

func (s *Stream) Model() string {
	return s.model
}

// Next returns the next delta, which may be empty.
func (s *Stream) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	for {
		line, readErr := s.reader.ReadString('\n')
		if content, ok, err := s.parseLine(line); err != nil {
			return "", s.finish(err)
		} else if ok {
			return content, nil
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return "", s.finish(io.EOF)
			}
			return "", s.finish(fmt.Errorf("read stream: %w", readErr))
		}
	}
}

func (s *Stream) parseLine(line string) (string, bool, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "data:") {
		return "", false, nil
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" {
		return "", false, nil
	}
	if data == doneMarker {
		return "", false, io.EOF
	}

	var chunk chatChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, nil
	}
	if chunk.Error != nil {
		return "", false, fmt.Errorf("upstream stream error: %s", chunk.Error.Message)
	}
	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, true, nil
}

func (s *Stream) finish(err error) error {
	s.err = err
	_ = s.body.Close()
	return err
}

func (s *Stream) Close() error {
	if s.err == nil {
		s.err = io.ErrClosedPipe
	}
	return s.body.Close()
}
