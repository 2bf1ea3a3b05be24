package gateway

import (
	"net/http"

	"github.com/eleven-am/vision-relay/internal/transport"
)

// sseWriter emits relay events on a committed text/event-stream response.
type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, http.ErrNotSupported
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

func (s *sseWriter) start() {
	h := s.writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.writer.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *sseWriter) writeContent(content string) error {
	event, err := transport.EncodeContentEvent(content)
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(event); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeDone() error {
	if _, err := s.writer.Write(transport.DoneEvent); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
