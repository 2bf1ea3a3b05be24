package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/eleven-am/vision-relay/internal/transport"
)

const maxEventLine = 1 << 20

// RelayError is a non-200 answer from the relay endpoint.
type RelayError struct {
	StatusCode int
	Message    string
	Details    any
}

func (e *RelayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
}

type RelayClient struct {
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

func NewRelayClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *RelayClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayClient{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/analyze",
		logger:     logger.With("component", "relay-client"),
	}
}

// Analyze uploads one JPEG frame and consumes the event stream, calling
// onDelta with each non-empty fragment in arrival order. It returns the
// concatenated description once the stream terminates.
func (c *RelayClient) Analyze(ctx context.Context, jpeg []byte, onDelta func(string)) (string, error) {
	body, contentType, err := encodeFrame(jpeg)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeRelayError(resp)
	}

	var description strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	for scanner.Scan() {
		ev, err := transport.ParseEventLine(scanner.Text())
		if err != nil {
			if errors.Is(err, transport.ErrMalformedEvent) {
				c.logger.Debug("skipping malformed event", "line", scanner.Text())
			}
			continue
		}
		if ev.Done {
			return description.String(), nil
		}
		if ev.Content == "" {
			continue
		}

		description.WriteString(ev.Content)
		if onDelta != nil {
			onDelta(ev.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read relay stream: %w", err)
	}
	return description.String(), nil
}

func encodeFrame(jpeg []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="frame.jpg"`)
	header.Set("Content-Type", "image/jpeg")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, "", fmt.Errorf("write frame: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func decodeRelayError(resp *http.Response) error {
	relayErr := &RelayError{StatusCode: resp.StatusCode}

	var body struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &body); err == nil {
		relayErr.Message = body.Error
		relayErr.Details = body.Details
	} else {
		relayErr.Message = strings.TrimSpace(string(data))
	}
	return relayErr
}
