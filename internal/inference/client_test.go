package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func sseChunk(content string) string {
	data, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]string{"content": content}}},
	})
	return "data: " + string(data) + "\n\n"
}

func newTestClient(url string, models ...string) *Client {
	return NewClient(Config{BaseURL: url, APIKey: "test-key", Models: models}, nil)
}

func collect(t *testing.T, s *Stream) []string {
	t.Helper()
	var out []string
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		out = append(out, tok)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{}, nil)
	if client.baseURL != DefaultBaseURL {
		t.Errorf("expected base URL %s, got %s", DefaultBaseURL, client.baseURL)
	}
	if len(client.models) != 1 || client.models[0] != DefaultModels[0] {
		t.Errorf("expected default models, got %v", client.models)
	}
	if client.maxTokens != 500 {
		t.Errorf("expected max tokens 500, got %d", client.maxTokens)
	}
	if client.temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %f", client.temperature)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}
	if client.HasCredential() {
		t.Error("client without key should report no credential")
	}
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://example.com/v1/"}, nil)
	if client.baseURL != "http://example.com/v1" {
		t.Errorf("expected trailing slash trimmed, got %s", client.baseURL)
	}
}

func TestClient_Stream_MissingCredential(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := client.Stream(context.Background(), "aGVsbG8=")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if called {
		t.Error("no network call should be made without a credential")
	}
}

func TestClient_Stream_NoImage(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0", "m")
	if _, err := client.Stream(context.Background(), ""); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
}

func TestClient_Stream_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if !req.Stream {
			t.Error("stream should be true")
		}
		if req.MaxTokens != 500 || req.Temperature != 0.7 {
			t.Errorf("unexpected sampling params %d %f", req.MaxTokens, req.Temperature)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Errorf("unexpected messages %+v", req.Messages)
			return
		}
		if req.Messages[0].Content[0].Text != DefaultPrompt {
			t.Errorf("unexpected prompt %q", req.Messages[0].Content[0].Text)
		}
		if got := req.Messages[0].Content[1].ImageURL.URL; got != "data:image/jpeg;base64,aGVsbG8=" {
			t.Errorf("unexpected image url %q", got)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk(""))
		io.WriteString(w, sseChunk("A person"))
		io.WriteString(w, ": comment\n\n")
		io.WriteString(w, sseChunk(" at a desk"))
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL, "model-a")
	stream, err := client.Stream(context.Background(), "aGVsbG8=")
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}
	defer stream.Close()

	if stream.Model() != "model-a" {
		t.Errorf("expected model-a, got %s", stream.Model())
	}

	tokens := collect(t, stream)
	if strings.Join(tokens, "") != "A person at a desk" {
		t.Errorf("unexpected tokens %q", tokens)
	}
	if len(tokens) != 3 {
		t.Errorf("expected 3 deltas including the empty role delta, got %d", len(tokens))
	}

	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("exhausted stream should keep returning io.EOF, got %v", err)
	}
}

func TestClient_Stream_EndsWithoutDoneMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("only"))
	}))
	defer server.Close()

	stream, err := newTestClient(server.URL, "m").Stream(context.Background(), "eA==")
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}
	tokens := collect(t, stream)
	if len(tokens) != 1 || tokens[0] != "only" {
		t.Errorf("unexpected tokens %q", tokens)
	}
}

func TestClient_Stream_FallbackOrder(t *testing.T) {
	var mu sync.Mutex
	var tried []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)

		mu.Lock()
		tried = append(tried, req.Model)
		mu.Unlock()

		if req.Model != "model-c" {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}
		io.WriteString(w, sseChunk("ok"))
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL, "model-a", "model-b", "model-c", "model-d")
	stream, err := client.Stream(context.Background(), "eA==")
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}
	defer stream.Close()

	if stream.Model() != "model-c" {
		t.Errorf("expected model-c, got %s", stream.Model())
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(tried, ",") != "model-a,model-b,model-c" {
		t.Errorf("expected ordered attempts stopping at first success, got %v", tried)
	}
}

func TestClient_Stream_AllModelsFail(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, fmt.Sprintf("failure %d", calls), http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "model-a", "model-b")
	_, err := client.Stream(context.Background(), "eA==")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrAllModelsFailed) {
		t.Errorf("expected ErrAllModelsFailed, got %v", err)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %T", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(exhausted.Attempts))
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected last cause to be *StatusError, got %v", exhausted.Last())
	}
	if !strings.Contains(statusErr.Body, "failure 2") {
		t.Errorf("expected last failure preserved, got %q", statusErr.Body)
	}
	if !strings.Contains(err.Error(), "failure 2") {
		t.Errorf("error message should surface the last failure, got %q", err.Error())
	}

	details := exhausted.Details()
	if len(details) != 2 || !strings.HasPrefix(details[0], "model-a: ") {
		t.Errorf("unexpected details %v", details)
	}
}

func TestClient_Stream_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url, "m").Stream(context.Background(), "eA==")
	if !errors.Is(err, ErrAllModelsFailed) {
		t.Errorf("expected ErrAllModelsFailed, got %v", err)
	}
}

func TestClient_Stream_MidStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("partial"))
		io.WriteString(w, `data: {"error":{"message":"overloaded"}}`+"\n\n")
	}))
	defer server.Close()

	stream, err := newTestClient(server.URL, "m").Stream(context.Background(), "eA==")
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}

	tok, err := stream.Next()
	if err != nil || tok != "partial" {
		t.Fatalf("expected first token, got %q %v", tok, err)
	}

	_, err = stream.Next()
	if err == nil || err == io.EOF {
		t.Fatalf("expected stream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("expected upstream message, got %v", err)
	}
}

func TestClient_Stream_ContextCanceledStopsFallback(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL, "a", "b", "c").Stream(ctx, "eA==")
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n > 1 {
		t.Errorf("expected fallback to stop after cancellation, got %d calls", n)
	}
}

func TestClient_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if !newTestClient(server.URL, "m").IsAvailable(context.Background()) {
		t.Error("expected available")
	}
}

func TestClient_IsAvailable_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if newTestClient(url, "m").IsAvailable(context.Background()) {
		t.Error("expected unavailable")
	}
}

func TestEncodeImage(t *testing.T) {
	if EncodeImage([]byte("hello")) != "aGVsbG8=" {
		t.Errorf("unexpected encoding %s", EncodeImage([]byte("hello")))
	}
}

func TestExhaustedError_Empty(t *testing.T) {
	err := &ExhaustedError{}
	if err.Error() != ErrAllModelsFailed.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("empty error should unwrap to nil")
	}
}
