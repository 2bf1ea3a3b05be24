package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/vision-relay/internal/inference"
	"github.com/eleven-am/vision-relay/internal/relaystats"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func deltaEvent(content string) string {
	data, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]string{"content": content}}},
	})
	return "data: " + string(data) + "\n\n"
}

// fakeUpstream serves an OpenAI-style chat completion stream built by respond.
func fakeUpstream(t *testing.T, respond func(w http.ResponseWriter, model string)) *inference.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		respond(w, req.Model)
	}))
	t.Cleanup(server.Close)

	return inference.NewClient(inference.Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Models:  []string{"primary", "secondary"},
	}, quietLogger)
}

func streamTokens(tokens ...string) func(http.ResponseWriter, string) {
	return func(w http.ResponseWriter, model string) {
		for _, tok := range tokens {
			io.WriteString(w, deltaEvent(tok))
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}
}

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "frame.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	} else {
		mw.WriteField("other", "value")
	}
	mw.Close()
	return body, mw.FormDataContentType()
}

func newRelayEcho(handler *RelayHandler) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Recover())
	handler.RegisterRoutes(e.Group("/api"))
	return e
}

func postImage(t *testing.T, e *echo.Echo, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartImage(t, field, data)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestRelay_StreamsDeltas(t *testing.T) {
	upstream := fakeUpstream(t, streamTokens("", "A person", " sitting", "", " at a desk"))
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))

	rec := postImage(t, e, "image", []byte{0xff, 0xd8, 0xff})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", ct)
	}
	if rec.Header().Get("Cache-Control") != "no-cache" {
		t.Error("expected Cache-Control no-cache")
	}
	if rec.Header().Get("Connection") != "keep-alive" {
		t.Error("expected Connection keep-alive")
	}
	if rec.Header().Get("X-Accel-Buffering") != "no" {
		t.Error("expected X-Accel-Buffering no")
	}

	want := `data: {"content":"A person"}` + "\n\n" +
		`data: {"content":" sitting"}` + "\n\n" +
		`data: {"content":" at a desk"}` + "\n\n" +
		"data: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Errorf("unexpected body:\n%q\nwant:\n%q", rec.Body.String(), want)
	}
}

func TestRelay_EmptyStream(t *testing.T) {
	upstream := fakeUpstream(t, streamTokens())
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))

	rec := postImage(t, e, "image", []byte("jpeg"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "data: [DONE]\n\n" {
		t.Errorf("expected only the terminator, got %q", rec.Body.String())
	}
}

func TestRelay_MissingImage(t *testing.T) {
	called := false
	upstream := fakeUpstream(t, func(w http.ResponseWriter, model string) { called = true })
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))

	rec := postImage(t, e, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeAPIError(t, rec)
	if body["error"] != "No image provided" {
		t.Errorf("unexpected error body %v", body)
	}
	if called {
		t.Error("upstream should not be called without an image")
	}
}

func TestRelay_EmptyImage(t *testing.T) {
	upstream := fakeUpstream(t, streamTokens("x"))
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))

	rec := postImage(t, e, "image", []byte{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRelay_ImageTooLarge(t *testing.T) {
	upstream := fakeUpstream(t, streamTokens("x"))
	e := newRelayEcho(NewRelayHandler(upstream, nil, 16, quietLogger))

	rec := postImage(t, e, "image", bytes.Repeat([]byte("a"), 64))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestRelay_AllModelsFail(t *testing.T) {
	upstream := fakeUpstream(t, func(w http.ResponseWriter, model string) {
		http.Error(w, model+" unavailable", http.StatusServiceUnavailable)
	})
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))

	rec := postImage(t, e, "image", []byte("jpeg"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	body := decodeAPIError(t, rec)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "secondary unavailable") {
		t.Errorf("expected last failure in error, got %q", msg)
	}
	details, ok := body["details"].([]any)
	if !ok || len(details) != 2 {
		t.Fatalf("expected per-model details, got %v", body["details"])
	}
	if !strings.HasPrefix(details[0].(string), "primary: ") {
		t.Errorf("expected primary first, got %v", details[0])
	}
}

func TestRelay_MissingCredential(t *testing.T) {
	upstream := inference.NewClient(inference.Config{BaseURL: "http://127.0.0.1:0"}, quietLogger)
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))

	rec := postImage(t, e, "image", []byte("jpeg"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeAPIError(t, rec)
	if body["error"] != inference.ErrMissingCredential.Error() {
		t.Errorf("unexpected error %v", body["error"])
	}
}

func TestRelay_FailureBeforeFirstToken(t *testing.T) {
	upstream := fakeUpstream(t, func(w http.ResponseWriter, model string) {
		io.WriteString(w, `data: {"error":{"message":"rate limited"}}`+"\n\n")
	})
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))

	rec := postImage(t, e, "image", []byte("jpeg"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 before headers are committed, got %d", rec.Code)
	}
	body := decodeAPIError(t, rec)
	if !strings.Contains(fmt.Sprint(body["error"]), "rate limited") {
		t.Errorf("unexpected error %v", body)
	}
}

func TestRelay_MidStreamFailureAborts(t *testing.T) {
	upstream := fakeUpstream(t, func(w http.ResponseWriter, model string) {
		io.WriteString(w, deltaEvent("partial"))
		io.WriteString(w, `data: {"error":{"message":"overloaded"}}`+"\n\n")
	})
	e := newRelayEcho(NewRelayHandler(upstream, nil, 0, quietLogger))
	server := httptest.NewServer(e)
	defer server.Close()

	body, contentType := multipartImage(t, "image", []byte("jpeg"))
	resp, err := http.Post(server.URL+"/api/analyze", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected committed 200, got %d", resp.StatusCode)
	}

	got, readErr := io.ReadAll(resp.Body)
	if !strings.Contains(string(got), `{"content":"partial"}`) {
		t.Errorf("expected partial content before abort, got %q", got)
	}
	if strings.Contains(string(got), "[DONE]") {
		t.Error("aborted stream must not carry the terminator")
	}
	if readErr == nil {
		t.Error("expected the connection to be aborted")
	}
}

func TestRelay_RecordsOutcomes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	stats := relaystats.NewStore(client)

	upstream := fakeUpstream(t, streamTokens("desk"))
	e := newRelayEcho(NewRelayHandler(upstream, stats, 0, quietLogger))

	postImage(t, e, "image", []byte("jpeg"))
	postImage(t, e, "", nil)

	metrics, err := stats.Today(context.Background())
	if err != nil {
		t.Fatalf("Today error: %v", err)
	}

	var requests, success, badRequest int64
	for _, m := range metrics {
		requests += m.Requests
		success += m.Success
		badRequest += m.BadRequest
	}
	if requests != 2 || success != 1 || badRequest != 1 {
		t.Errorf("unexpected counters requests=%d success=%d bad_request=%d", requests, success, badRequest)
	}
}

func TestStripDataURL(t *testing.T) {
	if got := stripDataURL("data:image/jpeg;base64,QUJD"); got != "QUJD" {
		t.Errorf("expected prefix stripped, got %s", got)
	}
	if got := stripDataURL("QUJD"); got != "QUJD" {
		t.Errorf("expected raw base64 unchanged, got %s", got)
	}
	if got := stripDataURL("data:broken"); got != "" {
		t.Errorf("expected empty payload, got %s", got)
	}
}
