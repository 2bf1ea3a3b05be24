package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewAPIError(t *testing.T) {
	err := NewAPIError("test message")
	if err.Message != "test message" {
		t.Errorf("expected message 'test message', got '%s'", err.Message)
	}
	if err.Details != nil {
		t.Errorf("expected nil details, got %v", err.Details)
	}
}

func TestAPIError_WithDetails(t *testing.T) {
	err := NewAPIError("message").WithDetails([]string{"trace"})

	d, ok := err.Details.([]string)
	if !ok {
		t.Fatal("expected details to be []string")
	}
	if d[0] != "trace" {
		t.Errorf("expected 'trace', got '%s'", d[0])
	}
}

func TestAPIError_ToHTTP(t *testing.T) {
	httpErr := NewAPIError("message").ToHTTP(http.StatusBadRequest)

	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, httpErr.Code)
	}
	if _, ok := httpErr.Message.(*APIError); !ok {
		t.Fatal("expected message to be *APIError")
	}
}

func TestBadRequest(t *testing.T) {
	assertHTTPError(t, BadRequest("No image provided"), http.StatusBadRequest, "No image provided")
}

func TestNotFound(t *testing.T) {
	assertHTTPError(t, NotFound("missing"), http.StatusNotFound, "missing")
}

func TestInternalError(t *testing.T) {
	err := InternalError("boom", "detail")
	assertHTTPError(t, err, http.StatusInternalServerError, "boom")
	if err.Message.(*APIError).Details != "detail" {
		t.Errorf("expected details 'detail', got %v", err.Message.(*APIError).Details)
	}
}

func TestAPIError_DefaultHandlerBody(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return BadRequest("No image provided")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "No image provided" {
		t.Errorf("expected error 'No image provided', got %v", body["error"])
	}
	if _, ok := body["details"]; ok {
		t.Error("details should be omitted when empty")
	}
}

func assertHTTPError(t *testing.T, err *echo.HTTPError, expectedStatus int, expectedMessage string) {
	t.Helper()
	if err.Code != expectedStatus {
		t.Errorf("expected status %d, got %d", expectedStatus, err.Code)
	}
	apiErr, ok := err.Message.(*APIError)
	if !ok {
		t.Fatal("expected message to be *APIError")
	}
	if apiErr.Message != expectedMessage {
		t.Errorf("expected message '%s', got '%s'", expectedMessage, apiErr.Message)
	}
}
