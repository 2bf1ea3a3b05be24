package inference

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCredential = errors.New("GRAVIXLAYER_API_KEY environment variable is not set")
	ErrAllModelsFailed   = errors.New("all models failed")
	ErrNoImage           = errors.New("no image data provided")
)

type Attempt struct {
	Model string
	Err   error
}

// ExhaustedError reports that every candidate model rejected the request.
// It unwraps to the last underlying failure.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	last := e.Last()
	if last == nil {
		return ErrAllModelsFailed.Error()
	}
	return last.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last()
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllModelsFailed
}

func (e *ExhaustedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Details lists each attempt as "model: error" in the order tried.
func (e *ExhaustedError) Details() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, fmt.Sprintf("%s: %v", a.Model, a.Err))
	}
	return out
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, body)
}
