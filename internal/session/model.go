package session

import (
	"context"

	"github.com/eleven-am/vision-relay/internal/analysis"
)

type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateRequesting State = "requesting"
)

const AnalysisFailedMessage = "Analysis failed. Please try again."

// Analyzer submits one frame and streams the description back through
// onDelta, returning the full text when the stream ends.
type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte, onDelta func(string)) (string, error)
}

// Observer receives controller updates. Calls for a single request arrive in
// order from one goroutine; implementations must not call back into the
// Controller synchronously from OnStateChange.
type Observer interface {
	OnLiveText(text string)
	OnResult(result analysis.AnalysisResult, stats analysis.RollingStats)
	OnError(message string)
	OnStateChange(state State)
}

type nopObserver struct{}

func (nopObserver) OnLiveText(string)                                      {}
func (nopObserver) OnResult(analysis.AnalysisResult, analysis.RollingStats) {}
func (nopObserver) OnError(string)                                         {}
func (nopObserver) OnStateChange(State)                                    {}
