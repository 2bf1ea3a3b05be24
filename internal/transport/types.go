package transport

import "github.com/eleven-am/vision-relay/internal/analysis"

type MessageType string

const (
	MessageTypeAnalyzeFrame   MessageType = "analyze_frame"
	MessageTypeAnalysisResult MessageType = "analysis_result"
	MessageTypeError          MessageType = "error"
)

// Message is one whole-JSON websocket frame on the real-time transport.
// analyze_frame carries Frame and Timestamp; analysis_result carries Result.
type Message struct {
	Type      MessageType              `json:"type"`
	Frame     string                   `json:"frame,omitempty"`
	Timestamp int64                    `json:"timestamp,omitempty"`
	Result    *analysis.AnalysisResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func NewAnalyzeFrame(frame string, timestamp int64) *Message {
	return &Message{
		Type:      MessageTypeAnalyzeFrame,
		Frame:     frame,
		Timestamp: timestamp,
	}
}

func NewAnalysisResult(result analysis.AnalysisResult) *Message {
	return &Message{
		Type:   MessageTypeAnalysisResult,
		Result: &result,
	}
}

func NewError(message string) *Message {
	return &Message{
		Type:  MessageTypeError,
		Error: message,
	}
}
