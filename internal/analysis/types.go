package analysis

// DetectedObject is a vocabulary term found in a description. Confidence is a
// synthetic display value, not a detector score.
type DetectedObject struct {
	Name       string  `json:"name" yaml:"name"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// AnalysisResult is one finalized judgment of a single frame.
//
// Confidence and every Objects[i].Confidence are uncalibrated placeholders
// sampled from fixed ranges; callers must not treat them as model output.
type AnalysisResult struct {
	ID               string           `json:"id" yaml:"id"`
	Timestamp        string           `json:"timestamp" yaml:"timestamp"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
	Objects          []DetectedObject `json:"objects" yaml:"objects"`
	Description      string           `json:"description" yaml:"description"`
	ProcessingTimeMs int64            `json:"processing_time" yaml:"processing_time"`
}

type RollingStats struct {
	TotalFrames       int     `json:"totalFrames" yaml:"total_frames"`
	AvgProcessingTime int64   `json:"avgProcessingTime" yaml:"avg_processing_time"`
	AvgConfidence     float64 `json:"avgConfidence" yaml:"avg_confidence"`
}
