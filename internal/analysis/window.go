package analysis

import (
	"math"
	"sync"
)

const DefaultWindowSize = 50

// Window holds finalized results newest first, bounded to its capacity.
type Window struct {
	mu       sync.RWMutex
	capacity int
	results  []AnalysisResult
	stats    RollingStats
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		capacity: capacity,
		results:  make([]AnalysisResult, 0, capacity),
	}
}

// Insert prepends result, evicting the oldest entry once over capacity, and
// returns the recomputed stats.
func (w *Window) Insert(result AnalysisResult) RollingStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.results) == w.capacity {
		w.results = w.results[:w.capacity-1]
	}
	w.results = append(w.results, AnalysisResult{})
	copy(w.results[1:], w.results[:len(w.results)-1])
	w.results[0] = result

	w.stats = computeStats(w.results)
	return w.stats
}

func (w *Window) Results() []AnalysisResult {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]AnalysisResult, len(w.results))
	copy(out, w.results)
	return out
}

func (w *Window) Stats() RollingStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.results)
}

func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = w.results[:0]
	w.stats = RollingStats{}
}

func computeStats(results []AnalysisResult) RollingStats {
	if len(results) == 0 {
		return RollingStats{}
	}

	var totalTime int64
	var totalConfidence float64
	for _, r := range results {
		totalTime += r.ProcessingTimeMs
		totalConfidence += r.Confidence
	}

	n := len(results)
	return RollingStats{
		TotalFrames:       n,
		AvgProcessingTime: int64(math.Round(float64(totalTime) / float64(n))),
		AvgConfidence:     totalConfidence / float64(n),
	}
}
