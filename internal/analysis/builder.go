package analysis

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	resultConfidenceMin = 0.85
	resultConfidenceMax = 1.0
	objectConfidenceMin = 0.7
	objectConfidenceMax = 1.0

	TimestampLayout = "15:04:05"
)

// Builder turns an accumulated description into an AnalysisResult, filling
// the synthetic confidence fields.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &Builder{rng: rng, now: time.Now}
}

func (b *Builder) Build(description string, processing time.Duration) AnalysisResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	return AnalysisResult{
		ID:               uuid.NewString(),
		Timestamp:        b.now().Format(TimestampLayout),
		Confidence:       b.uniform(resultConfidenceMin, resultConfidenceMax),
		Objects:          ExtractObjects(description, b.objectConfidence),
		Description:      description,
		ProcessingTimeMs: processing.Milliseconds(),
	}
}

func (b *Builder) objectConfidence() float64 {
	return b.uniform(objectConfidenceMin, objectConfidenceMax)
}

func (b *Builder) uniform(lo, hi float64) float64 {
	return lo + b.rng.Float64()*(hi-lo)
}
