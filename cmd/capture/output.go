package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/eleven-am/vision-relay/internal/analysis"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// printer serializes results to one writer. Results can arrive from
// callback goroutines, so every write holds mu.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case formatText, formatJSON, formatYAML:
		return &printer{w: w, format: format}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use text, json or yaml)", format)
	}
}

func (p *printer) Result(result analysis.AnalysisResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.format {
	case formatJSON:
		return json.NewEncoder(p.w).Encode(result)
	case formatYAML:
		return p.yamlDocument(result)
	}

	names := make([]string, 0, len(result.Objects))
	for _, obj := range result.Objects {
		names = append(names, obj.Name)
	}

	_, err := fmt.Fprintf(p.w, "[%s] %s\n  confidence %.0f%%, %dms", result.Timestamp, result.Description,
		result.Confidence*100, result.ProcessingTimeMs)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		_, err = fmt.Fprintf(p.w, ", objects: %s", strings.Join(names, ", "))
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(p.w)
	return err
}

type summary struct {
	Stats analysis.RollingStats `json:"stats" yaml:"stats"`
}

func (p *printer) Summary(stats analysis.RollingStats) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.format {
	case formatJSON:
		return json.NewEncoder(p.w).Encode(summary{Stats: stats})
	case formatYAML:
		return p.yamlDocument(summary{Stats: stats})
	}

	_, err := fmt.Fprintf(p.w, "frames: %d, avg processing: %dms, avg confidence: %.1f%%\n",
		stats.TotalFrames, stats.AvgProcessingTime, stats.AvgConfidence*100)
	return err
}

func (p *printer) yamlDocument(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.w, "---")
	return err
}

// resultCounter closes done once limit results have been counted. A zero
// limit never closes.
type resultCounter struct {
	limit int
	mu    sync.Mutex
	n     int
	done  chan struct{}
}

func newResultCounter(limit int) *resultCounter {
	return &resultCounter{limit: limit, done: make(chan struct{})}
}

func (c *resultCounter) add() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.n++
	if c.limit > 0 && c.n == c.limit {
		close(c.done)
	}
}

func (c *resultCounter) Done() <-chan struct{} {
	return c.done
}
