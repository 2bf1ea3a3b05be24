package vision

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"
	"time"
)

const DefaultJPEGQuality = 80

type FrameCapturer struct {
	quality int
	logger  *slog.Logger
	now     func() time.Time
}

type CapturerConfig struct {
	Quality int
	Logger  *slog.Logger
}

func NewFrameCapturer(cfg CapturerConfig) *FrameCapturer {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultJPEGQuality
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &FrameCapturer{
		quality: cfg.Quality,
		logger:  cfg.Logger.With("component", "frame-capturer"),
		now:     time.Now,
	}
}

// Capture snapshots src at its native resolution and encodes it as JPEG.
// It returns ErrNotReady while the source reports zero dimensions.
func (c *FrameCapturer) Capture(src FrameSource) (*Frame, error) {
	width, height := src.Dimensions()
	if width == 0 || height == 0 {
		return nil, ErrNotReady
	}

	img, err := src.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	bounds := img.Bounds()
	frame := &Frame{
		Timestamp: c.now().UnixMilli(),
		Data:      buf.Bytes(),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}

	c.logger.Debug("frame captured", "width", frame.Width, "height", frame.Height, "bytes", len(frame.Data))
	return frame, nil
}
