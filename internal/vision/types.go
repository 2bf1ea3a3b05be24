package vision

import (
	"context"
	"encoding/base64"
	"image"
)

// FrameSource is an opened capture device. Dimensions reports zero until the
// device can produce a frame.
type FrameSource interface {
	Dimensions() (width, height int)
	Snapshot() (image.Image, error)
	Close() error
}

// Camera acquires a FrameSource. Open failures are *DeviceError.
type Camera interface {
	Open(ctx context.Context) (FrameSource, error)
}

type Frame struct {
	Timestamp int64
	Data      []byte
	Width     int
	Height    int
}

func (f *Frame) Base64() string {
	return base64.StdEncoding.EncodeToString(f.Data)
}

func (f *Frame) DataURL() string {
	return "data:image/jpeg;base64," + f.Base64()
}
