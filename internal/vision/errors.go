package vision

import (
	"errors"
	"io/fs"
)

var (
	ErrNotReady     = errors.New("frame source not ready")
	ErrSourceClosed = errors.New("frame source closed")
)

type DeviceErrorKind string

const (
	DevicePermissionDenied DeviceErrorKind = "permission_denied"
	DeviceNotFound         DeviceErrorKind = "not_found"
	DeviceBusy             DeviceErrorKind = "busy"
	DeviceUnsupported      DeviceErrorKind = "unsupported"
)

type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return "camera " + string(e.Kind)
	}
	return "camera " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the person operating the camera.
func (e *DeviceError) UserMessage() string {
	switch e.Kind {
	case DevicePermissionDenied:
		return "Webcam access denied. Please allow camera permissions and try again."
	case DeviceNotFound:
		return "No webcam found. Please connect a camera and try again."
	case DeviceBusy:
		return "Webcam is already in use by another application."
	}
	if e.Err == nil {
		return "Webcam error: " + string(e.Kind)
	}
	return "Webcam error: " + e.Err.Error()
}

func newDeviceError(kind DeviceErrorKind, err error) *DeviceError {
	return &DeviceError{Kind: kind, Err: err}
}

// classifyFSError maps filesystem failures onto device error kinds.
func classifyFSError(err error) *DeviceError {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newDeviceError(DeviceNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return newDeviceError(DevicePermissionDenied, err)
	default:
		return newDeviceError(DeviceUnsupported, err)
	}
}
