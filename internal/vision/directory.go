package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

var (
	openDirsMu sync.Mutex
	openDirs   = make(map[string]bool)
)

// DirectoryCamera treats a directory of still images as a capture device,
// returning its images in name order and wrapping around at the end.
type DirectoryCamera struct {
	dir    string
	logger *slog.Logger
}

func NewDirectoryCamera(dir string, logger *slog.Logger) *DirectoryCamera {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryCamera{
		dir:    dir,
		logger: logger.With("component", "directory-camera", "dir", dir),
	}
}

func (c *DirectoryCamera) Open(ctx context.Context) (FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := filepath.Abs(c.dir)
	if err != nil {
		return nil, newDeviceError(DeviceNotFound, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, classifyFSError(err)
	}
	if !info.IsDir() {
		return nil, newDeviceError(DeviceNotFound, fmt.Errorf("%s is not a directory", path))
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, classifyFSError(err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, newDeviceError(DeviceUnsupported, fmt.Errorf("no images in %s", path))
	}

	openDirsMu.Lock()
	if openDirs[path] {
		openDirsMu.Unlock()
		return nil, newDeviceError(DeviceBusy, fmt.Errorf("%s already open", path))
	}
	openDirs[path] = true
	openDirsMu.Unlock()

	src := &directorySource{path: path, files: files, logger: c.logger}
	if err := src.advance(); err != nil {
		release(path)
		return nil, err
	}

	c.logger.Info("camera opened", "images", len(files))
	return src, nil
}

func release(path string) {
	openDirsMu.Lock()
	delete(openDirs, path)
	openDirsMu.Unlock()
}

type directorySource struct {
	path   string
	files  []string
	logger *slog.Logger

	mu      sync.Mutex
	next    int
	current image.Image
	closed  bool
}

func (s *directorySource) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.current == nil {
		return 0, 0
	}
	b := s.current.Bounds()
	return b.Dx(), b.Dy()
}

func (s *directorySource) Snapshot() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}

	img := s.current
	if err := s.advanceLocked(); err != nil {
		s.logger.Warn("failed to load next image", "error", err)
	}
	return img, nil
}

func (s *directorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.current = nil
	release(s.path)
	return nil
}

func (s *directorySource) advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

// advanceLocked decodes the next readable image, skipping files that fail.
func (s *directorySource) advanceLocked() error {
	var lastErr error
	for range s.files {
		file := s.files[s.next]
		s.next = (s.next + 1) % len(s.files)

		img, err := decodeFile(file)
		if err == nil {
			s.current = img
			return nil
		}
		s.logger.Debug("skipping undecodable image", "file", file, "error", err)
		lastErr = err
	}

	if errors.Is(lastErr, os.ErrPermission) {
		return newDeviceError(DevicePermissionDenied, lastErr)
	}
	return newDeviceError(DeviceUnsupported, fmt.Errorf("no decodable images: %w", lastErr))
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
