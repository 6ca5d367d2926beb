// Package capture provides frame sources (cameras and video files) using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned when a video file has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrUnsupportedVideo is returned for video files with an unsupported extension.
	ErrUnsupportedVideo = errors.New("unsupported video file")
)

// VideoExtensions lists the accepted video file extensions.
var VideoExtensions = []string{".mp4", ".avi", ".mov"}

// Source defines the interface for frame sources.
type Source interface {
	Open() error
	Close() error
	// ReadFrame reads the next frame. The caller is responsible for closing it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	// Live reports whether frames come from a camera rather than a file.
	Live() bool
	// String describes the source, e.g. "camera:0" or "file:squats.mp4".
	String() string
}

// videoSource reads frames from a camera device or a video file using GoCV.
type videoSource struct {
	deviceID int
	path     string
	live     bool
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera creates a new Source for the camera with the given device ID.
func NewCamera(deviceID int) Source {
	return &videoSource{
		deviceID: deviceID,
		live:     true,
		fps:      DefaultFPS,
	}
}

// NewVideoFile creates a new Source that plays back the video file at path.
// Only .mp4, .avi and .mov files are accepted.
func NewVideoFile(path string) (Source, error) {
	if !IsSupportedVideo(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVideo, filepath.Base(path))
	}
	return &videoSource{
		path: path,
		fps:  DefaultFPS,
	}, nil
}

// IsSupportedVideo reports whether path has one of VideoExtensions.
func IsSupportedVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range VideoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Open opens the camera or video file.
// Cameras are set to 640x480 for performance; video files keep their own
// resolution and report their container frame rate through FPS.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if s.live {
		capture, err = gocv.OpenVideoCapture(s.deviceID)
	} else {
		capture, err = gocv.VideoCaptureFile(s.path)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", s.describe(), err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open %s: device not available", s.describe())
	}

	if s.live {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		capture.Set(gocv.VideoCaptureFPS, float64(s.fps))
	} else if fps := int(capture.Get(gocv.VideoCaptureFPS)); fps > 0 {
		s.fps = fps
	}

	s.capture = capture
	s.running = true

	return nil
}

// Close closes the source and releases resources.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame reads a single frame.
// For video files a failed read means the file is exhausted and
// ErrEndOfStream is returned.
func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if !s.live {
			return nil, ErrEndOfStream
		}
		if !ok {
			return nil, errors.New("failed to read frame from camera")
		}
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (s *videoSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fps = fps

	if s.capture != nil && s.live {
		s.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (s *videoSource) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fps
}

// IsOpen returns true if the source is currently open.
func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Live reports whether this is a camera.
func (s *videoSource) Live() bool {
	return s.live
}

func (s *videoSource) String() string {
	return s.describe()
}

func (s *videoSource) describe() string {
	if s.live {
		return fmt.Sprintf("camera:%d", s.deviceID)
	}
	return "file:" + filepath.Base(s.path)
}
