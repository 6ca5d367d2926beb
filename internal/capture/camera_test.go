package capture

import (
	"errors"
	"strings"
	"testing"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name     string
		deviceID int
		wantName string
	}{
		{name: "default device", deviceID: 0, wantName: "camera:0"},
		{name: "device 1", deviceID: 1, wantName: "camera:1"},
		{name: "device 2", deviceID: 2, wantName: "camera:2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.deviceID)

			if cam == nil {
				t.Fatal("NewCamera returned nil")
			}
			if got := cam.FPS(); got != DefaultFPS {
				t.Errorf("FPS() = %d, want %d (default)", got, DefaultFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be running initially")
			}
			if !cam.Live() {
				t.Error("camera should report itself as live")
			}
			if cam.String() != tt.wantName {
				t.Errorf("String() = %q, want %q", cam.String(), tt.wantName)
			}
		})
	}
}

func TestNewVideoFile(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"workout.mp4", false},
		{"/tmp/clips/SQUATS.MOV", false},
		{"curls.avi", false},
		{"notes.txt", true},
		{"video.mkv", true},
		{"noextension", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, err := NewVideoFile(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedVideo) {
					t.Errorf("NewVideoFile(%q) error = %v, want ErrUnsupportedVideo", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewVideoFile(%q) error = %v", tt.path, err)
			}
			if src.Live() {
				t.Error("video file should not be live")
			}
			if !strings.HasPrefix(src.String(), "file:") {
				t.Errorf("String() = %q, want file: prefix", src.String())
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{name: "set to 10", fps: 10, wantFPS: 10},
		{name: "set to 30", fps: 30, wantFPS: 30},
		{name: "set to 1", fps: 1, wantFPS: 1},
		{name: "set to 0 should keep previous", fps: 0, wantFPS: 1},
		{name: "set to negative should keep previous", fps: -5, wantFPS: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}

func TestVideoFile_OpenMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	src, err := NewVideoFile(t.TempDir() + "/missing.mp4")
	if err != nil {
		t.Fatalf("NewVideoFile error = %v", err)
	}
	if err := src.Open(); err == nil {
		src.Close()
		t.Error("expected Open to fail for a missing file")
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)

	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}
