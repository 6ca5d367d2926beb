package api

import (
	"path/filepath"
	"testing"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/detector"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
	"github.com/go-chi/chi/v5"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// newTestManager returns a manager whose sessions never see a frame, so they
// stay active until stopped.
func newTestManager(t *testing.T, st *store.Store) *session.Manager {
	t.Helper()

	m := session.NewManager(session.Config{
		Store:    st,
		Detector: detector.NewMockDetector(),
	})
	t.Cleanup(m.Close)
	return m
}

// idleSources records the sources handed out by the factory.
type idleSources struct {
	cameraIDs  []int
	videoPaths []string
}

func (f *idleSources) factory(cameraID int, videoPath string) (capture.Source, error) {
	if videoPath != "" && !capture.IsSupportedVideo(videoPath) {
		return nil, capture.ErrUnsupportedVideo
	}
	f.cameraIDs = append(f.cameraIDs, cameraID)
	f.videoPaths = append(f.videoPaths, videoPath)
	return capture.NewMockSource(nil, true), nil
}

func newRouter(register func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Route("/api", register)
	return r
}
