package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/exercise"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
	"github.com/go-chi/chi/v5"
)

// SessionManager is the part of session.Manager the API drives.
type SessionManager interface {
	Start(kind exercise.Kind, src capture.Source) (*session.Session, error)
	Stop() (session.Snapshot, error)
	Snapshot() (session.Snapshot, bool)
}

// SourceFactory builds the frame source for a start request. A non-empty
// videoPath selects a video file, otherwise the camera with cameraID.
type SourceFactory func(cameraID int, videoPath string) (capture.Source, error)

// DefaultSourceFactory opens real cameras and video files.
func DefaultSourceFactory(cameraID int, videoPath string) (capture.Source, error) {
	if videoPath != "" {
		return capture.NewVideoFile(videoPath)
	}
	return capture.NewCamera(cameraID), nil
}

type startSessionRequest struct {
	Exercise  string `json:"exercise"`
	CameraID  *int   `json:"camera_id"`
	VideoPath string `json:"video_path"`
}

// SessionHandler starts, inspects and stops the live tracking session.
type SessionHandler struct {
	manager   SessionManager
	store     *store.Store
	newSource SourceFactory
	cameraID  int
	log       *slog.Logger
}

// NewSessionHandler creates a new SessionHandler. st may be nil; it is used
// to fall back to the last exercise when a request names none.
func NewSessionHandler(m SessionManager, st *store.Store, newSource SourceFactory, cameraID int, log *slog.Logger) *SessionHandler {
	if newSource == nil {
		newSource = DefaultSourceFactory
	}
	if log == nil {
		log = slog.Default()
	}
	return &SessionHandler{
		manager:   m,
		store:     st,
		newSource: newSource,
		cameraID:  cameraID,
		log:       log,
	}
}

// Register mounts the session routes on r.
func (h *SessionHandler) Register(r chi.Router) {
	r.Post("/session", h.start)
	r.Get("/session", h.get)
	r.Delete("/session", h.stop)
}

// start handles POST /api/session.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := req.Exercise
	if name == "" {
		name = h.lastExercise()
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "Exercise is required")
		return
	}

	kind, err := exercise.ParseKind(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cameraID := h.cameraID
	if req.CameraID != nil {
		cameraID = *req.CameraID
	}
	if cameraID < 0 {
		writeError(w, http.StatusBadRequest, "Invalid camera id")
		return
	}

	src, err := h.newSource(cameraID, req.VideoPath)
	if err != nil {
		if errors.Is(err, capture.ErrUnsupportedVideo) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create source")
		return
	}

	sess, err := h.manager.Start(kind, src)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionActive):
			writeError(w, http.StatusConflict, "A session is already running")
		case errors.Is(err, exercise.ErrUnknownExercise):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("failed to start session", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to start session: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// get handles GET /api/session.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.manager.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "No active session")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// stop handles DELETE /api/session.
func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Stop()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			writeError(w, http.StatusNotFound, "No active session")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) lastExercise() string {
	if h.store == nil {
		return ""
	}
	name, err := h.store.Settings().Get(store.SettingLastExercise)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("failed to read last exercise", "error", err)
		}
		return ""
	}
	return name
}
