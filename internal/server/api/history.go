package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/reptrack/internal/store"
	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 50

type sessionResponse struct {
	ID             string `json:"id"`
	Exercise       string `json:"exercise"`
	Source         string `json:"source"`
	Reps           int    `json:"reps"`
	Stage          string `json:"stage"`
	Frames         int    `json:"frames"`
	DetectedFrames int    `json:"detected_frames"`
	StartedAt      string `json:"started_at"`
	EndedAt        string `json:"ended_at,omitempty"`
}

type repResponse struct {
	Number    int     `json:"number"`
	Frame     int     `json:"frame"`
	Angle     float64 `json:"angle"`
	CreatedAt string  `json:"created_at"`
}

type sessionDetailResponse struct {
	sessionResponse
	RepEvents []repResponse `json:"rep_events"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// toSessionResponse converts a store.Session to a sessionResponse.
func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:             s.ID,
		Exercise:       s.Exercise,
		Source:         s.Source,
		Reps:           s.Reps,
		Stage:          s.Stage,
		Frames:         s.Frames,
		DetectedFrames: s.DetectedFrames,
		StartedAt:      formatTime(s.StartedAt),
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

// HistoryHandler serves stored sessions.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// Register mounts the history routes on r.
func (h *HistoryHandler) Register(r chi.Router) {
	r.Get("/sessions", h.list)
	r.Get("/sessions/{id}", h.get)
	r.Delete("/sessions/{id}", h.delete)
}

// list handles GET /api/sessions.
func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	reps, err := h.store.Reps().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get reps")
		return
	}

	response := sessionDetailResponse{
		sessionResponse: toSessionResponse(sess),
		RepEvents:       make([]repResponse, 0, len(reps)),
	}
	for _, rep := range reps {
		response.RepEvents = append(response.RepEvents, repResponse{
			Number:    rep.Number,
			Frame:     rep.Frame,
			Angle:     rep.Angle,
			CreatedAt: formatTime(rep.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/sessions/{id}.
func (h *HistoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
