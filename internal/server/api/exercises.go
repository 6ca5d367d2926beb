package api

import (
	"net/http"

	"github.com/ayusman/reptrack/internal/detector"
	"github.com/ayusman/reptrack/internal/exercise"
	"github.com/go-chi/chi/v5"
)

type exerciseResponse struct {
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	Shape    exercise.Shape   `json:"shape"`
	Joints   []detector.Joint `json:"joints"`
	Low      float64          `json:"low,omitempty"`
	High     float64          `json:"high,omitempty"`
	Inverted bool             `json:"inverted,omitempty"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

// ExerciseHandler describes the supported exercises and their counting rules.
type ExerciseHandler struct{}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler() *ExerciseHandler {
	return &ExerciseHandler{}
}

// Register mounts the exercise routes on r.
func (h *ExerciseHandler) Register(r chi.Router) {
	r.Get("/exercises", h.list)
}

// list handles GET /api/exercises.
func (h *ExerciseHandler) list(w http.ResponseWriter, r *http.Request) {
	response := listExercisesResponse{
		Exercises: make([]exerciseResponse, 0, len(exercise.Kinds())),
	}
	for _, k := range exercise.Kinds() {
		rule, err := exercise.RuleFor(k)
		if err != nil {
			continue
		}
		response.Exercises = append(response.Exercises, exerciseResponse{
			Name:     k.String(),
			Title:    k.Title(),
			Shape:    rule.Shape,
			Joints:   rule.Tracked(),
			Low:      rule.Low,
			High:     rule.High,
			Inverted: rule.Inverted,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
