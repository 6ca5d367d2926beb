package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestExerciseHandler_List(t *testing.T) {
	h := NewExerciseHandler()
	router := newRouter(func(r chi.Router) { h.Register(r) })

	rec := doRequest(router, http.MethodGet, "/api/exercises", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		Exercises []struct {
			Name     string   `json:"name"`
			Title    string   `json:"title"`
			Shape    string   `json:"shape"`
			Joints   []string `json:"joints"`
			Low      float64  `json:"low"`
			High     float64  `json:"high"`
			Inverted bool     `json:"inverted"`
		} `json:"exercises"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Exercises) != 4 {
		t.Fatalf("expected 4 exercises, got %d", len(response.Exercises))
	}

	squat := response.Exercises[0]
	if squat.Name != "squat" || squat.Low != 90 || squat.High != 160 || squat.Shape != "angle" {
		t.Errorf("unexpected squat entry: %+v", squat)
	}
	wantJoints := []string{"left_hip", "left_knee", "left_ankle"}
	for i, j := range wantJoints {
		if squat.Joints[i] != j {
			t.Errorf("squat joints[%d] = %s, want %s", i, squat.Joints[i], j)
		}
	}

	curl := response.Exercises[1]
	if curl.Name != "dumbbell-curl" || !curl.Inverted || curl.Low != 50 {
		t.Errorf("unexpected curl entry: %+v", curl)
	}

	pullUp := response.Exercises[3]
	if pullUp.Shape != "position" || len(pullUp.Joints) != 2 || pullUp.Joints[0] != "nose" {
		t.Errorf("unexpected pull-up entry: %+v", pullUp)
	}
}
