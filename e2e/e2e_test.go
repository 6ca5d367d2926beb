package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/detector"
	"github.com/ayusman/reptrack/internal/server"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
	"gocv.io/x/gocv"
)

type liveState struct {
	SessionID string `json:"session_id"`
	Exercise  string `json:"exercise"`
	Count     int    `json:"count"`
	Stage     string `json:"stage"`
	Finished  bool   `json:"finished"`
}

func squatPoses() []*detector.Pose {
	return []*detector.Pose{
		detector.PoseWithKneeAngle(170),
		detector.PoseWithKneeAngle(80),
		detector.PoseWithKneeAngle(170),
		detector.PoseWithKneeAngle(80),
		detector.PoseWithKneeAngle(170),
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frames := capture.NewBlankFrames(5, 64, 48)
	defer capture.CloseFrames(frames)
	newSource := func(cameraID int, videoPath string) (capture.Source, error) {
		return capture.NewMockSource(frames, false), nil
	}

	det := detector.NewMockDetector()
	mgr := session.NewManager(session.Config{
		Store:         s,
		Detector:      det,
		Mirror:        true,
		Scale:         0.5,
		FrameInterval: time.Millisecond,
	})
	defer mgr.Close()

	srv := server.New(server.Config{Store: s, Sessions: mgr, NewSource: newSource})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	waitFinished := func(t *testing.T) liveState {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			resp, err := client.Get(ts.URL + "/api/session")
			if err != nil {
				t.Fatalf("GET /api/session error = %v", err)
			}
			var st liveState
			json.NewDecoder(resp.Body).Decode(&st)
			resp.Body.Close()
			if st.Finished {
				return st
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatal("session did not finish in time")
		return liveState{}
	}

	stop := func(t *testing.T) {
		t.Helper()
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/session", nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("DELETE /api/session error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	}

	var firstID string

	t.Run("CountSquats", func(t *testing.T) {
		det.SetPoses(squatPoses(), false)

		resp, err := client.Post(ts.URL+"/api/session", "application/json",
			strings.NewReader(`{"exercise": "squat", "video_path": "set.mp4"}`))
		if err != nil {
			t.Fatalf("start session error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		st := waitFinished(t)
		if st.Count != 2 || st.Stage != "up" || st.Exercise != "squat" {
			t.Errorf("final state = %+v, want 2 squats ending up", st)
		}
		firstID = st.SessionID
		stop(t)
	})

	t.Run("HistoryRecordsReps", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions/" + firstID)
		if err != nil {
			t.Fatalf("get session error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var detail struct {
			Reps      int    `json:"reps"`
			EndedAt   string `json:"ended_at"`
			RepEvents []struct {
				Number int `json:"number"`
				Frame  int `json:"frame"`
			} `json:"rep_events"`
		}
		json.NewDecoder(resp.Body).Decode(&detail)

		if detail.Reps != 2 || detail.EndedAt == "" {
			t.Errorf("unexpected session detail %+v", detail)
		}
		if len(detail.RepEvents) != 2 {
			t.Fatalf("len(rep_events) = %d, want 2", len(detail.RepEvents))
		}
		if detail.RepEvents[0].Frame != 3 || detail.RepEvents[1].Frame != 5 {
			t.Errorf("rep frames = %d, %d, want 3, 5", detail.RepEvents[0].Frame, detail.RepEvents[1].Frame)
		}
	})

	t.Run("RepeatsLastExercise", func(t *testing.T) {
		det.SetPoses(squatPoses()[:3], false)

		resp, err := client.Post(ts.URL+"/api/session", "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("start session error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		st := waitFinished(t)
		if st.Exercise != "squat" || st.Count != 1 {
			t.Errorf("final state = %+v, want 1 squat", st)
		}
		stop(t)
	})

	t.Run("ListsNewestFirst", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions?limit=10")
		if err != nil {
			t.Fatalf("list sessions error = %v", err)
		}
		defer resp.Body.Close()

		var list struct {
			Sessions []struct {
				ID   string `json:"id"`
				Reps int    `json:"reps"`
			} `json:"sessions"`
		}
		json.NewDecoder(resp.Body).Decode(&list)

		if len(list.Sessions) != 2 {
			t.Fatalf("len(sessions) = %d, want 2", len(list.Sessions))
		}
		if list.Sessions[1].ID != firstID || list.Sessions[1].Reps != 2 {
			t.Errorf("oldest session = %+v, want %s with 2 reps", list.Sessions[1], firstID)
		}
	})
}

func TestE2E_BlankFramesAreReadable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	frames := capture.NewBlankFrames(1, 32, 24)
	defer capture.CloseFrames(frames)

	src := capture.NewMockSource(frames, false)
	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	frame, err := src.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	defer frame.Close()

	if frame.Cols() != 32 || frame.Rows() != 24 || frame.Type() != gocv.MatTypeCV8UC3 {
		t.Errorf("frame = %dx%d type %v, want 32x24 CV8UC3", frame.Cols(), frame.Rows(), frame.Type())
	}
}
