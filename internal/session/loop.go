package session

import (
	"errors"
	"time"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/detector"
	"github.com/ayusman/reptrack/internal/exercise"
	"github.com/ayusman/reptrack/internal/store"
	"gocv.io/x/gocv"
)

// run is the frame loop. It is the only goroutine that touches the counter.
//
// Per tick:
// 1. Read a frame; end of stream ends the session
// 2. Mirror and downscale it
// 3. For live sources, skip detection while the motion gate is closed
// 4. Detect the pose and extract the tracked joints
// 5. Update the counter and record a rep on every increment
// 6. Publish a snapshot and, with preview on, the annotated JPEG
func (s *Session) run() {
	defer close(s.done)
	defer s.finish()

	ticker := time.NewTicker(s.frameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.step() {
				return
			}
		}
	}
}

func (s *Session) frameInterval() time.Duration {
	if s.config.FrameInterval > 0 {
		return s.config.FrameInterval
	}
	fps := s.source.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// step processes one frame and reports whether the loop should continue.
func (s *Session) step() bool {
	frame, err := s.source.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrEndOfStream) || errors.Is(err, capture.ErrCameraNotOpen) {
			s.logger.Info("source ended", "source", s.Source, "reason", err)
			return false
		}
		s.logger.Debug("skipping frame", "error", err)
		return true
	}
	defer frame.Close()

	s.frames++
	capture.Prepare(frame, s.config.Mirror, s.config.Scale)

	var pose *detector.Pose
	if s.gate == nil || s.gate.Open(frame) {
		pose, err = s.config.Detector.Detect(frame)
		if err != nil {
			s.logger.Debug("pose detection failed", "frame", s.frames, "error", err)
			pose = nil
		}
	}

	joints := pose.Joints(s.config.MinVisibility)
	if joints != nil {
		s.detected++
	}

	reading := s.counter.Update(joints)
	if reading.Measured {
		s.angle = reading.Angle
		s.measured = true
	}
	if reading.Counted {
		s.recordRep(reading)
	}

	snap := s.publish(false)

	if s.config.Preview {
		s.render(frame, joints, snap)
	}
	return true
}

func (s *Session) recordRep(reading exercise.Reading) {
	count := s.counter.State().Count
	s.logger.Info("rep counted", "count", count, "frame", s.frames, "angle", reading.Angle)

	st := s.config.Store
	if st == nil {
		return
	}
	rep := &store.Rep{
		SessionID: s.ID,
		Number:    count,
		Frame:     s.frames,
		Angle:     reading.Angle,
	}
	if err := st.Reps().Add(rep); err != nil {
		s.logger.Error("failed to save rep", "count", count, "error", err)
	}
}

func (s *Session) render(frame *gocv.Mat, joints detector.JointSet, snap Snapshot) {
	DrawOverlay(frame, s.counter.Rule(), joints, snap)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		s.logger.Debug("jpeg encode failed", "error", err)
		return
	}
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	buf.Close()

	s.jpeg.Store(&data)
}

// finish releases the source and saves the final counts. It runs once, on loop exit.
func (s *Session) finish() {
	s.release()
	if err := s.source.Close(); err != nil {
		s.logger.Warn("error closing source", "source", s.Source, "error", err)
	}

	snap := s.publish(true)

	if st := s.config.Store; st != nil {
		ended := snap.UpdatedAt
		rec := &store.Session{
			ID:             s.ID,
			Reps:           snap.Count,
			Stage:          string(snap.Stage),
			Frames:         snap.Frames,
			DetectedFrames: snap.DetectedFrames,
			EndedAt:        &ended,
		}
		if err := st.Sessions().Finish(rec); err != nil {
			s.logger.Error("failed to save session", "error", err)
		}
	}

	s.logger.Info("session finished",
		"exercise", s.Kind.String(),
		"reps", snap.Count,
		"stage", snap.Stage.String(),
		"frames", snap.Frames,
		"detected_frames", snap.DetectedFrames,
	)
}
