package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a scripted sequence of poses, one per Detect call.
type MockDetector struct {
	mu    sync.Mutex
	poses []*Pose
	next  int
	loop  bool
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector that reports no pose until scripted.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the sequence of poses returned by successive Detect calls.
// A nil entry simulates a frame without landmarks. Once the sequence is
// exhausted Detect returns nil unless loop is set.
func (m *MockDetector) SetPoses(poses []*Pose, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
	m.next = 0
	m.loop = loop
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted pose or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.poses) == 0 {
		return nil, nil
	}
	if m.next >= len(m.poses) {
		if !m.loop {
			return nil, nil
		}
		m.next = 0
	}

	pose := m.poses[m.next]
	m.next++
	return pose, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingPose returns a preset pose of a person standing upright facing the camera.
func StandingPose() *Pose {
	p := &Pose{}
	set := func(idx int, x, y float64) {
		p.Landmarks[idx] = Landmark{X: x, Y: y, Visibility: 1}
	}

	set(Nose, 0.50, 0.15)
	set(LeftEye, 0.52, 0.13)
	set(RightEye, 0.48, 0.13)
	set(MouthLeft, 0.52, 0.19)
	set(MouthRight, 0.48, 0.19)
	set(LeftShoulder, 0.58, 0.30)
	set(RightShoulder, 0.42, 0.30)
	set(LeftElbow, 0.60, 0.45)
	set(RightElbow, 0.40, 0.45)
	set(LeftWrist, 0.60, 0.60)
	set(RightWrist, 0.40, 0.60)
	set(LeftHip, 0.55, 0.60)
	set(RightHip, 0.45, 0.60)
	set(LeftKnee, 0.55, 0.75)
	set(RightKnee, 0.45, 0.75)
	set(LeftAnkle, 0.55, 0.90)
	set(RightAnkle, 0.45, 0.90)

	return p
}

// PoseWithKneeAngle returns a pose whose left hip-knee-ankle angle is deg degrees.
// The shin points straight down and the thigh is rotated away from it.
func PoseWithKneeAngle(deg float64) *Pose {
	p := StandingPose()
	knee := Point2D{X: 0.50, Y: 0.60}
	rad := deg * math.Pi / 180

	p.Landmarks[LeftKnee] = Landmark{X: knee.X, Y: knee.Y, Visibility: 1}
	p.Landmarks[LeftAnkle] = Landmark{X: knee.X, Y: knee.Y + 0.3, Visibility: 1}
	p.Landmarks[LeftHip] = Landmark{
		X:          knee.X + 0.3*math.Sin(rad),
		Y:          knee.Y + 0.3*math.Cos(rad),
		Visibility: 1,
	}
	return p
}

// PoseWithElbowAngle returns a pose whose left shoulder-elbow-wrist angle is deg degrees.
// The upper arm points straight up from the elbow and the forearm is rotated away from it.
func PoseWithElbowAngle(deg float64) *Pose {
	p := StandingPose()
	elbow := Point2D{X: 0.50, Y: 0.50}
	rad := deg * math.Pi / 180

	p.Landmarks[LeftElbow] = Landmark{X: elbow.X, Y: elbow.Y, Visibility: 1}
	p.Landmarks[LeftShoulder] = Landmark{X: elbow.X, Y: elbow.Y - 0.2, Visibility: 1}
	p.Landmarks[LeftWrist] = Landmark{
		X:          elbow.X + 0.2*math.Sin(rad),
		Y:          elbow.Y - 0.2*math.Cos(rad),
		Visibility: 1,
	}
	return p
}

// PoseWithHeadAt returns a pose with the nose at headY and the left shoulder at shoulderY.
func PoseWithHeadAt(headY, shoulderY float64) *Pose {
	p := StandingPose()
	p.Landmarks[Nose].Y = headY
	p.Landmarks[LeftShoulder].Y = shoulderY
	return p
}
