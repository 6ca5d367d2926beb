// Package detector provides pose detection interfaces and types for rep tracking.
package detector

// Pose landmark indices following the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Point2D is a joint position in normalized image coordinates.
// X grows to the right and Y grows downward, both in [0, 1].
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmark is a single pose landmark as reported by the detector.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Point returns the image-plane position of the landmark.
func (l Landmark) Point() Point2D {
	return Point2D{X: l.X, Y: l.Y}
}

// Pose is the full set of landmarks detected for one person in one frame.
type Pose struct {
	Landmarks [NumLandmarks]Landmark `json:"landmarks"`
}

// Joint names a body joint used by the rep counters.
type Joint int

const (
	JointNose Joint = iota
	JointMouthBottom
	JointLeftShoulder
	JointLeftElbow
	JointLeftWrist
	JointLeftHip
	JointLeftKnee
	JointLeftAnkle
)

var jointNames = [...]string{
	JointNose:         "nose",
	JointMouthBottom:  "mouth_bottom",
	JointLeftShoulder: "left_shoulder",
	JointLeftElbow:    "left_elbow",
	JointLeftWrist:    "left_wrist",
	JointLeftHip:      "left_hip",
	JointLeftKnee:     "left_knee",
	JointLeftAnkle:    "left_ankle",
}

// String returns the snake_case name of the joint.
func (j Joint) String() string {
	if j < 0 || int(j) >= len(jointNames) {
		return "unknown"
	}
	return jointNames[j]
}

// MarshalText implements encoding.TextMarshaler.
func (j Joint) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

// JointSet maps joints to their positions for a single frame.
type JointSet map[Joint]Point2D

// Get returns the position of j and whether it is present.
func (s JointSet) Get(j Joint) (Point2D, bool) {
	p, ok := s[j]
	return p, ok
}

// Joints extracts the tracked joints from the pose.
// Landmarks with visibility below minVisibility are left out; a minVisibility
// of 0 keeps every landmark regardless of confidence.
//
// MediaPipe has no dedicated chin landmark, so the midpoint of the two mouth
// corners stands in for it.
func (p *Pose) Joints(minVisibility float64) JointSet {
	if p == nil {
		return nil
	}

	set := make(JointSet, len(jointNames))
	add := func(j Joint, idx int) {
		lm := p.Landmarks[idx]
		if minVisibility > 0 && lm.Visibility < minVisibility {
			return
		}
		set[j] = lm.Point()
	}

	add(JointNose, Nose)
	add(JointLeftShoulder, LeftShoulder)
	add(JointLeftElbow, LeftElbow)
	add(JointLeftWrist, LeftWrist)
	add(JointLeftHip, LeftHip)
	add(JointLeftKnee, LeftKnee)
	add(JointLeftAnkle, LeftAnkle)

	left, right := p.Landmarks[MouthLeft], p.Landmarks[MouthRight]
	if minVisibility <= 0 || (left.Visibility >= minVisibility && right.Visibility >= minVisibility) {
		set[JointMouthBottom] = Point2D{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2}
	}

	return set
}
