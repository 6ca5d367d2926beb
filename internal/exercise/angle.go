// Package exercise provides joint-angle geometry and per-exercise repetition counting.
package exercise

import (
	"math"

	"github.com/ayusman/reptrack/internal/detector"
)

// Angle returns the interior angle in degrees at vertex b formed by the
// segments b→a and b→c. The result is in [0, 180] and does not depend on
// which side of the vertex a and c are listed.
//
// Coincident points are allowed and produce a reading as if the missing
// segment pointed along +X; callers that care must filter them first.
// Inputs must be finite, see Finite.
func Angle(a, b, c detector.Point2D) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)

	if angle > 180.0 {
		angle = 360.0 - angle
	}
	return angle
}

// Finite reports whether every coordinate of points is a finite number.
func Finite(points ...detector.Point2D) bool {
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}
