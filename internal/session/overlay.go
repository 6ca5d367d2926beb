package session

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/reptrack/internal/detector"
	"github.com/ayusman/reptrack/internal/exercise"
	"gocv.io/x/gocv"
)

var (
	panelColor = color.RGBA{245, 117, 16, 0}
	textColor  = color.RGBA{255, 255, 255, 0}
	limbColor  = color.RGBA{245, 66, 230, 0}
	jointColor = color.RGBA{245, 117, 66, 0}
)

const (
	lineThickness = 2
	jointRadius   = 4
)

// DrawOverlay renders the rep count, stage and tracked joints onto img.
func DrawOverlay(img *gocv.Mat, rule exercise.Rule, joints detector.JointSet, snap Snapshot) {
	if img == nil || img.Empty() {
		return
	}

	gocv.Rectangle(img, image.Rect(0, 0, 230, 70), panelColor, -1)
	gocv.PutText(img, "REPS", image.Pt(12, 20), gocv.FontHersheySimplex, 0.5, textColor, 1)
	gocv.PutText(img, fmt.Sprint(snap.Count), image.Pt(10, 60), gocv.FontHersheySimplex, 1.5, textColor, 2)
	gocv.PutText(img, "STAGE", image.Pt(95, 20), gocv.FontHersheySimplex, 0.5, textColor, 1)
	gocv.PutText(img, snap.Stage.String(), image.Pt(90, 60), gocv.FontHersheySimplex, 1.2, textColor, 2)

	if joints == nil {
		return
	}

	tracked := rule.Tracked()
	pts := make([]image.Point, 0, len(tracked))
	for _, j := range tracked {
		p, ok := joints.Get(j)
		if !ok {
			return
		}
		pts = append(pts, toPixel(img, p))
	}

	for i := 0; i+1 < len(pts); i++ {
		gocv.Line(img, pts[i], pts[i+1], limbColor, lineThickness)
	}
	for _, pt := range pts {
		gocv.Circle(img, pt, jointRadius, jointColor, -1)
	}

	if rule.Shape == exercise.ShapeAngle && snap.Measured {
		vertex := pts[1]
		gocv.PutText(img, fmt.Sprintf("%.0f", snap.Angle), vertex.Add(image.Pt(8, -8)),
			gocv.FontHersheySimplex, 0.5, textColor, 1)
	}
}

// toPixel maps a normalized landmark onto img.
func toPixel(img *gocv.Mat, p detector.Point2D) image.Point {
	return image.Pt(int(p.X*float64(img.Cols())), int(p.Y*float64(img.Rows())))
}
