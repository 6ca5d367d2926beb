package capture

import (
	"image"

	"gocv.io/x/gocv"
)

// Prepare mirrors and downscales frame in place before detection.
// Mirroring flips around the vertical axis so the preview behaves like a
// mirror. A scale outside (0, 1) leaves the size unchanged.
func Prepare(frame *gocv.Mat, mirror bool, scale float64) {
	if frame == nil || frame.Empty() {
		return
	}

	if mirror {
		gocv.Flip(*frame, frame, 1)
	}

	if scale > 0 && scale < 1 {
		w := int(float64(frame.Cols()) * scale)
		h := int(float64(frame.Rows()) * scale)
		if w < 1 || h < 1 {
			return
		}
		resized := gocv.NewMat()
		gocv.Resize(*frame, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
		resized.CopyTo(frame)
		resized.Close()
	}
}
