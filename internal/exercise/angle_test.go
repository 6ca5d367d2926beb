package exercise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ayusman/reptrack/internal/detector"
)

const epsilon = 1e-9

func pt(x, y float64) detector.Point2D {
	return detector.Point2D{X: x, Y: y}
}

func rotate(p, center detector.Point2D, rad float64) detector.Point2D {
	dx, dy := p.X-center.X, p.Y-center.Y
	sin, cos := math.Sin(rad), math.Cos(rad)
	return pt(center.X+dx*cos-dy*sin, center.Y+dx*sin+dy*cos)
}

func TestAngle_KnownValues(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c detector.Point2D
		want    float64
	}{
		{"straight line", pt(0, 0), pt(1, 0), pt(2, 0), 180},
		{"right angle", pt(1, 0), pt(0, 0), pt(0, 1), 90},
		{"folded back", pt(1, 0), pt(0, 0), pt(2, 0), 0},
		{"forty five", pt(1, 0), pt(0, 0), pt(1, 1), 45},
		{"obtuse", pt(1, 0), pt(0, 0), pt(-1, 1), 135},
		{"reflex is canonicalized", pt(math.Cos(-170*math.Pi/180), math.Sin(-170*math.Pi/180)), pt(0, 0), pt(math.Cos(170*math.Pi/180), math.Sin(170*math.Pi/180)), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b, tt.c)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Angle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAngle_DegenerateVertex(t *testing.T) {
	t.Run("all points coincide", func(t *testing.T) {
		p := pt(0.4, 0.4)
		if got := Angle(p, p, p); got != 0 {
			t.Errorf("Angle() = %v, want 0", got)
		}
	})

	t.Run("one end on the vertex stays in range", func(t *testing.T) {
		got := Angle(pt(0.5, 0.5), pt(0.5, 0.5), pt(0.5, 0.9))
		if got < 0 || got > 180 || math.IsNaN(got) {
			t.Errorf("Angle() = %v, want value in [0, 180]", got)
		}
	})
}

func TestAngle_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randPoint := func() detector.Point2D {
		return pt(rng.Float64(), rng.Float64())
	}

	for i := 0; i < 500; i++ {
		a, b, c := randPoint(), randPoint(), randPoint()
		angle := Angle(a, b, c)

		if angle < 0 || angle > 180 {
			t.Fatalf("Angle(%v, %v, %v) = %v out of range", a, b, c, angle)
		}

		if sym := Angle(c, b, a); math.Abs(sym-angle) > epsilon {
			t.Fatalf("not symmetric: %v vs %v", angle, sym)
		}

		dx, dy := rng.Float64()*10-5, rng.Float64()*10-5
		shifted := Angle(pt(a.X+dx, a.Y+dy), pt(b.X+dx, b.Y+dy), pt(c.X+dx, c.Y+dy))
		if math.Abs(shifted-angle) > 1e-7 {
			t.Fatalf("not translation invariant: %v vs %v", angle, shifted)
		}

		center, rad := randPoint(), rng.Float64()*2*math.Pi
		rotated := Angle(rotate(a, center, rad), rotate(b, center, rad), rotate(c, center, rad))
		if math.Abs(rotated-angle) > 1e-7 {
			t.Fatalf("not rotation invariant: %v vs %v", angle, rotated)
		}
	}
}

func TestAngle_RotatingOneEndAboutVertex(t *testing.T) {
	b := pt(0.5, 0.5)
	c := pt(0.8, 0.5)
	a := pt(0.8, 0.5)

	// a starts on top of c's ray and sweeps away from it.
	for _, deg := range []float64{0, 30, 60, 90, 120, 150, 180} {
		moved := rotate(a, b, deg*math.Pi/180)
		if got := Angle(moved, b, c); math.Abs(got-deg) > 1e-6 {
			t.Errorf("rotated by %v: Angle() = %v", deg, got)
		}
	}
}

func TestFinite(t *testing.T) {
	tests := []struct {
		name   string
		points []detector.Point2D
		want   bool
	}{
		{"no points", nil, true},
		{"normal", []detector.Point2D{pt(0.1, 0.2), pt(1, 1)}, true},
		{"nan x", []detector.Point2D{pt(math.NaN(), 0)}, false},
		{"inf y", []detector.Point2D{pt(0, 0), pt(0, math.Inf(-1))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Finite(tt.points...); got != tt.want {
				t.Errorf("Finite() = %v, want %v", got, tt.want)
			}
		})
	}
}
