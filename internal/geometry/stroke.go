package geometry

import (
	"math"

	"github.com/gogpu/gg"
)

const (
	// StrokeSize is the nominal pen diameter of a freehand stroke at full pressure.
	StrokeSize = 16.0

	// StrokePadding is the allowance added around the raw samples of a stroke
	// so its bounds enclose the rendered outline and not only the pen centers.
	StrokePadding = StrokeSize / 2

	minPressure     = 0.25
	defaultPressure = 0.5
)

// PenPoint is one sample of a freehand stroke.
type PenPoint struct {
	X        float64
	Y        float64
	Pressure float64
}

// StrokeBounds returns the box enclosing every sample plus StrokePadding on
// each side. Fewer than one sample yields the zero Rect.
func StrokeBounds(points []PenPoint) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	pts := make([]Point, len(points))
	for i, p := range points {
		pts[i] = Point{X: p.X, Y: p.Y}
	}
	return BoundsOf(pts).Inflate(StrokePadding)
}

// StrokeOutline converts pen samples into a closed, smoothed outline whose
// half-width follows the sample pressure. A single sample becomes a dot.
func StrokeOutline(points []PenPoint, size float64) *gg.Path {
	path := gg.NewPath()
	switch len(points) {
	case 0:
		return path
	case 1:
		path.Circle(points[0].X, points[0].Y, radiusFor(points[0], size))
		return path
	}

	left := make([]gg.Point, len(points))
	right := make([]gg.Point, len(points))
	for i, p := range points {
		prev := points[max(i-1, 0)]
		next := points[min(i+1, len(points)-1)]
		tangent := gg.Pt(next.X-prev.X, next.Y-prev.Y)
		if tangent.Length() == 0 {
			tangent = gg.Pt(1, 0)
		}
		tangent = tangent.Normalize()
		normal := gg.Pt(-tangent.Y, tangent.X).Mul(radiusFor(p, size))
		center := gg.Pt(p.X, p.Y)
		left[i] = center.Add(normal)
		right[i] = center.Sub(normal)
	}

	poly := make([]gg.Point, 0, len(left)+len(right))
	poly = append(poly, left...)
	for i := len(right) - 1; i >= 0; i-- {
		poly = append(poly, right[i])
	}

	start := poly[0].Lerp(poly[1], 0.5)
	path.MoveTo(start.X, start.Y)
	for i := 1; i <= len(poly); i++ {
		ctrl := poly[i%len(poly)]
		end := ctrl.Lerp(poly[(i+1)%len(poly)], 0.5)
		path.QuadraticTo(ctrl.X, ctrl.Y, end.X, end.Y)
	}
	path.Close()
	return path
}

func radiusFor(p PenPoint, size float64) float64 {
	pressure := p.Pressure
	if pressure <= 0 || math.IsNaN(pressure) {
		pressure = defaultPressure
	}
	pressure = math.Max(minPressure, math.Min(pressure, 1))
	return size * pressure / 2
}
