package interaction

import (
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/inamate/whiteboard/internal/geometry"
)

const (
	MinZoom = 0.1
	MaxZoom = 5.0

	// FrameInterval is the minimum spacing between applied camera updates.
	FrameInterval = 16 * time.Millisecond
)

// Camera is the viewport transform: canvas point p appears on screen at
// p*Zoom + (X, Y). Continuous pan and zoom input is throttled to one applied
// update per FrameInterval; input arriving in between is accumulated.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`

	limiter *rate.Limiter
	now     func() time.Time

	pending  bool
	panDX    float64
	panDY    float64
	zoomBy   float64
	anchor   geometry.Point
	zoomSeen bool
}

func NewCamera() *Camera {
	return newCamera(time.Now)
}

// NewCameraWithClock creates a camera whose throttle reads time from now.
func NewCameraWithClock(now func() time.Time) *Camera {
	if now == nil {
		now = time.Now
	}
	return newCamera(now)
}

func newCamera(now func() time.Time) *Camera {
	return &Camera{
		Zoom:    1,
		limiter: rate.NewLimiter(rate.Every(FrameInterval), 1),
		now:     now,
		zoomBy:  1,
	}
}

// Matrix maps canvas space to screen space.
func (c *Camera) Matrix() geometry.Matrix2D {
	return geometry.Translate(c.X, c.Y).Multiply(geometry.Scale(c.Zoom, c.Zoom))
}

func (c *Camera) ScreenToCanvas(p geometry.Point) geometry.Point {
	return c.Matrix().Invert().Apply(p)
}

func (c *Camera) CanvasToScreen(p geometry.Point) geometry.Point {
	return c.Matrix().Apply(p)
}

// Pan shifts the view by a screen-space delta. It reports whether the
// camera changed now; a throttled delta is applied by a later call or Flush.
func (c *Camera) Pan(dx, dy float64) bool {
	c.panDX += dx
	c.panDY += dy
	c.pending = true
	return c.maybeApply()
}

// ZoomAt scales the view by factor while keeping the canvas point under the
// screen point anchor fixed.
func (c *Camera) ZoomAt(anchor geometry.Point, factor float64) bool {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return false
	}
	c.zoomBy *= factor
	c.anchor = anchor
	c.zoomSeen = true
	c.pending = true
	return c.maybeApply()
}

// Flush applies any accumulated input regardless of the throttle.
func (c *Camera) Flush() bool {
	if !c.pending {
		return false
	}
	c.apply()
	return true
}

// Reset returns to the identity view and drops pending input.
func (c *Camera) Reset() {
	c.X, c.Y, c.Zoom = 0, 0, 1
	c.clearPending()
}

func (c *Camera) maybeApply() bool {
	if !c.limiter.AllowN(c.now(), 1) {
		return false
	}
	c.apply()
	return true
}

func (c *Camera) apply() {
	c.X += c.panDX
	c.Y += c.panDY

	if c.zoomSeen {
		focus := c.ScreenToCanvas(c.anchor)
		c.Zoom = clampZoom(c.Zoom * c.zoomBy)
		c.X = c.anchor.X - focus.X*c.Zoom
		c.Y = c.anchor.Y - focus.Y*c.Zoom
	}
	c.clearPending()
}

func (c *Camera) clearPending() {
	c.pending = false
	c.panDX, c.panDY = 0, 0
	c.zoomBy = 1
	c.zoomSeen = false
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
