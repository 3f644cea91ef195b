package geometry

import "fmt"

// Side is a bit set naming the edges a resize handle controls.
// Corner handles combine two sides, edge handles use one.
type Side uint8

const (
	SideTop    Side = 1
	SideBottom Side = 2
	SideLeft   Side = 4
	SideRight  Side = 8

	CornerTopLeft     = SideTop | SideLeft
	CornerTopRight    = SideTop | SideRight
	CornerBottomLeft  = SideBottom | SideLeft
	CornerBottomRight = SideBottom | SideRight
)

// Valid reports whether s names at least one side and never two opposite ones.
func (s Side) Valid() bool {
	if s == 0 || s&^(SideTop|SideBottom|SideLeft|SideRight) != 0 {
		return false
	}
	if s&SideTop != 0 && s&SideBottom != 0 {
		return false
	}
	return !(s&SideLeft != 0 && s&SideRight != 0)
}

var sideNames = map[string]Side{
	"top":          SideTop,
	"bottom":       SideBottom,
	"left":         SideLeft,
	"right":        SideRight,
	"top-left":     CornerTopLeft,
	"top-right":    CornerTopRight,
	"bottom-left":  CornerBottomLeft,
	"bottom-right": CornerBottomRight,
}

// ParseSide maps a handle name such as "top" or "bottom-right" to a Side.
func ParseSide(name string) (Side, error) {
	s, ok := sideNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown resize handle %q", name)
	}
	return s, nil
}

// ResizeBounds returns the rectangle obtained by dragging the given sides of
// bounds to point while the opposite sides stay fixed. Dragging past the
// fixed side flips the rectangle instead of producing a negative size.
func ResizeBounds(bounds Rect, side Side, point Point) Rect {
	result := bounds

	if side&SideLeft != 0 {
		fixed := bounds.Right()
		result.X = min(point.X, fixed)
		result.Width = abs(fixed - point.X)
	}
	if side&SideRight != 0 {
		fixed := bounds.X
		result.X = min(point.X, fixed)
		result.Width = abs(point.X - fixed)
	}
	if side&SideTop != 0 {
		fixed := bounds.Bottom()
		result.Y = min(point.Y, fixed)
		result.Height = abs(fixed - point.Y)
	}
	if side&SideBottom != 0 {
		fixed := bounds.Y
		result.Y = min(point.Y, fixed)
		result.Height = abs(point.Y - fixed)
	}

	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
