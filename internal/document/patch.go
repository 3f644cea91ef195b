package document

import "github.com/inamate/whiteboard/internal/geometry"

// Patch is a partial update. Nil fields are left untouched and fields that do
// not apply to the target kind are ignored.
type Patch struct {
	Bounds      *geometry.Rect `json:"bounds,omitempty"`
	Fill        *Color         `json:"fill,omitempty"`
	Stroke      *Color         `json:"stroke,omitempty"`
	StrokeWidth *float64       `json:"strokeWidth,omitempty"`
	Value       *string        `json:"value,omitempty"`
	Name        *string        `json:"name,omitempty"`
}

// Apply mutates l in place and reports whether anything changed.
// Degenerate bounds (non-finite or non-positive size) are skipped.
func (p Patch) Apply(l Layer) bool {
	changed := false

	if p.Bounds != nil && ValidBounds(*p.Bounds) && l.Bounds() != *p.Bounds {
		if path, ok := l.(*Path); ok {
			ScalePath(path, *p.Bounds)
		} else {
			l.SetBounds(*p.Bounds)
		}
		changed = true
	}
	if p.Fill != nil {
		changed = SetFill(l, *p.Fill) || changed
	}
	if p.Value != nil {
		changed = SetText(l, *p.Value) || changed
	}

	if f, ok := l.(*Frame); ok {
		if p.Stroke != nil {
			stroke := *p.Stroke
			f.Stroke = &stroke
			changed = true
		}
		if p.StrokeWidth != nil && *p.StrokeWidth >= 0 {
			f.StrokeWidth = *p.StrokeWidth
			changed = true
		}
		if p.Name != nil && f.Name != *p.Name {
			f.Name = *p.Name
			changed = true
		}
	}

	return changed
}

// ValidBounds reports whether r is usable as layer geometry.
func ValidBounds(r geometry.Rect) bool {
	return r.IsFinite() && !r.IsEmpty()
}

// SetFill recolors any layer kind.
func SetFill(l Layer, c Color) bool {
	switch v := l.(type) {
	case *Rectangle:
		v.Fill = c
	case *Ellipse:
		v.Fill = c
	case *Text:
		v.Fill = c
	case *Note:
		v.Fill = c
	case *Path:
		v.Fill = c
	case *Frame:
		fill := c
		v.Fill = &fill
	default:
		return false
	}
	return true
}

// SetText replaces the value of a text-bearing layer.
func SetText(l Layer, value string) bool {
	switch v := l.(type) {
	case *Rectangle:
		v.Value = value
	case *Ellipse:
		v.Value = value
	case *Text:
		v.Value = value
	case *Note:
		v.Value = value
	case *Path, *Frame:
		return false
	default:
		return false
	}
	return true
}

// ScalePath moves a stroke into new bounds, scaling its relative samples so
// the drawing stretches with the box.
func ScalePath(p *Path, to geometry.Rect) {
	sx, sy := 1.0, 1.0
	if p.Width > 0 {
		sx = to.Width / p.Width
	}
	if p.Height > 0 {
		sy = to.Height / p.Height
	}
	for i := range p.Points {
		p.Points[i].X *= sx
		p.Points[i].Y *= sy
	}
	p.SetBounds(to)
}
