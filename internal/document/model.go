package document

import (
	"fmt"
	"slices"

	"github.com/inamate/whiteboard/internal/geometry"
)

// Kind is the type discriminator carried by every persisted layer.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindEllipse   Kind = "ellipse"
	KindText      Kind = "text"
	KindNote      Kind = "note"
	KindPath      Kind = "path"
	KindFrame     Kind = "frame"
)

// Kinds lists every recognized layer kind.
var Kinds = []Kind{KindRectangle, KindEllipse, KindText, KindNote, KindPath, KindFrame}

// Valid reports whether k is a recognized discriminator.
func (k Kind) Valid() bool {
	switch k {
	case KindRectangle, KindEllipse, KindText, KindNote, KindPath, KindFrame:
		return true
	}
	return false
}

// Color is an opaque RGB fill or stroke color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as a CSS hex string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Layer is one drawable object on the canvas. The set of implementations is
// closed: Rectangle, Ellipse, Text, Note, Path and Frame.
type Layer interface {
	Kind() Kind
	Bounds() geometry.Rect
	SetBounds(geometry.Rect)
	Clone() Layer
	isLayer()
}

// Box holds the absolute canvas bounds shared by all layers.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (b *Box) Bounds() geometry.Rect {
	return geometry.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

func (b *Box) SetBounds(r geometry.Rect) {
	b.X, b.Y, b.Width, b.Height = r.X, r.Y, r.Width, r.Height
}

func (*Box) isLayer() {}

// BoxFrom converts a rect into an embeddable Box.
func BoxFrom(r geometry.Rect) Box {
	return Box{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

type Rectangle struct {
	Box
	Fill  Color
	Value string
}

func (*Rectangle) Kind() Kind { return KindRectangle }

func (l *Rectangle) Clone() Layer {
	c := *l
	return &c
}

type Ellipse struct {
	Box
	Fill  Color
	Value string
}

func (*Ellipse) Kind() Kind { return KindEllipse }

func (l *Ellipse) Clone() Layer {
	c := *l
	return &c
}

type Text struct {
	Box
	Fill  Color
	Value string
}

func (*Text) Kind() Kind { return KindText }

func (l *Text) Clone() Layer {
	c := *l
	return &c
}

// Note is a sticky note.
type Note struct {
	Box
	Fill  Color
	Value string
}

func (*Note) Kind() Kind { return KindNote }

func (l *Note) Clone() Layer {
	c := *l
	return &c
}

// Path is a freehand stroke. Points are stored relative to the layer origin
// so translating the layer never rewrites the samples.
type Path struct {
	Box
	Fill   Color
	Points []geometry.PenPoint
}

func (*Path) Kind() Kind { return KindPath }

func (l *Path) Clone() Layer {
	c := *l
	c.Points = slices.Clone(l.Points)
	return &c
}

// AbsolutePoints returns the samples in canvas coordinates.
func (l *Path) AbsolutePoints() []geometry.PenPoint {
	out := make([]geometry.PenPoint, len(l.Points))
	for i, p := range l.Points {
		out[i] = geometry.PenPoint{X: l.X + p.X, Y: l.Y + p.Y, Pressure: p.Pressure}
	}
	return out
}

// Frame groups other layers. ChildIDs is the authoritative list of layers the
// frame clips and moves with it.
type Frame struct {
	Box
	Fill        *Color
	Stroke      *Color
	StrokeWidth float64
	Name        string
	ChildIDs    []string
}

func (*Frame) Kind() Kind { return KindFrame }

func (l *Frame) Clone() Layer {
	c := *l
	if l.Fill != nil {
		fill := *l.Fill
		c.Fill = &fill
	}
	if l.Stroke != nil {
		stroke := *l.Stroke
		c.Stroke = &stroke
	}
	c.ChildIDs = slices.Clone(l.ChildIDs)
	return &c
}

// HasChild reports whether id is in the frame's child list.
func (l *Frame) HasChild(id string) bool {
	for _, c := range l.ChildIDs {
		if c == id {
			return true
		}
	}
	return false
}

// RemoveChild drops id from the child list, keeping order.
func (l *Frame) RemoveChild(id string) bool {
	for i, c := range l.ChildIDs {
		if c == id {
			l.ChildIDs = append(l.ChildIDs[:i:i], l.ChildIDs[i+1:]...)
			return true
		}
	}
	return false
}

// FillOf returns the fill color of any layer. Frames without a fill report false.
func FillOf(l Layer) (Color, bool) {
	switch v := l.(type) {
	case *Rectangle:
		return v.Fill, true
	case *Ellipse:
		return v.Fill, true
	case *Text:
		return v.Fill, true
	case *Note:
		return v.Fill, true
	case *Path:
		return v.Fill, true
	case *Frame:
		if v.Fill == nil {
			return Color{}, false
		}
		return *v.Fill, true
	}
	return Color{}, false
}

// TextOf returns the editable text value of text-bearing layers.
func TextOf(l Layer) (string, bool) {
	switch v := l.(type) {
	case *Rectangle:
		return v.Value, true
	case *Ellipse:
		return v.Value, true
	case *Text:
		return v.Value, true
	case *Note:
		return v.Value, true
	case *Path, *Frame:
		return "", false
	}
	return "", false
}

// IsTextBearing reports whether l carries an in-place editable value.
func IsTextBearing(l Layer) bool {
	_, ok := TextOf(l)
	return ok
}
