package interaction

import (
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geometry"
)

var (
	shapeFill = document.Color{R: 217, G: 217, B: 217}
	noteFill  = document.Color{R: 255, G: 230, B: 153}
	textFill  = document.Color{R: 0, G: 0, B: 0}
)

var shapeSizes = map[document.Kind][2]float64{
	document.KindRectangle: {100, 100},
	document.KindEllipse:   {100, 100},
	document.KindText:      {100, 40},
	document.KindNote:      {200, 200},
	document.KindFrame:     {400, 300},
}

// newShape builds a default layer of kind with its top-left corner at p.
// It returns nil for kinds that cannot be placed with a click.
func newShape(kind document.Kind, p geometry.Point) document.Layer {
	size, ok := shapeSizes[kind]
	if !ok {
		return nil
	}
	box := document.Box{X: p.X, Y: p.Y, Width: size[0], Height: size[1]}

	switch kind {
	case document.KindRectangle:
		return &document.Rectangle{Box: box, Fill: shapeFill}
	case document.KindEllipse:
		return &document.Ellipse{Box: box, Fill: shapeFill}
	case document.KindText:
		return &document.Text{Box: box, Fill: textFill, Value: "Text"}
	case document.KindNote:
		return &document.Note{Box: box, Fill: noteFill}
	case document.KindFrame:
		white := document.Color{R: 255, G: 255, B: 255}
		return &document.Frame{Box: box, Fill: &white, Name: "Frame"}
	}
	return nil
}
