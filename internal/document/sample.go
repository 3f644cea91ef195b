package document

import (
	"github.com/inamate/whiteboard/internal/geometry"
	"github.com/inamate/whiteboard/internal/typeid"
)

var (
	noteYellow = Color{R: 255, G: 249, B: 177}
	notePink   = Color{R: 255, G: 198, B: 198}
	slate      = Color{R: 68, G: 68, B: 68}
	sky        = Color{R: 90, G: 155, B: 230}
	frameFill  = Color{R: 245, G: 245, B: 245}
)

// NewSampleDocument returns the board shown to new users: a titled frame with
// two sticky notes, plus a loose shape and a scribble outside it.
func NewSampleDocument() *Document {
	frameID := typeid.NewLayerID()
	titleID := typeid.NewLayerID()
	note1ID := typeid.NewLayerID()
	note2ID := typeid.NewLayerID()
	ellipseID := typeid.NewLayerID()
	pathID := typeid.NewLayerID()

	fill := frameFill
	points := []geometry.PenPoint{
		{X: 0, Y: 40, Pressure: 0.5},
		{X: 40, Y: 10, Pressure: 0.6},
		{X: 80, Y: 40, Pressure: 0.7},
		{X: 120, Y: 10, Pressure: 0.5},
	}
	scribble := geometry.StrokeBounds(points)
	for i := range points {
		points[i].X -= scribble.X
		points[i].Y -= scribble.Y
	}
	scribble = scribble.Translate(560, 360)

	return &Document{
		Layers: map[string]Layer{
			frameID: &Frame{
				Box:         Box{X: 40, Y: 40, Width: 480, Height: 320},
				Fill:        &fill,
				StrokeWidth: 1,
				Name:        "Ideas",
				ChildIDs:    []string{titleID, note1ID, note2ID},
			},
			titleID: &Text{
				Box:   Box{X: 64, Y: 56, Width: 240, Height: 40},
				Fill:  slate,
				Value: "Brainstorm",
			},
			note1ID: &Note{
				Box:   Box{X: 64, Y: 120, Width: 180, Height: 180},
				Fill:  noteYellow,
				Value: "Ship the canvas",
			},
			note2ID: &Note{
				Box:   Box{X: 280, Y: 120, Width: 180, Height: 180},
				Fill:  notePink,
				Value: "Undo everything",
			},
			ellipseID: &Ellipse{
				Box:  Box{X: 600, Y: 80, Width: 160, Height: 120},
				Fill: sky,
			},
			pathID: &Path{
				Box:    BoxFrom(scribble),
				Fill:   slate,
				Points: points,
			},
		},
		LayerIDs: []string{frameID, titleID, note1ID, note2ID, ellipseID, pathID},
	}
}
