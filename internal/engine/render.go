package engine

import (
	"github.com/gogpu/gg"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geometry"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string         `json:"op"`                    // Operation: "path", "text", "save", "restore", "clip"
	LayerID     string         `json:"layerId,omitempty"`     // For hit correlation
	Kind        document.Kind  `json:"kind,omitempty"`        // Layer kind the command was built from
	Transform   []float64      `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand  `json:"path,omitempty"`        // Path data for "path" and "clip" ops
	Fill        string         `json:"fill,omitempty"`        // Fill color
	Stroke      string         `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64        `json:"strokeWidth,omitempty"` // Stroke width
	Text        string         `json:"text,omitempty"`        // Value for "text" ops
	Bounds      *geometry.Rect `json:"bounds,omitempty"`      // Text box in layer space
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Q", cx, cy, x, y],
// ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []interface{}

const noteCornerRadius = 6

// RenderList compiles the document into draw commands in draw order (back
// to front), the same order hit testing walks. A frame child keeps its own
// slot and is wrapped in a save/clip/restore group clipped to its frame.
func (s *Store) RenderList() []DrawCommand {
	var commands []DrawCommand
	parents := s.parentIndex()

	for _, id := range s.order {
		parentID, owned := parents[id]
		frame, isFrame := s.layers[parentID].(*document.Frame)
		if !owned || !isFrame {
			compileLayer(id, s.layers[id], &commands)
			continue
		}
		commands = append(commands, DrawCommand{Op: "save"})
		commands = append(commands, DrawCommand{
			Op:        "clip",
			LayerID:   parentID,
			Transform: geometry.Translate(frame.X, frame.Y).ToSlice(),
			Path:      rectPath(frame.Width, frame.Height),
		})
		compileLayer(id, s.layers[id], &commands)
		commands = append(commands, DrawCommand{Op: "restore"})
	}
	return commands
}

// compileLayer emits the commands for one layer in layer-local space.
func compileLayer(id string, l document.Layer, commands *[]DrawCommand) {
	b := l.Bounds()
	transform := geometry.Translate(b.X, b.Y).ToSlice()
	fill, hasFill := document.FillOf(l)

	cmd := DrawCommand{Op: "path", LayerID: id, Kind: l.Kind(), Transform: transform}
	if hasFill {
		cmd.Fill = fill.Hex()
	}

	switch v := l.(type) {
	case *document.Rectangle:
		cmd.Path = rectPath(b.Width, b.Height)
	case *document.Ellipse:
		cmd.Path = ellipsePath(b.Width, b.Height)
	case *document.Note:
		cmd.Path = notePath(b.Width, b.Height)
	case *document.Frame:
		cmd.Path = rectPath(b.Width, b.Height)
		if v.Stroke != nil {
			cmd.Stroke = v.Stroke.Hex()
			cmd.StrokeWidth = v.StrokeWidth
		}
		if !hasFill && v.Stroke == nil {
			cmd.Stroke = "#cccccc"
			cmd.StrokeWidth = 1
		}
	case *document.Path:
		cmd.Path = toPathCommands(geometry.StrokeOutline(v.Points, geometry.StrokeSize))
	case *document.Text:
		// text only
	}

	if len(cmd.Path) > 0 {
		*commands = append(*commands, cmd)
	}

	if text, ok := document.TextOf(l); ok && text != "" {
		*commands = append(*commands, DrawCommand{
			Op:        "text",
			LayerID:   id,
			Kind:      l.Kind(),
			Transform: transform,
			Text:      text,
			Fill:      textColor(l, fill),
			Bounds:    &geometry.Rect{Width: b.Width, Height: b.Height},
		})
	}
}

// textColor keeps labels readable on filled shapes; bare text uses its fill.
func textColor(l document.Layer, fill document.Color) string {
	if l.Kind() == document.KindText {
		return fill.Hex()
	}
	if int(fill.R)*299+int(fill.G)*587+int(fill.B)*114 > 128000 {
		return "#000000"
	}
	return "#ffffff"
}

func rectPath(w, h float64) []PathCommand {
	p := gg.NewPath()
	p.Rectangle(0, 0, w, h)
	return toPathCommands(p)
}

func ellipsePath(w, h float64) []PathCommand {
	p := gg.NewPath()
	p.Ellipse(w/2, h/2, w/2, h/2)
	return toPathCommands(p)
}

func notePath(w, h float64) []PathCommand {
	p := gg.NewPath()
	p.RoundedRectangle(0, 0, w, h, noteCornerRadius)
	return toPathCommands(p)
}

func toPathCommands(p *gg.Path) []PathCommand {
	elems := p.Elements()
	out := make([]PathCommand, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case gg.MoveTo:
			out = append(out, PathCommand{"M", v.Point.X, v.Point.Y})
		case gg.LineTo:
			out = append(out, PathCommand{"L", v.Point.X, v.Point.Y})
		case gg.QuadTo:
			out = append(out, PathCommand{"Q", v.Control.X, v.Control.Y, v.Point.X, v.Point.Y})
		case gg.CubicTo:
			out = append(out, PathCommand{"C", v.Control1.X, v.Control1.Y, v.Control2.X, v.Control2.Y, v.Point.X, v.Point.Y})
		case gg.Close:
			out = append(out, PathCommand{"Z"})
		}
	}
	return out
}
