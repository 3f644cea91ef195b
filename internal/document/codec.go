package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/inamate/whiteboard/internal/geometry"
)

// ErrStructural marks a document that cannot be loaded as a whole.
var ErrStructural = errors.New("document: structural violation")

// StructuralError describes why a persisted document was rejected.
type StructuralError struct {
	LayerID string
	Reason  string
}

func (e *StructuralError) Error() string {
	if e.LayerID == "" {
		return "document: " + e.Reason
	}
	return fmt.Sprintf("document: layer %q: %s", e.LayerID, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

func structural(id, format string, args ...any) error {
	return &StructuralError{LayerID: id, Reason: fmt.Sprintf(format, args...)}
}

// Document is the persisted canvas: every layer keyed by id plus the draw
// order, first drawn first.
type Document struct {
	Layers   map[string]Layer
	LayerIDs []string
}

func New() *Document {
	return &Document{Layers: map[string]Layer{}, LayerIDs: []string{}}
}

func (d *Document) Len() int { return len(d.LayerIDs) }

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{
		Layers:   make(map[string]Layer, len(d.Layers)),
		LayerIDs: append([]string{}, d.LayerIDs...),
	}
	for id, l := range d.Layers {
		out.Layers[id] = l.Clone()
	}
	return out
}

type wireColor struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

type wireLayer struct {
	Type        Kind        `json:"type"`
	X           *float64    `json:"x"`
	Y           *float64    `json:"y"`
	Width       *float64    `json:"width"`
	Height      *float64    `json:"height"`
	Fill        *wireColor  `json:"fill,omitempty"`
	Stroke      *wireColor  `json:"stroke,omitempty"`
	StrokeWidth *float64    `json:"strokeWidth,omitempty"`
	Value       *string     `json:"value,omitempty"`
	Name        *string     `json:"name,omitempty"`
	Points      [][]float64 `json:"points,omitempty"`
	ChildIDs    []string    `json:"childIds,omitempty"`
}

type wireDocument struct {
	Layers   map[string]json.RawMessage `json:"layers"`
	LayerIDs []string                   `json:"layerIds"`
}

// Parse decodes and validates a persisted document. Missing top-level keys
// read as empty; anything else that is malformed rejects the whole payload.
func Parse(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &StructuralError{Reason: "malformed json: " + err.Error()}
	}

	doc := New()
	for id, raw := range w.Layers {
		l, err := decodeLayer(id, raw)
		if err != nil {
			return nil, err
		}
		doc.Layers[id] = l
	}
	if w.LayerIDs != nil {
		doc.LayerIDs = w.LayerIDs
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// MarshalJSON encodes the document in its persisted shape.
func (d *Document) MarshalJSON() ([]byte, error) {
	layers := make(map[string]wireLayer, len(d.Layers))
	for id, l := range d.Layers {
		layers[id] = encodeLayer(l)
	}
	ids := d.LayerIDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(struct {
		Layers   map[string]wireLayer `json:"layers"`
		LayerIDs []string             `json:"layerIds"`
	}{layers, ids})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Validate checks the structural invariants: the draw order and the layer
// map hold the same ids exactly once, geometry is usable, and every frame
// child exists, is not a frame, and belongs to a single frame.
func (d *Document) Validate() error {
	if len(d.LayerIDs) != len(d.Layers) {
		return structural("", "layerIds has %d entries for %d layers", len(d.LayerIDs), len(d.Layers))
	}
	seen := make(map[string]bool, len(d.LayerIDs))
	for _, id := range d.LayerIDs {
		if seen[id] {
			return structural(id, "duplicated in layerIds")
		}
		seen[id] = true
		if _, ok := d.Layers[id]; !ok {
			return structural(id, "listed in layerIds but missing from layers")
		}
	}

	parent := map[string]string{}
	for _, id := range d.LayerIDs {
		l := d.Layers[id]
		if !ValidBounds(l.Bounds()) {
			return structural(id, "invalid bounds %+v", l.Bounds())
		}
		f, ok := l.(*Frame)
		if !ok {
			continue
		}
		for _, child := range f.ChildIDs {
			cl, ok := d.Layers[child]
			if !ok {
				return structural(id, "child %q does not exist", child)
			}
			if cl.Kind() == KindFrame {
				return structural(id, "frame %q cannot be nested", child)
			}
			if p, dup := parent[child]; dup {
				return structural(child, "claimed by frames %q and %q", p, id)
			}
			parent[child] = id
		}
	}
	return nil
}

func decodeLayer(id string, raw json.RawMessage) (Layer, error) {
	var w wireLayer
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, structural(id, "malformed layer: %v", err)
	}
	if !w.Type.Valid() {
		return nil, structural(id, "unknown layer type %q", w.Type)
	}
	if w.X == nil || w.Y == nil || w.Width == nil || w.Height == nil {
		return nil, structural(id, "missing geometry")
	}
	box := Box{X: *w.X, Y: *w.Y, Width: *w.Width, Height: *w.Height}

	if w.Type == KindFrame {
		f := &Frame{Box: box, ChildIDs: slices.Clone(w.ChildIDs)}
		if w.Fill != nil {
			c, err := w.Fill.color(id)
			if err != nil {
				return nil, err
			}
			f.Fill = &c
		}
		if w.Stroke != nil {
			c, err := w.Stroke.color(id)
			if err != nil {
				return nil, err
			}
			f.Stroke = &c
		}
		if w.StrokeWidth != nil {
			if *w.StrokeWidth < 0 || math.IsNaN(*w.StrokeWidth) {
				return nil, structural(id, "negative strokeWidth")
			}
			f.StrokeWidth = *w.StrokeWidth
		}
		if w.Name != nil {
			f.Name = *w.Name
		}
		return f, nil
	}

	if w.Fill == nil {
		return nil, structural(id, "missing fill")
	}
	fill, err := w.Fill.color(id)
	if err != nil {
		return nil, err
	}
	value := ""
	if w.Value != nil {
		value = *w.Value
	}

	switch w.Type {
	case KindRectangle:
		return &Rectangle{Box: box, Fill: fill, Value: value}, nil
	case KindEllipse:
		return &Ellipse{Box: box, Fill: fill, Value: value}, nil
	case KindText:
		return &Text{Box: box, Fill: fill, Value: value}, nil
	case KindNote:
		return &Note{Box: box, Fill: fill, Value: value}, nil
	}

	if len(w.Points) == 0 {
		return nil, structural(id, "path without points")
	}
	points := make([]geometry.PenPoint, len(w.Points))
	for i, p := range w.Points {
		if len(p) != 3 {
			return nil, structural(id, "point %d has %d components, want 3", i, len(p))
		}
		points[i] = geometry.PenPoint{X: p[0], Y: p[1], Pressure: p[2]}
	}
	return &Path{Box: box, Fill: fill, Points: points}, nil
}

func (c wireColor) color(id string) (Color, error) {
	var out [3]uint8
	for i, v := range [3]*int{c.R, c.G, c.B} {
		if v == nil || *v < 0 || *v > 255 {
			return Color{}, structural(id, "color channel out of range")
		}
		out[i] = uint8(*v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}

func toWireColor(c Color) *wireColor {
	r, g, b := int(c.R), int(c.G), int(c.B)
	return &wireColor{R: &r, G: &g, B: &b}
}

func encodeLayer(l Layer) wireLayer {
	b := l.Bounds()
	w := wireLayer{Type: l.Kind(), X: &b.X, Y: &b.Y, Width: &b.Width, Height: &b.Height}

	switch v := l.(type) {
	case *Frame:
		if v.Fill != nil {
			w.Fill = toWireColor(*v.Fill)
		}
		if v.Stroke != nil {
			w.Stroke = toWireColor(*v.Stroke)
		}
		if v.StrokeWidth > 0 {
			sw := v.StrokeWidth
			w.StrokeWidth = &sw
		}
		if v.Name != "" {
			name := v.Name
			w.Name = &name
		}
		w.ChildIDs = v.ChildIDs
	case *Path:
		w.Fill = toWireColor(v.Fill)
		w.Points = make([][]float64, len(v.Points))
		for i, p := range v.Points {
			w.Points[i] = []float64{p.X, p.Y, p.Pressure}
		}
	default:
		fill, _ := FillOf(l)
		w.Fill = toWireColor(fill)
		if text, ok := TextOf(l); ok && text != "" {
			w.Value = &text
		}
	}
	return w
}
