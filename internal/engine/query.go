package engine

import (
	"slices"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geometry"
)

// adoptThreshold is the share of a layer's area a frame must cover to own it.
const adoptThreshold = 0.5

// BoundingBoxOf returns the smallest box enclosing the given layers.
// It reports false when none of the ids are known.
func BoundingBoxOf(layers map[string]document.Layer, ids []string) (geometry.Rect, bool) {
	var (
		box   geometry.Rect
		found bool
	)
	for _, id := range ids {
		l, ok := layers[id]
		if !ok {
			continue
		}
		if !found {
			box = l.Bounds()
			found = true
			continue
		}
		box = box.Union(l.Bounds())
	}
	return box, found
}

// Intersecting returns the candidates whose bounds overlap the rectangle
// spanned by corners a and b, in candidate order. Frames are only picked up
// when already selected, so a marquee passes through an unselected frame to
// its contents. A zero-area rectangle selects nothing.
func Intersecting(layers map[string]document.Layer, candidates []string, a, b geometry.Point, selected []string) []string {
	rect := geometry.FromCorners(a, b)
	if rect.IsEmpty() {
		return nil
	}

	var ids []string
	for _, id := range candidates {
		l, ok := layers[id]
		if !ok {
			continue
		}
		if l.Kind() == document.KindFrame && !slices.Contains(selected, id) {
			continue
		}
		if rect.Intersects(l.Bounds()) {
			ids = append(ids, id)
		}
	}
	return ids
}

// BestContainingFrame returns the frame covering the largest share of bounds
// when that share exceeds one half. frames must be in draw order; on a tie
// the later (topmost) frame wins.
func BestContainingFrame(layers map[string]document.Layer, bounds geometry.Rect, frames []string) (string, bool) {
	best, bestRatio := "", adoptThreshold
	for _, id := range frames {
		f, ok := layers[id].(*document.Frame)
		if !ok {
			continue
		}
		ratio := geometry.OverlapRatio(bounds, f.Bounds())
		if ratio > adoptThreshold && ratio >= bestRatio {
			best, bestRatio = id, ratio
		}
	}
	return best, best != ""
}

// HitTest returns the topmost layer containing p. Frames are only hit where
// no other layer is.
func (s *Store) HitTest(p geometry.Point) (string, bool) {
	var frame string
	for i := len(s.order) - 1; i >= 0; i-- {
		id := s.order[i]
		l := s.layers[id]
		if !l.Bounds().Contains(p) {
			continue
		}
		if l.Kind() != document.KindFrame {
			return id, true
		}
		if frame == "" {
			frame = id
		}
	}
	return frame, frame != ""
}

// SelectionBounds returns the bounding box of the current selection.
func (s *Store) SelectionBounds() (geometry.Rect, bool) {
	return BoundingBoxOf(s.layers, s.selection)
}

// Intersecting runs a marquee query over every layer against the current
// selection.
func (s *Store) Intersecting(a, b geometry.Point) []string {
	return Intersecting(s.layers, s.order, a, b, s.selection)
}
