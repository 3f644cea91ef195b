package engine

import (
	"errors"
	"slices"
	"time"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geometry"
	"github.com/inamate/whiteboard/internal/typeid"
)

var (
	// ErrLayerLimit is returned when an insert would exceed Options.MaxLayers.
	ErrLayerLimit = errors.New("engine: layer limit reached")

	// ErrInvalidLayer is returned for nil layers or unusable geometry.
	ErrInvalidLayer = errors.New("engine: invalid layer")
)

const (
	DefaultMaxLayers     = 100
	DefaultHistoryLimit  = 50
	DefaultFrameCacheTTL = 250 * time.Millisecond
)

// Options tunes a Store and the History layered on top of it.
type Options struct {
	MaxLayers     int
	HistoryLimit  int
	FrameCacheTTL time.Duration

	// NewID and Now are overridable for tests.
	NewID func() string
	Now   func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxLayers <= 0 {
		o.MaxLayers = DefaultMaxLayers
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.FrameCacheTTL <= 0 {
		o.FrameCacheTTL = DefaultFrameCacheTTL
	}
	if o.NewID == nil {
		o.NewID = typeid.NewLayerID
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Store is the authoritative layer map plus draw order. It owns every
// mutation primitive and the derived frame indices. Unknown ids are ignored
// by all operations.
type Store struct {
	opts Options

	layers    map[string]document.Layer
	order     []string
	selection []string

	// version changes on every structural edit the frame index cannot
	// follow incrementally.
	version uint64
	index   frameIndex
	frames  framesCache
}

func NewStore(opts Options) *Store {
	return &Store{
		opts:   opts.withDefaults(),
		layers: map[string]document.Layer{},
	}
}

// Layer returns the live layer for id. Callers must not mutate it.
func (s *Store) Layer(id string) (document.Layer, bool) {
	l, ok := s.layers[id]
	return l, ok
}

func (s *Store) Has(id string) bool {
	_, ok := s.layers[id]
	return ok
}

// IDs returns a copy of the draw order, back to front.
func (s *Store) IDs() []string { return slices.Clone(s.order) }

func (s *Store) Len() int { return len(s.order) }

func (s *Store) MaxLayers() int { return s.opts.MaxLayers }

// Insert adds a copy of l under a fresh id. Frames go to the back of the
// draw order, everything else to the front. The new layer becomes the sole
// selection. Children listed on an inserted frame are ignored; membership is
// decided by the containment policy.
func (s *Store) Insert(l document.Layer) (string, error) {
	if l == nil {
		return "", ErrInvalidLayer
	}
	if len(s.order) >= s.opts.MaxLayers {
		return "", ErrLayerLimit
	}

	id := s.opts.NewID()
	layer := l.Clone()
	s.layers[id] = layer

	if f, ok := layer.(*document.Frame); ok {
		f.ChildIDs = nil
		s.order = slices.Insert(s.order, 0, id)
		s.frames.invalidate()
		s.touch()
	} else {
		s.order = append(s.order, id)
	}

	s.selection = []string{id}
	return id, nil
}

// Update applies a partial patch to one layer.
func (s *Store) Update(id string, p document.Patch) bool {
	l, ok := s.layers[id]
	if !ok {
		return false
	}
	return p.Apply(l)
}

// Delete removes one layer. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) bool {
	return s.DeleteMany([]string{id}) > 0
}

// DeleteMany removes the given layers from the map, the draw order and the
// selection, and severs every frame relation they take part in. It returns
// the number of layers actually removed.
func (s *Store) DeleteMany(ids []string) int {
	doomed := map[string]bool{}
	for _, id := range ids {
		if _, ok := s.layers[id]; ok {
			doomed[id] = true
		}
	}
	if len(doomed) == 0 {
		return 0
	}

	parents := s.parentIndex()
	frameRemoved := false
	for id := range doomed {
		if p, ok := parents[id]; ok {
			if !doomed[p] {
				s.layers[p].(*document.Frame).RemoveChild(id)
			}
			delete(parents, id)
		}
		if _, ok := s.layers[id].(*document.Frame); ok {
			frameRemoved = true
		}
		delete(s.layers, id)
	}

	s.order = slices.DeleteFunc(s.order, func(id string) bool { return doomed[id] })
	s.selection = slices.DeleteFunc(s.selection, func(id string) bool { return doomed[id] })
	if frameRemoved {
		s.frames.invalidate()
		s.touch()
	}
	return len(doomed)
}

// BringToFront moves id to the end of the draw order.
func (s *Store) BringToFront(id string) bool {
	i := slices.Index(s.order, id)
	if i < 0 || i == len(s.order)-1 {
		return false
	}
	s.order = append(slices.Delete(s.order, i, i+1), id)
	s.reordered(id)
	return true
}

// SendToBack moves id to the start of the draw order.
func (s *Store) SendToBack(id string) bool {
	i := slices.Index(s.order, id)
	if i <= 0 {
		return false
	}
	s.order = slices.Insert(slices.Delete(s.order, i, i+1), 0, id)
	s.reordered(id)
	return true
}

func (s *Store) reordered(id string) {
	if _, ok := s.layers[id].(*document.Frame); ok {
		s.frames.invalidate()
	}
}

// TranslateMany moves the given layers by (dx, dy). Frames drag their
// direct children along; each layer moves once even when named twice.
func (s *Store) TranslateMany(ids []string, dx, dy float64) bool {
	moved := false
	for _, id := range s.expandFrames(ids) {
		l := s.layers[id]
		l.SetBounds(l.Bounds().Translate(dx, dy))
		moved = true
	}
	return moved && (dx != 0 || dy != 0)
}

// expandFrames returns the known ids plus the children of any frame among
// them, deduplicated and in input order.
func (s *Store) expandFrames(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	add := func(id string) {
		if _, ok := s.layers[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range ids {
		add(id)
		if f, ok := s.layers[id].(*document.Frame); ok {
			for _, c := range f.ChildIDs {
				add(c)
			}
		}
	}
	return out
}

// Resize sets new bounds on a single layer. Path samples scale with the box.
// Children of a resized frame are left where they are.
func (s *Store) Resize(id string, bounds geometry.Rect) bool {
	l, ok := s.layers[id]
	if !ok || !document.ValidBounds(bounds) || l.Bounds() == bounds {
		return false
	}
	if p, ok := l.(*document.Path); ok {
		document.ScalePath(p, bounds)
	} else {
		l.SetBounds(bounds)
	}
	return true
}

// Recolor sets the fill color of a single layer.
func (s *Store) Recolor(id string, c document.Color) bool {
	l, ok := s.layers[id]
	if !ok {
		return false
	}
	return document.SetFill(l, c)
}

// Select replaces the selection with the known ids among ids.
func (s *Store) Select(ids []string) {
	sel := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.layers[id]; ok && !slices.Contains(sel, id) {
			sel = append(sel, id)
		}
	}
	s.selection = sel
}

// Selection returns a copy of the selected ids.
func (s *Store) Selection() []string { return slices.Clone(s.selection) }

func (s *Store) IsSelected(id string) bool { return slices.Contains(s.selection, id) }

// Snapshot returns a deep copy of the document.
func (s *Store) Snapshot() *document.Document {
	doc := &document.Document{
		Layers:   make(map[string]document.Layer, len(s.layers)),
		LayerIDs: slices.Clone(s.order),
	}
	if doc.LayerIDs == nil {
		doc.LayerIDs = []string{}
	}
	for id, l := range s.layers {
		doc.Layers[id] = l.Clone()
	}
	return doc
}

// Restore replaces the whole document with a deep copy of doc and prunes the
// selection to surviving ids.
func (s *Store) Restore(doc *document.Document) {
	if doc == nil {
		doc = document.New()
	}
	clone := doc.Clone()
	s.layers = clone.Layers
	s.order = clone.LayerIDs
	s.selection = slices.DeleteFunc(s.selection, func(id string) bool {
		_, ok := s.layers[id]
		return !ok
	})
	s.frames.invalidate()
	s.touch()
}

func (s *Store) touch() { s.version++ }
