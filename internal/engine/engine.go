package engine

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geometry"
)

// ChangeFunc receives a deep snapshot of the document after every change.
type ChangeFunc func(doc *document.Document)

// Engine owns one canvas document: the layer store, the undo history and
// the change subscribers. Methods named after an edit checkpoint before
// mutating; the *Live variants do not and are meant for gestures that
// checkpoint once up front.
type Engine struct {
	store   *Store
	history *History

	subscribers map[int]ChangeFunc
	nextSub     int
}

// New creates an engine holding an empty document.
func New(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		store:       NewStore(opts),
		history:     NewHistory(opts.HistoryLimit),
		subscribers: map[int]ChangeFunc{},
	}
}

// --- Lifecycle ---

// Load replaces the document with the serialized one and clears history.
// A payload that fails validation leaves an empty document and returns an
// error wrapping document.ErrStructural.
func (e *Engine) Load(data []byte) error {
	doc, err := document.Parse(data)
	if err == nil && doc.Len() > e.store.MaxLayers() {
		err = &document.StructuralError{Reason: fmt.Sprintf("%d layers exceed the limit of %d", doc.Len(), e.store.MaxLayers())}
	}
	if err != nil {
		e.LoadDocument(document.New())
		return err
	}
	e.LoadDocument(doc)
	return nil
}

// LoadDocument replaces the document with a copy of doc and clears history
// and selection. Subscribers are not notified.
func (e *Engine) LoadDocument(doc *document.Document) {
	e.store.Restore(doc)
	e.store.Select(nil)
	e.history.Clear()
}

// Serialize returns the document in its persisted JSON shape.
func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(e.store.Snapshot())
}

// Snapshot returns a deep copy of the document.
func (e *Engine) Snapshot() *document.Document { return e.store.Snapshot() }

// Subscribe registers fn to run after every document change. The returned
// function removes the subscription.
func (e *Engine) Subscribe(fn ChangeFunc) func() {
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	return func() { delete(e.subscribers, id) }
}

func (e *Engine) notify() {
	if len(e.subscribers) == 0 {
		return
	}
	for _, fn := range e.subscribers {
		fn(e.store.Snapshot())
	}
}

// --- History ---

// Checkpoint records the current document as an undo point.
func (e *Engine) Checkpoint() {
	e.history.Checkpoint(e.store.Snapshot())
}

func (e *Engine) Undo() bool {
	prev, ok := e.history.Undo(e.store.Snapshot())
	if !ok {
		return false
	}
	e.store.Restore(prev)
	e.notify()
	return true
}

func (e *Engine) Redo() bool {
	next, ok := e.history.Redo(e.store.Snapshot())
	if !ok {
		return false
	}
	e.store.Restore(next)
	e.notify()
	return true
}

func (e *Engine) CanUndo() bool { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// History exposes the undo stacks for inspection.
func (e *Engine) History() *History { return e.history }

// edit runs fn after taking a snapshot and keeps the snapshot as an undo
// point only if fn reports a change.
func (e *Engine) edit(fn func() bool) bool {
	before := e.store.Snapshot()
	if !fn() {
		return false
	}
	e.history.Checkpoint(before)
	e.notify()
	return true
}

// live runs fn without touching history.
func (e *Engine) live(fn func() bool) bool {
	if !fn() {
		return false
	}
	e.notify()
	return true
}

// --- Edits ---

// Insert adds a layer, selects it and applies frame containment: a new
// layer joins the frame that covers it, a new frame collects the layers it
// covers.
func (e *Engine) Insert(l document.Layer) (string, error) {
	if l == nil || !document.ValidBounds(l.Bounds()) {
		return "", ErrInvalidLayer
	}

	var (
		id  string
		err error
	)
	e.edit(func() bool {
		id, err = e.store.Insert(l)
		if err != nil {
			return false
		}
		if l.Kind() == document.KindFrame {
			e.store.adoptContained(id)
		} else {
			e.store.AssignFrame(id)
		}
		return true
	})
	return id, err
}

// InsertPath turns freehand samples given in canvas coordinates into a Path
// layer. Strokes with fewer than two samples are dropped and yield "".
func (e *Engine) InsertPath(points []geometry.PenPoint, fill document.Color) (string, error) {
	if len(points) < 2 {
		return "", nil
	}
	bounds := geometry.StrokeBounds(points)
	rel := make([]geometry.PenPoint, len(points))
	for i, p := range points {
		rel[i] = geometry.PenPoint{X: p.X - bounds.X, Y: p.Y - bounds.Y, Pressure: p.Pressure}
	}
	return e.Insert(&document.Path{Box: document.BoxFrom(bounds), Fill: fill, Points: rel})
}

func (e *Engine) Update(id string, p document.Patch) bool {
	return e.edit(func() bool { return e.store.Update(id, p) })
}

func (e *Engine) Delete(id string) bool {
	return e.edit(func() bool { return e.store.Delete(id) })
}

func (e *Engine) DeleteMany(ids []string) bool {
	return e.edit(func() bool { return e.store.DeleteMany(ids) > 0 })
}

// DeleteSelection removes every selected layer.
func (e *Engine) DeleteSelection() bool {
	return e.DeleteMany(e.store.Selection())
}

// BringToFront raises the given layers to the top, keeping their relative
// order, as one undoable step.
func (e *Engine) BringToFront(ids ...string) bool {
	return e.edit(func() bool {
		changed := false
		for _, id := range e.inDrawOrder(ids) {
			changed = e.store.BringToFront(id) || changed
		}
		return changed
	})
}

// SendToBack lowers the given layers to the bottom, keeping their relative
// order, as one undoable step.
func (e *Engine) SendToBack(ids ...string) bool {
	return e.edit(func() bool {
		changed := false
		ordered := e.inDrawOrder(ids)
		for i := len(ordered) - 1; i >= 0; i-- {
			changed = e.store.SendToBack(ordered[i]) || changed
		}
		return changed
	})
}

// inDrawOrder filters ids to known layers sorted back to front.
func (e *Engine) inDrawOrder(ids []string) []string {
	var out []string
	for _, id := range e.store.order {
		if slices.Contains(ids, id) {
			out = append(out, id)
		}
	}
	return out
}

// TranslateMany moves layers as one undoable step and then settles their
// frame membership.
func (e *Engine) TranslateMany(ids []string, dx, dy float64) bool {
	return e.edit(func() bool {
		if !e.store.TranslateMany(ids, dx, dy) {
			return false
		}
		e.settle(ids)
		return true
	})
}

func (e *Engine) Resize(id string, bounds geometry.Rect) bool {
	return e.edit(func() bool {
		if !e.store.Resize(id, bounds) {
			return false
		}
		e.settle([]string{id})
		return true
	})
}

func (e *Engine) Recolor(id string, c document.Color) bool {
	return e.edit(func() bool { return e.store.Recolor(id, c) })
}

// RecolorSelection sets the fill of every selected layer in one step.
func (e *Engine) RecolorSelection(c document.Color) bool {
	return e.edit(func() bool {
		changed := false
		for _, id := range e.store.Selection() {
			changed = e.store.Recolor(id, c) || changed
		}
		return changed
	})
}

// --- Gesture edits (no checkpoint) ---

func (e *Engine) TranslateLive(ids []string, dx, dy float64) bool {
	return e.live(func() bool { return e.store.TranslateMany(ids, dx, dy) })
}

func (e *Engine) ResizeLive(id string, bounds geometry.Rect) bool {
	return e.live(func() bool { return e.store.Resize(id, bounds) })
}

// SetTextLive replaces the value of a text-bearing layer.
func (e *Engine) SetTextLive(id string, value string) bool {
	return e.live(func() bool {
		l, ok := e.store.Layer(id)
		if !ok {
			return false
		}
		if cur, ok := document.TextOf(l); !ok || cur == value {
			return false
		}
		return document.SetText(l, value)
	})
}

// SettleFrames reruns the containment policy for layers that finished
// moving or resizing.
func (e *Engine) SettleFrames(ids []string) bool {
	return e.live(func() bool { return e.settle(ids) })
}

// settle assigns frames for the moved layers. Children carried along by a
// moved frame keep their membership.
func (e *Engine) settle(ids []string) bool {
	changed := false
	for _, id := range ids {
		changed = e.store.AssignFrame(id) || changed
	}
	return changed
}

// --- Selection ---

func (e *Engine) Select(ids []string) { e.store.Select(ids) }

func (e *Engine) SelectAll() { e.store.Select(e.store.order) }

func (e *Engine) ClearSelection() { e.store.Select(nil) }

func (e *Engine) Selection() []string { return e.store.Selection() }

func (e *Engine) IsSelected(id string) bool { return e.store.IsSelected(id) }

// --- Queries ---

func (e *Engine) Layer(id string) (document.Layer, bool) { return e.store.Layer(id) }

func (e *Engine) IDs() []string { return e.store.IDs() }

func (e *Engine) Len() int { return e.store.Len() }

func (e *Engine) ParentOf(id string) (string, bool) { return e.store.ParentOf(id) }

func (e *Engine) ChildrenOf(frameID string) []string { return e.store.ChildrenOf(frameID) }

func (e *Engine) Frames() []string { return e.store.Frames() }

func (e *Engine) HitTest(p geometry.Point) (string, bool) { return e.store.HitTest(p) }

func (e *Engine) SelectionBounds() (geometry.Rect, bool) { return e.store.SelectionBounds() }

func (e *Engine) BoundingBoxOf(ids []string) (geometry.Rect, bool) {
	return BoundingBoxOf(e.store.layers, ids)
}

func (e *Engine) Intersecting(a, b geometry.Point) []string { return e.store.Intersecting(a, b) }

// IntersectingFrom runs a marquee query treating selected as the current
// selection, so frames selected when the gesture began stay eligible.
func (e *Engine) IntersectingFrom(a, b geometry.Point, selected []string) []string {
	return Intersecting(e.store.layers, e.store.order, a, b, selected)
}

func (e *Engine) RenderList() []DrawCommand { return e.store.RenderList() }
