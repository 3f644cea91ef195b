package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geometry"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAdoptReleaseKeepIndexCurrent(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	f1, _ := s.Insert(frame(0, 0, 100, 100))
	f2, _ := s.Insert(frame(200, 0, 100, 100))
	a, _ := s.Insert(rect(10, 10, 10, 10))

	_, ok := s.ParentOf(a)
	require.False(t, ok)
	rebuilds := s.index.rebuilds

	require.True(t, s.Adopt(f1, a))
	p, _ := s.ParentOf(a)
	assert.Equal(t, f1, p)

	require.True(t, s.Adopt(f2, a))
	p, _ = s.ParentOf(a)
	assert.Equal(t, f2, p)
	assert.Empty(t, s.ChildrenOf(f1), "adopting releases the previous parent")
	assert.Equal(t, []string{a}, s.ChildrenOf(f2))

	require.True(t, s.Release(a))
	assert.False(t, s.Release(a))
	_, ok = s.ParentOf(a)
	assert.False(t, ok)

	assert.Equal(t, rebuilds, s.index.rebuilds, "adopt and release update the index in place")
}

func TestIndexRebuildsAfterStructuralChange(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	f, _ := s.Insert(frame(0, 0, 100, 100))
	a, _ := s.Insert(rect(10, 10, 10, 10))
	s.Adopt(f, a)

	doc := s.Snapshot()
	s.Release(a)
	rebuilds := s.index.rebuilds

	s.Restore(doc)
	p, ok := s.ParentOf(a)
	require.True(t, ok)
	assert.Equal(t, f, p)
	assert.Equal(t, rebuilds+1, s.index.rebuilds)

	s.Delete(f)
	_, ok = s.ParentOf(a)
	assert.False(t, ok)
}

func TestFramesCacheIsTimeBoxed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := NewStore(Options{NewID: seqIDs(), Now: clock.Now, FrameCacheTTL: time.Second})

	f1, _ := s.Insert(frame(0, 0, 10, 10))
	assert.Equal(t, []string{f1}, s.Frames())

	// Frame inserts invalidate immediately.
	f2, _ := s.Insert(frame(0, 0, 10, 10))
	assert.Equal(t, []string{f2, f1}, s.Frames())

	// Reordering a non-frame leaves the cache alone.
	a, _ := s.Insert(rect(0, 0, 1, 1))
	s.SendToBack(a)
	assert.Equal(t, []string{f2, f1}, s.Frames())

	// Bypass the store to show the cache is served until it expires.
	s.order = []string{a, f1, f2}
	assert.Equal(t, []string{f2, f1}, s.Frames())
	clock.Advance(2 * time.Second)
	assert.Equal(t, []string{f1, f2}, s.Frames())
}

func TestBestContainingFrameTieGoesToTopmost(t *testing.T) {
	layers := map[string]document.Layer{
		"back":  frame(0, 0, 100, 100),
		"front": frame(0, 0, 100, 100),
		"small": frame(0, 0, 10, 10),
	}
	id, ok := BestContainingFrame(layers, geometry.Rect{X: 10, Y: 10, Width: 20, Height: 20}, []string{"back", "front", "small"})
	require.True(t, ok)
	assert.Equal(t, "front", id)

	_, ok = BestContainingFrame(layers, geometry.Rect{X: 80, Y: 80, Width: 40, Height: 40}, []string{"back", "front"})
	assert.False(t, ok, "exactly one quarter inside")

	_, ok = BestContainingFrame(layers, geometry.Rect{X: 50, Y: 0, Width: 100, Height: 10}, []string{"back"})
	assert.False(t, ok, "exactly one half is not enough")
}

func TestMarqueePassThrough(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	f, _ := s.Insert(frame(0, 0, 100, 100))
	c, _ := s.Insert(rect(10, 10, 20, 20))
	s.AssignFrame(c)
	g, _ := s.Insert(frame(200, 0, 100, 100))
	d, _ := s.Insert(rect(210, 10, 20, 20))
	s.AssignFrame(d)
	s.Select([]string{f})

	got := s.Intersecting(geometry.Point{X: -10, Y: -10}, geometry.Point{X: 310, Y: 110})
	assert.Contains(t, got, f)
	assert.Contains(t, got, d)
	assert.NotContains(t, got, g)
}

func TestIntersectingZeroAreaSelectsNothing(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	s.Insert(rect(0, 0, 10, 10))
	assert.Empty(t, s.Intersecting(geometry.Point{X: 5, Y: 5}, geometry.Point{X: 5, Y: 5}))
	assert.Empty(t, s.Intersecting(geometry.Point{X: 5, Y: 0}, geometry.Point{X: 5, Y: 20}))
}

func TestBoundingBoxOf(t *testing.T) {
	layers := map[string]document.Layer{
		"a": rect(0, 0, 10, 10),
		"b": rect(50, -5, 10, 10),
	}
	box, ok := BoundingBoxOf(layers, []string{"a", "b", "ghost"})
	require.True(t, ok)
	assert.Equal(t, geometry.Rect{X: 0, Y: -5, Width: 60, Height: 15}, box)

	_, ok = BoundingBoxOf(layers, nil)
	assert.False(t, ok)
}

func TestHitTestPrefersLayersOverFrames(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	f, _ := s.Insert(frame(0, 0, 100, 100))
	a, _ := s.Insert(rect(10, 10, 20, 20))
	b, _ := s.Insert(rect(15, 15, 20, 20))
	s.BringToFront(f)

	id, ok := s.HitTest(geometry.Point{X: 16, Y: 16})
	require.True(t, ok)
	assert.Equal(t, b, id, "topmost non-frame layer wins even under a raised frame")

	id, _ = s.HitTest(geometry.Point{X: 11, Y: 11})
	assert.Equal(t, a, id)

	id, _ = s.HitTest(geometry.Point{X: 90, Y: 90})
	assert.Equal(t, f, id)

	_, ok = s.HitTest(geometry.Point{X: 500, Y: 500})
	assert.False(t, ok)
}

func TestResizeScalesPathAndRejectsDegenerate(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	id, _ := s.Insert(&document.Path{
		Box:    document.Box{X: 0, Y: 0, Width: 10, Height: 10},
		Points: []geometry.PenPoint{{X: 5, Y: 5, Pressure: 0.5}, {X: 10, Y: 10, Pressure: 0.5}},
	})

	require.True(t, s.Resize(id, geometry.Rect{X: 0, Y: 0, Width: 20, Height: 40}))
	l, _ := s.Layer(id)
	assert.Equal(t, geometry.PenPoint{X: 20, Y: 40, Pressure: 0.5}, l.(*document.Path).Points[1])

	assert.False(t, s.Resize(id, geometry.Rect{Width: 0, Height: 5}))
}

func TestInsertedFrameIgnoresSuppliedChildren(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	f := frame(0, 0, 10, 10)
	f.ChildIDs = []string{"ghost"}

	id, err := s.Insert(f)
	require.NoError(t, err)
	assert.Empty(t, s.ChildrenOf(id))
	assert.Equal(t, []string{"ghost"}, f.ChildIDs, "caller's layer is not aliased")
}

func TestHistoryStacks(t *testing.T) {
	h := NewHistory(2)
	d := func(id string) *document.Document {
		return &document.Document{Layers: map[string]document.Layer{}, LayerIDs: []string{id}}
	}

	h.Checkpoint(d("1"))
	h.Checkpoint(d("2"))
	h.Checkpoint(d("3"))
	past, future := h.Len()
	assert.Equal(t, 2, past)
	assert.Zero(t, future)

	prev, ok := h.Undo(d("4"))
	require.True(t, ok)
	assert.Equal(t, []string{"3"}, prev.LayerIDs)

	next, ok := h.Redo(d("3"))
	require.True(t, ok)
	assert.Equal(t, []string{"4"}, next.LayerIDs)

	h.Clear()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	_, ok = h.Undo(d("x"))
	assert.False(t, ok)
}

func TestRenderListClipsFrameChildren(t *testing.T) {
	e := newTestEngine(t)
	loose := mustInsert(t, e, rect(500, 500, 10, 10))
	f := mustInsert(t, e, frame(0, 0, 200, 200))
	child := mustInsert(t, e, &document.Note{Box: document.Box{X: 10, Y: 10, Width: 50, Height: 50}, Fill: document.Color{R: 255, G: 255}, Value: "hi"})
	stroke, err := e.InsertPath([]geometry.PenPoint{{X: 300, Y: 300, Pressure: 0.5}, {X: 320, Y: 310, Pressure: 0.5}}, document.Color{})
	require.NoError(t, err)

	cmds := e.RenderList()
	var ops []string
	var ids []string
	for _, c := range cmds {
		ops = append(ops, c.Op)
		ids = append(ids, c.LayerID)
	}

	assert.Equal(t, []string{"path", "path", "save", "clip", "path", "text", "restore", "path"}, ops)
	assert.Equal(t, []string{f, loose, "", f, child, child, "", stroke}, ids)

	text := cmds[5]
	assert.Equal(t, "hi", text.Text)
	assert.Equal(t, "#000000", text.Fill)
	assert.Equal(t, []float64{1, 0, 0, 1, 10, 10}, text.Transform)

	assert.Equal(t, "Z", cmds[7].Path[len(cmds[7].Path)-1][0])
}

func TestRenderFollowsDrawOrder(t *testing.T) {
	e := newTestEngine(t)
	f := mustInsert(t, e, frame(0, 0, 60, 60))
	between := mustInsert(t, e, rect(40, 40, 100, 100))
	child := mustInsert(t, e, rect(10, 10, 40, 40))
	p, ok := e.ParentOf(child)
	require.True(t, ok)
	require.Equal(t, f, p)
	_, ok = e.ParentOf(between)
	require.False(t, ok)

	painted := func() []string {
		var ids []string
		for _, c := range e.RenderList() {
			if c.Op == "path" {
				ids = append(ids, c.LayerID)
			}
		}
		return ids
	}

	hit, _ := e.HitTest(geometry.Point{X: 45, Y: 45})
	assert.Equal(t, child, hit)
	assert.Equal(t, []string{f, between, child}, painted(), "topmost hit is painted last")

	require.True(t, e.SendToBack(child))
	hit, _ = e.HitTest(geometry.Point{X: 45, Y: 45})
	assert.Equal(t, between, hit)
	assert.Equal(t, []string{child, f, between}, painted())
}

func TestRenderEmpty(t *testing.T) {
	e := newTestEngine(t)
	assert.Empty(t, e.RenderList())
}
