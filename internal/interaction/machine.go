// Package interaction turns raw pointer, wheel and keyboard input into
// edits on an engine.Engine and changes to the viewport Camera.
package interaction

import (
	"fmt"
	"slices"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/engine"
	"github.com/inamate/whiteboard/internal/geometry"
)

// Mode is what the user is currently doing.
type Mode int

const (
	Idle Mode = iota
	PressingForSelection
	MarqueeSelecting
	PotentialDrag
	TranslatingSelection
	Resizing
	DrawingFreehand
	InsertingNewShape
	PanningCamera
)

var modeNames = [...]string{
	Idle:                 "idle",
	PressingForSelection: "pressing",
	MarqueeSelecting:     "marquee",
	PotentialDrag:        "potentialDrag",
	TranslatingSelection: "translating",
	Resizing:             "resizing",
	DrawingFreehand:      "drawing",
	InsertingNewShape:    "inserting",
	PanningCamera:        "panning",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Button identifies the pointer button of a PointerEvent.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonMiddle    Button = 1
	ButtonSecondary Button = 2
)

// PointerEvent carries a pointer position in screen pixels.
type PointerEvent struct {
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Pressure float64 `json:"pressure,omitempty" msgpack:"pressure,omitempty"`
	Button   Button  `json:"button,omitempty" msgpack:"button,omitempty"`
	Shift    bool    `json:"shift,omitempty" msgpack:"shift,omitempty"`
}

func (ev PointerEvent) screen() geometry.Point { return geometry.Point{X: ev.X, Y: ev.Y} }

// ToolKind selects how primary pointer presses are interpreted.
type ToolKind int

const (
	ToolKindSelect ToolKind = iota
	ToolKindFreehand
	ToolKindInsert
)

// Tool is the active tool. Shape is set only for insertion tools.
type Tool struct {
	Kind  ToolKind
	Shape document.Kind
}

var (
	ToolSelect   = Tool{Kind: ToolKindSelect}
	ToolFreehand = Tool{Kind: ToolKindFreehand}
)

// ToolInsert arms placement of a new layer of the given kind. Paths are
// drawn, not placed, so they map to the freehand tool.
func ToolInsert(kind document.Kind) Tool {
	if kind == document.KindPath {
		return ToolFreehand
	}
	return Tool{Kind: ToolKindInsert, Shape: kind}
}

// ParseTool maps a tool name to a tool: "select", "freehand" or the kind of
// layer to place.
func ParseTool(name string) (Tool, error) {
	switch name {
	case "select":
		return ToolSelect, nil
	case "freehand":
		return ToolFreehand, nil
	}
	if k := document.Kind(name); k.Valid() {
		return ToolInsert(k), nil
	}
	return Tool{}, fmt.Errorf("unknown tool %q", name)
}

const DefaultDragThreshold = 5.0

// Options configures a Machine.
type Options struct {
	// DragThreshold is the screen distance a press must travel before it
	// turns into a drag or marquee.
	DragThreshold float64
	StrokeColor   document.Color
}

// Overlay is the transient state the view draws on top of the document.
type Overlay struct {
	Mode      string              `json:"mode"`
	Marquee   *geometry.Rect      `json:"marquee,omitempty"`
	Stroke    []geometry.PenPoint `json:"stroke,omitempty"`
	Selection *geometry.Rect      `json:"selection,omitempty"`
	Editing   string              `json:"editing,omitempty"`
}

// Machine is the interaction state machine. It is not safe for concurrent
// use; feed it events from a single goroutine.
type Machine struct {
	eng  *engine.Engine
	cam  *Camera
	opts Options

	mode Mode
	tool Tool

	originScreen geometry.Point
	origin       geometry.Point
	last         geometry.Point
	lastScreen   geometry.Point

	pressed       string
	dragIDs       []string
	moved         bool
	resizeID      string
	resizeSide    geometry.Side
	resizeStart   geometry.Rect
	stroke        []geometry.PenPoint
	marqueeBase   []string
	marqueeFrom   []string
	marqueeAppend bool

	editing string

	// checkpointArmed defers the undo point of a gesture until it first
	// changes the document.
	checkpointArmed bool
}

func NewMachine(eng *engine.Engine, cam *Camera, opts Options) *Machine {
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	if cam == nil {
		cam = NewCamera()
	}
	return &Machine{eng: eng, cam: cam, opts: opts, tool: ToolSelect}
}

func (m *Machine) Mode() Mode      { return m.mode }
func (m *Machine) Tool() Tool      { return m.tool }
func (m *Machine) Camera() *Camera { return m.cam }
func (m *Machine) Editing() string { return m.editing }

// SetTool switches tools, committing any text edit and abandoning an armed
// insertion.
func (m *Machine) SetTool(t Tool) {
	m.EndTextEdit()
	m.tool = t
	switch {
	case t.Kind == ToolKindInsert:
		m.mode = InsertingNewShape
	case m.mode == InsertingNewShape:
		m.mode = Idle
	}
}

// --- Pointer input ---

func (m *Machine) PointerDown(ev PointerEvent) {
	p := m.cam.ScreenToCanvas(ev.screen())
	m.originScreen, m.lastScreen = ev.screen(), ev.screen()
	m.origin, m.last = p, p

	if ev.Button != ButtonPrimary {
		m.mode = PanningCamera
		return
	}
	m.EndTextEdit()

	switch m.tool.Kind {
	case ToolKindInsert:
		// Placement happens on release.
		m.mode = InsertingNewShape
		return
	case ToolKindFreehand:
		m.mode = DrawingFreehand
		m.stroke = []geometry.PenPoint{penPoint(p, ev.Pressure)}
		return
	}

	if bounds, ok := m.eng.SelectionBounds(); ok && bounds.Contains(p) {
		m.beginTranslate(m.eng.Selection())
		return
	}
	if id, ok := m.eng.HitTest(p); ok {
		m.mode = PotentialDrag
		m.pressed = id
		return
	}
	m.mode = PressingForSelection
	m.marqueeAppend = ev.Shift
}

func (m *Machine) PointerMove(ev PointerEvent) {
	p := m.cam.ScreenToCanvas(ev.screen())
	screen := ev.screen()

	switch m.mode {
	case PressingForSelection:
		if !m.pastThreshold(screen) {
			return
		}
		m.mode = MarqueeSelecting
		m.marqueeFrom = m.eng.Selection()
		m.marqueeBase = nil
		if m.marqueeAppend {
			m.marqueeBase = m.marqueeFrom
		}
		m.updateMarquee(p)

	case MarqueeSelecting:
		m.updateMarquee(p)

	case PotentialDrag:
		if !m.pastThreshold(screen) {
			return
		}
		if !m.eng.IsSelected(m.pressed) {
			if ev.Shift {
				m.eng.Select(append(m.eng.Selection(), m.pressed))
			} else {
				m.eng.Select([]string{m.pressed})
			}
		}
		m.beginTranslate(m.eng.Selection())
		m.translateTo(p)

	case TranslatingSelection:
		m.translateTo(p)

	case Resizing:
		bounds := geometry.ResizeBounds(m.resizeStart, m.resizeSide, p)
		if document.ValidBounds(bounds) {
			if l, ok := m.eng.Layer(m.resizeID); ok && l.Bounds() != bounds {
				m.ensureCheckpoint()
				m.eng.ResizeLive(m.resizeID, bounds)
				m.moved = true
			}
		}

	case DrawingFreehand:
		if n := len(m.stroke); n > 0 && m.stroke[n-1].X == p.X && m.stroke[n-1].Y == p.Y {
			break
		}
		m.stroke = append(m.stroke, penPoint(p, ev.Pressure))

	case PanningCamera:
		m.cam.Pan(screen.X-m.lastScreen.X, screen.Y-m.lastScreen.Y)
	}

	m.lastScreen = screen
}

func (m *Machine) PointerUp(ev PointerEvent) {
	p := m.cam.ScreenToCanvas(ev.screen())
	m.lastScreen = ev.screen()
	m.release(p, ev.Shift)
}

// GlobalPointerUp handles a release that happened outside the canvas. The
// gesture in progress is finished as if released at the last known point.
func (m *Machine) GlobalPointerUp() {
	if m.mode == Idle || m.mode == InsertingNewShape {
		return
	}
	m.release(m.cam.ScreenToCanvas(m.lastScreen), false)
}

// PointerCancel aborts the press. Drags, resizes and marquees keep what they
// did so far; a stroke in progress is discarded.
func (m *Machine) PointerCancel() {
	switch m.mode {
	case TranslatingSelection, Resizing, MarqueeSelecting:
		m.finishGesture()
	case DrawingFreehand:
		m.stroke = nil
	case PanningCamera:
		m.cam.Flush()
	case InsertingNewShape:
		return
	}
	m.reset()
}

// ResizeHandleDown starts resizing the sole selected layer from a handle.
func (m *Machine) ResizeHandleDown(side geometry.Side, ev PointerEvent) bool {
	sel := m.eng.Selection()
	if !side.Valid() || len(sel) != 1 {
		return false
	}
	l, ok := m.eng.Layer(sel[0])
	if !ok {
		return false
	}
	m.EndTextEdit()
	m.originScreen, m.lastScreen = ev.screen(), ev.screen()
	m.origin = m.cam.ScreenToCanvas(ev.screen())
	m.mode = Resizing
	m.resizeID = sel[0]
	m.resizeSide = side
	m.resizeStart = l.Bounds()
	m.moved = false
	m.checkpointArmed = true
	return true
}

// Wheel zooms around the pointer with ctrl held and pans otherwise.
func (m *Machine) Wheel(ev WheelEvent) bool {
	if ev.Ctrl {
		return m.cam.ZoomAt(geometry.Point{X: ev.X, Y: ev.Y}, zoomFactor(ev.DeltaY))
	}
	return m.cam.Pan(-ev.DeltaX, -ev.DeltaY)
}

// --- Text editing ---

// StartTextEdit enters in-place editing of a text-bearing layer.
func (m *Machine) StartTextEdit(id string) bool {
	l, ok := m.eng.Layer(id)
	if !ok || !document.IsTextBearing(l) {
		return false
	}
	m.EndTextEdit()
	m.editing = id
	m.checkpointArmed = true
	m.eng.Select([]string{id})
	return true
}

// UpdateText replaces the value of the layer being edited.
func (m *Machine) UpdateText(value string) bool {
	if m.editing == "" {
		return false
	}
	l, ok := m.eng.Layer(m.editing)
	if !ok {
		m.editing = ""
		return false
	}
	if cur, _ := document.TextOf(l); cur == value {
		return false
	}
	m.ensureCheckpoint()
	return m.eng.SetTextLive(m.editing, value)
}

func (m *Machine) EndTextEdit() {
	if m.editing == "" {
		return
	}
	m.editing = ""
	m.checkpointArmed = false
}

// Overlay reports the transient gesture state for the view.
func (m *Machine) Overlay() Overlay {
	o := Overlay{Mode: m.mode.String(), Editing: m.editing}
	if m.mode == MarqueeSelecting {
		r := geometry.FromCorners(m.origin, m.last)
		o.Marquee = &r
	}
	if m.mode == DrawingFreehand {
		o.Stroke = slices.Clone(m.stroke)
	}
	if b, ok := m.eng.SelectionBounds(); ok {
		o.Selection = &b
	}
	return o
}

// --- internals ---

func (m *Machine) release(p geometry.Point, shift bool) {
	switch m.mode {
	case DrawingFreehand:
		stroke := m.stroke
		m.stroke = nil
		m.eng.InsertPath(stroke, m.opts.StrokeColor)

	case InsertingNewShape:
		if l := newShape(m.tool.Shape, p); l != nil {
			m.eng.Insert(l)
		}
		m.tool = ToolSelect

	case PotentialDrag:
		m.click(m.pressed, shift)

	case TranslatingSelection:
		clicked := !m.moved
		m.finishGesture()
		if clicked {
			m.clickSelected(p)
		}

	case Resizing, MarqueeSelecting:
		m.finishGesture()

	case PressingForSelection:
		if !shift {
			m.eng.ClearSelection()
		}

	case PanningCamera:
		m.cam.Flush()
	}
	m.reset()
}

// finishGesture runs the completion shared by a normal release and the
// recovery paths.
func (m *Machine) finishGesture() {
	switch m.mode {
	case TranslatingSelection:
		if m.moved {
			m.eng.SettleFrames(m.dragIDs)
		}
	case Resizing:
		if m.moved {
			m.eng.SettleFrames([]string{m.resizeID})
		}
	}
}

func (m *Machine) reset() {
	m.mode = Idle
	if m.tool.Kind == ToolKindInsert {
		m.mode = InsertingNewShape
	}
	m.pressed = ""
	m.dragIDs = nil
	m.moved = false
	m.resizeID = ""
	m.marqueeBase = nil
	m.marqueeFrom = nil
	m.marqueeAppend = false
	if m.editing == "" {
		m.checkpointArmed = false
	}
}

func (m *Machine) click(id string, shift bool) {
	if !shift {
		m.eng.Select([]string{id})
		return
	}
	sel := m.eng.Selection()
	if i := slices.Index(sel, id); i >= 0 {
		m.eng.Select(slices.Delete(sel, i, i+1))
		return
	}
	m.eng.Select(append(sel, id))
}

// clickSelected handles a press and release inside the selection without
// movement: a second click on a lone text layer starts editing it, a click
// on one member of a group narrows the selection to it.
func (m *Machine) clickSelected(p geometry.Point) {
	hit, ok := m.eng.HitTest(p)
	if !ok {
		return
	}
	sel := m.eng.Selection()
	if len(sel) == 1 && sel[0] == hit {
		m.StartTextEdit(hit)
		return
	}
	m.eng.Select([]string{hit})
}

func (m *Machine) beginTranslate(ids []string) {
	m.mode = TranslatingSelection
	m.dragIDs = ids
	m.moved = false
	m.checkpointArmed = true
}

func (m *Machine) translateTo(p geometry.Point) {
	dx, dy := p.X-m.last.X, p.Y-m.last.Y
	if dx == 0 && dy == 0 {
		return
	}
	m.ensureCheckpoint()
	m.eng.TranslateLive(m.dragIDs, dx, dy)
	m.last = p
	m.moved = true
}

func (m *Machine) updateMarquee(p geometry.Point) {
	m.last = p
	hits := m.eng.IntersectingFrom(m.origin, p, m.marqueeFrom)
	sel := slices.Clone(m.marqueeBase)
	for _, id := range hits {
		if !slices.Contains(sel, id) {
			sel = append(sel, id)
		}
	}
	m.eng.Select(sel)
}

func (m *Machine) pastThreshold(screen geometry.Point) bool {
	return screen.Distance(m.originScreen) > m.opts.DragThreshold
}

func (m *Machine) ensureCheckpoint() {
	if m.checkpointArmed {
		m.eng.Checkpoint()
		m.checkpointArmed = false
	}
}

func penPoint(p geometry.Point, pressure float64) geometry.PenPoint {
	if pressure <= 0 {
		pressure = 0.5
	}
	return geometry.PenPoint{X: p.X, Y: p.Y, Pressure: pressure}
}
