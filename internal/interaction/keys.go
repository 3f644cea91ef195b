package interaction

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/inamate/whiteboard/internal/document"
)

// KeyEvent is a key press. Key follows the DOM KeyboardEvent.key values.
type KeyEvent struct {
	Key   string `json:"key" msgpack:"key"`
	Ctrl  bool   `json:"ctrl,omitempty" msgpack:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty" msgpack:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty" msgpack:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty" msgpack:"alt,omitempty"`

	// InTextField is set when focus is in a form control outside the canvas.
	InTextField bool `json:"inTextField,omitempty" msgpack:"inTextField,omitempty"`
}

// WheelEvent is a wheel or trackpad scroll at a screen position.
type WheelEvent struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	DeltaX float64 `json:"deltaX" msgpack:"deltaX"`
	DeltaY float64 `json:"deltaY" msgpack:"deltaY"`
	Ctrl   bool    `json:"ctrl,omitempty" msgpack:"ctrl,omitempty"`
}

const wheelZoomRate = 0.01

// zoomFactor maps a vertical wheel delta to a multiplicative zoom step.
// Scrolling up zooms in.
func zoomFactor(deltaY float64) float64 {
	return math.Exp(-deltaY * wheelZoomRate)
}

// KeyDown handles a keyboard shortcut and reports whether it was consumed.
func (m *Machine) KeyDown(ev KeyEvent) bool {
	if ev.InTextField {
		return false
	}
	mod := ev.Ctrl || ev.Meta

	if mod {
		switch strings.ToLower(ev.Key) {
		case "z":
			if !m.settled() {
				return false
			}
			m.EndTextEdit()
			if ev.Shift {
				return m.eng.Redo()
			}
			return m.eng.Undo()
		case "y":
			if !m.settled() {
				return false
			}
			m.EndTextEdit()
			return m.eng.Redo()
		case "a":
			if m.editing != "" {
				return false
			}
			m.eng.SelectAll()
			return true
		case "]":
			return m.eng.BringToFront(m.eng.Selection()...)
		case "[":
			return m.eng.SendToBack(m.eng.Selection()...)
		}
		return false
	}

	switch ev.Key {
	case "Escape":
		switch {
		case m.editing != "":
			m.EndTextEdit()
		case m.tool.Kind != ToolKindSelect:
			m.SetTool(ToolSelect)
		default:
			m.eng.ClearSelection()
		}
		return true

	case "Delete", "Backspace":
		if m.editing != "" || !m.settled() {
			return false
		}
		return m.eng.DeleteSelection()
	}

	if m.editing == "" && !ev.Alt && utf8.RuneCountInString(ev.Key) == 1 {
		return m.typeInto(ev.Key)
	}
	return false
}

// settled reports whether no pointer gesture is in progress. History and
// deletion shortcuts are ignored mid-gesture.
func (m *Machine) settled() bool {
	return m.mode == Idle || m.mode == InsertingNewShape
}

// typeInto starts editing the lone selected text-bearing layer with the
// typed character as its new value.
func (m *Machine) typeInto(ch string) bool {
	sel := m.eng.Selection()
	if len(sel) != 1 || m.mode != Idle {
		return false
	}
	l, ok := m.eng.Layer(sel[0])
	if !ok || !document.IsTextBearing(l) {
		return false
	}
	if !m.StartTextEdit(sel[0]) {
		return false
	}
	m.UpdateText(ch)
	return true
}
