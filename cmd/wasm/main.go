//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"
	"time"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/engine"
	"github.com/inamate/whiteboard/internal/geometry"
	"github.com/inamate/whiteboard/internal/interaction"
	"github.com/inamate/whiteboard/internal/persist"
)

var (
	eng     *engine.Engine
	machine *interaction.Machine

	saver       *persist.Saver
	unsubscribe func()
)

func main() {
	eng = engine.New(engine.Options{})
	machine = interaction.NewMachine(eng, interaction.NewCamera(), interaction.Options{})

	// Create the engine API object
	whiteboard := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	whiteboard.Set("loadDocument", js.FuncOf(loadDocument))
	whiteboard.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	whiteboard.Set("pointerDown", js.FuncOf(pointerDown))
	whiteboard.Set("pointerMove", js.FuncOf(pointerMove))
	whiteboard.Set("pointerUp", js.FuncOf(pointerUp))
	whiteboard.Set("pointerCancel", js.FuncOf(pointerCancel))
	whiteboard.Set("globalPointerUp", js.FuncOf(globalPointerUp))
	whiteboard.Set("resizeHandleDown", js.FuncOf(resizeHandleDown))
	whiteboard.Set("keyDown", js.FuncOf(keyDown))
	whiteboard.Set("wheel", js.FuncOf(wheel))
	whiteboard.Set("setTool", js.FuncOf(setTool))
	whiteboard.Set("startTextEdit", js.FuncOf(startTextEdit))
	whiteboard.Set("updateText", js.FuncOf(updateText))
	whiteboard.Set("endTextEdit", js.FuncOf(endTextEdit))
	whiteboard.Set("undo", js.FuncOf(undo))
	whiteboard.Set("redo", js.FuncOf(redo))
	whiteboard.Set("setPersist", js.FuncOf(setPersist))
	whiteboard.Set("flush", js.FuncOf(flush))

	// --- Queries (frontend ← engine) ---
	whiteboard.Set("render", js.FuncOf(render))
	whiteboard.Set("getDocument", js.FuncOf(getDocument))
	whiteboard.Set("getSelection", js.FuncOf(getSelection))
	whiteboard.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	whiteboard.Set("getOverlay", js.FuncOf(getOverlay))
	whiteboard.Set("getCamera", js.FuncOf(getCamera))
	whiteboard.Set("getMode", js.FuncOf(getMode))
	whiteboard.Set("canUndo", js.FuncOf(canUndo))
	whiteboard.Set("canRedo", js.FuncOf(canRedo))

	// Register on global scope
	js.Global().Set("whiteboardEngine", whiteboard)

	// Signal that WASM is ready
	js.Global().Set("whiteboardWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}

var okResult = map[string]interface{}{"ok": true}

// decodeArg unmarshals a JSON string argument.
func decodeArg(args []js.Value, i int, v any) bool {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return false
	}
	return json.Unmarshal([]byte(args[i].String()), v) == nil
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	data := []byte(args[0].String())
	machine.PointerCancel()
	err := eng.Load(data)
	if saver != nil && err == nil {
		saver.Prime(data)
	}
	if err != nil {
		// The engine now holds an empty board; report why.
		return js.ValueOf(errorResult(err))
	}
	return js.ValueOf(okResult)
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	machine.PointerCancel()
	eng.LoadDocument(document.NewSampleDocument())
	return js.ValueOf(okResult)
}

// pointerEvent reads (x, y, opts) where opts is an optional JSON object
// with pressure, button and shift.
func pointerEvent(args []js.Value) (interaction.PointerEvent, bool) {
	if len(args) < 2 {
		return interaction.PointerEvent{}, false
	}
	var ev interaction.PointerEvent
	decodeArg(args, 2, &ev)
	ev.X = args[0].Float()
	ev.Y = args[1].Float()
	return ev, true
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if ev, ok := pointerEvent(args); ok {
		machine.PointerDown(ev)
	}
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if ev, ok := pointerEvent(args); ok {
		machine.PointerMove(ev)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if ev, ok := pointerEvent(args); ok {
		machine.PointerUp(ev)
	}
	return nil
}

func pointerCancel(this js.Value, args []js.Value) interface{} {
	machine.PointerCancel()
	return nil
}

func globalPointerUp(this js.Value, args []js.Value) interface{} {
	machine.GlobalPointerUp()
	return nil
}

// resizeHandleDown(handle, x, y)
func resizeHandleDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(false)
	}
	side, err := geometry.ParseSide(args[0].String())
	if err != nil {
		return js.ValueOf(false)
	}
	ev := interaction.PointerEvent{X: args[1].Float(), Y: args[2].Float()}
	return js.ValueOf(machine.ResizeHandleDown(side, ev))
}

// keyDown(eventJSON) reports whether the key was consumed.
func keyDown(this js.Value, args []js.Value) interface{} {
	var ev interaction.KeyEvent
	if !decodeArg(args, 0, &ev) {
		return js.ValueOf(false)
	}
	return js.ValueOf(machine.KeyDown(ev))
}

func wheel(this js.Value, args []js.Value) interface{} {
	var ev interaction.WheelEvent
	if !decodeArg(args, 0, &ev) {
		return js.ValueOf(false)
	}
	return js.ValueOf(machine.Wheel(ev))
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	tool, err := interaction.ParseTool(args[0].String())
	if err != nil {
		return js.ValueOf(errorResult(err))
	}
	machine.SetTool(tool)
	return js.ValueOf(okResult)
}

func startTextEdit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(machine.StartTextEdit(args[0].String()))
}

func updateText(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(machine.UpdateText(args[0].String()))
}

func endTextEdit(this js.Value, args []js.Value) interface{} {
	machine.EndTextEdit()
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	machine.EndTextEdit()
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	machine.EndTextEdit()
	return js.ValueOf(eng.Redo())
}

// setPersist(callback, delayMs) registers callback(boardJSON) to receive
// debounced saves. Passing null stops saving.
func setPersist(this js.Value, args []js.Value) interface{} {
	if unsubscribe != nil {
		unsubscribe()
		saver.Close()
		saver, unsubscribe = nil, nil
	}
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}

	callback := args[0]
	gw := persist.GatewayFunc(func(_ context.Context, _ string, data []byte) error {
		callback.Invoke(string(data))
		return nil
	})
	delay := persist.DefaultDelay
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		delay = time.Duration(args[1].Int()) * time.Millisecond
	}
	saver = persist.NewSaver(gw, "local", delay)
	if data, err := eng.Serialize(); err == nil {
		saver.Prime(data)
	}
	unsubscribe = eng.Subscribe(saver.Notify)
	return nil
}

func flush(this js.Value, args []js.Value) interface{} {
	if saver == nil {
		return nil
	}
	if err := saver.Flush(context.Background()); err != nil {
		return js.ValueOf(errorResult(err))
	}
	return nil
}

// --- Query Handlers ---

// toJSON marshals v for the JS side, falling back to fallback.
func toJSON(v any, fallback string) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf(fallback)
	}
	return js.ValueOf(string(data))
}

func render(this js.Value, args []js.Value) interface{} {
	machine.Camera().Flush()
	cmds := eng.RenderList()
	if cmds == nil {
		cmds = []engine.DrawCommand{}
	}
	return toJSON(cmds, "[]")
}

func getDocument(this js.Value, args []js.Value) interface{} {
	data, err := eng.Serialize()
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	sel := eng.Selection()
	if sel == nil {
		sel = []string{}
	}
	return toJSON(sel, "[]")
}

// getSelectionBounds returns null when nothing is selected.
func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	bounds, ok := eng.SelectionBounds()
	if !ok {
		return js.Null()
	}
	return toJSON(bounds, "null")
}

func getOverlay(this js.Value, args []js.Value) interface{} {
	return toJSON(machine.Overlay(), "{}")
}

func getCamera(this js.Value, args []js.Value) interface{} {
	cam := machine.Camera()
	cam.Flush()
	return js.ValueOf(map[string]interface{}{"x": cam.X, "y": cam.Y, "zoom": cam.Zoom})
}

func getMode(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(machine.Mode().String())
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanRedo())
}
