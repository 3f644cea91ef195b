// Package session runs a server-side editing session for one board over a
// websocket. Each board has at most one session; input from its single
// client drives an engine and every change is saved through a debounced
// persist.Saver.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inamate/whiteboard/internal/engine"
	"github.com/inamate/whiteboard/internal/geometry"
	"github.com/inamate/whiteboard/internal/interaction"
	"github.com/inamate/whiteboard/internal/persist"
	"github.com/inamate/whiteboard/internal/typeid"
)

var ErrUnknownMessage = errors.New("unknown message type")

type Options struct {
	Engine       engine.Options
	Interaction  interaction.Options
	SaveDebounce time.Duration

	// Now drives the camera throttle; tests override it.
	Now func() time.Time
}

// Session owns the engine and interaction state of one board. It is driven
// from a single goroutine.
type Session struct {
	ID      string
	BoardID string
	UserID  string

	eng     *engine.Engine
	machine *interaction.Machine
	saver   *persist.Saver
	stop    func()

	// loadErr is set when the stored document was rejected and the
	// session started from an empty board.
	loadErr error
	seq     int64
	dirty   bool
}

// New loads data into a fresh engine and wires saving through gw.
func New(boardID, userID string, data []byte, gw persist.Gateway, opts Options) *Session {
	eng := engine.New(opts.Engine)
	s := &Session{
		ID:      typeid.NewSessionID(),
		BoardID: boardID,
		UserID:  userID,
		eng:     eng,
		machine: interaction.NewMachine(eng, interaction.NewCameraWithClock(opts.Now), opts.Interaction),
		saver:   persist.NewSaver(gw, boardID, opts.SaveDebounce),
	}

	if err := eng.Load(data); err != nil {
		s.loadErr = err
		slog.Warn("board document rejected, starting empty", "board", boardID, "error", err)
	} else {
		s.saver.Prime(data)
	}
	s.stop = eng.Subscribe(s.saver.Notify)
	return s
}

// LoadError reports why the stored document could not be loaded, if it
// could not.
func (s *Session) LoadError() error { return s.loadErr }

func (s *Session) Engine() *engine.Engine { return s.eng }

func (s *Session) Machine() *interaction.Machine { return s.machine }

// Handle applies one inbound message. A handled message marks the session
// for the next frame.
func (s *Session) Handle(typ string, payload payloadFunc) error {
	if err := s.handle(typ, payload); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

func (s *Session) handle(typ string, payload payloadFunc) error {
	switch typ {
	case TypePointer:
		var p PointerPayload
		if err := payload(&p); err != nil {
			return fmt.Errorf("decode pointer: %w", err)
		}
		return s.pointer(p)

	case TypeKey:
		var ev interaction.KeyEvent
		if err := payload(&ev); err != nil {
			return fmt.Errorf("decode key: %w", err)
		}
		s.machine.KeyDown(ev)

	case TypeWheel:
		var ev interaction.WheelEvent
		if err := payload(&ev); err != nil {
			return fmt.Errorf("decode wheel: %w", err)
		}
		s.machine.Wheel(ev)

	case TypeTool:
		var p ToolPayload
		if err := payload(&p); err != nil {
			return fmt.Errorf("decode tool: %w", err)
		}
		tool, err := interaction.ParseTool(p.Tool)
		if err != nil {
			return err
		}
		s.machine.SetTool(tool)

	case TypeText:
		var p TextPayload
		if err := payload(&p); err != nil {
			return fmt.Errorf("decode text: %w", err)
		}
		return s.text(p)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, typ)
	}
	return nil
}

func (s *Session) pointer(p PointerPayload) error {
	switch p.Phase {
	case PhaseDown:
		if p.Handle != "" {
			side, err := geometry.ParseSide(p.Handle)
			if err != nil {
				return err
			}
			s.machine.ResizeHandleDown(side, p.Event)
			return nil
		}
		s.machine.PointerDown(p.Event)
	case PhaseMove:
		s.machine.PointerMove(p.Event)
	case PhaseUp:
		s.machine.PointerUp(p.Event)
	case PhaseCancel:
		s.machine.PointerCancel()
	case PhaseLost:
		s.machine.GlobalPointerUp()
	default:
		return fmt.Errorf("unknown pointer phase %q", p.Phase)
	}
	return nil
}

func (s *Session) text(p TextPayload) error {
	switch p.Action {
	case "start":
		if !s.machine.StartTextEdit(p.LayerID) {
			return fmt.Errorf("layer %q is not editable", p.LayerID)
		}
	case "update":
		s.machine.UpdateText(p.Value)
	case "end":
		s.machine.EndTextEdit()
	default:
		return fmt.Errorf("unknown text action %q", p.Action)
	}
	return nil
}

// NextFrame applies throttled camera input and returns a frame if anything
// changed since the last one.
func (s *Session) NextFrame() (FramePayload, bool) {
	flushed := s.machine.Camera().Flush()
	if !s.dirty && !flushed {
		return FramePayload{}, false
	}
	return s.Frame(), true
}

// Frame captures what the client needs to redraw.
func (s *Session) Frame() FramePayload {
	s.dirty = false
	s.seq++

	sel := s.eng.Selection()
	if sel == nil {
		sel = []string{}
	}
	cmds := s.eng.RenderList()
	if cmds == nil {
		cmds = []engine.DrawCommand{}
	}
	cam := s.machine.Camera()
	return FramePayload{
		Seq:       s.seq,
		Commands:  cmds,
		Selection: sel,
		Overlay:   s.machine.Overlay(),
		Camera:    CameraView{X: cam.X, Y: cam.Y, Zoom: cam.Zoom},
		CanUndo:   s.eng.CanUndo(),
		CanRedo:   s.eng.CanRedo(),
	}
}

// Flush saves pending changes now.
func (s *Session) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// Close ends any gesture in progress, saves and stops saving.
func (s *Session) Close(ctx context.Context) error {
	s.machine.GlobalPointerUp()
	s.machine.EndTextEdit()
	err := s.saver.Flush(ctx)
	s.stop()
	s.saver.Close()
	return err
}
