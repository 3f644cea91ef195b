package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/auth"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/interaction"
	"github.com/inamate/whiteboard/internal/persist"
	"github.com/inamate/whiteboard/internal/store"
	"github.com/inamate/whiteboard/internal/store/memory"
)

type recordingGateway struct {
	mu    sync.Mutex
	saves [][]byte
}

func (g *recordingGateway) Save(_ context.Context, _ string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, data)
	return nil
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saves)
}

func handle(t *testing.T, s *Session, cd codec, typ string, payload any) error {
	t.Helper()
	data, err := cd.encode(typ, payload)
	require.NoError(t, err)
	gotType, fn, err := cd.decode(data)
	require.NoError(t, err)
	return s.Handle(gotType, fn)
}

func emptyDoc(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(document.New())
	require.NoError(t, err)
	return data
}

func TestCodecsRoundTrip(t *testing.T) {
	for _, enc := range []string{"json", "msgpack"} {
		t.Run(enc, func(t *testing.T) {
			cd, err := codecFor(enc)
			require.NoError(t, err)

			in := PointerPayload{
				Phase:  PhaseDown,
				Event:  interaction.PointerEvent{X: 12.5, Y: -3, Pressure: 0.5, Shift: true},
				Handle: "bottom-right",
			}
			data, err := cd.encode(TypePointer, in)
			require.NoError(t, err)

			typ, payload, err := cd.decode(data)
			require.NoError(t, err)
			assert.Equal(t, TypePointer, typ)

			var out PointerPayload
			require.NoError(t, payload(&out))
			assert.Equal(t, in, out)
		})
	}
}

func TestCodecMissingPayload(t *testing.T) {
	cd, _ := codecFor("json")
	typ, payload, err := cd.decode([]byte(`{"type":"input.tool"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeTool, typ)
	assert.ErrorIs(t, payload(&ToolPayload{}), errMissingPayload)

	_, err = codecFor("xml")
	assert.Error(t, err)
}

func TestMsgpackUsesJSONFieldNames(t *testing.T) {
	cd, _ := codecFor("msgpack")
	data, err := cd.encode(TypeFrame, FramePayload{Seq: 7, CanUndo: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), "canUndo")
	assert.NotContains(t, string(data), "CanUndo")
}

func TestHandleDrivesMachine(t *testing.T) {
	gw := &recordingGateway{}
	s := New("board_1", "user_1", emptyDoc(t), gw, Options{SaveDebounce: time.Hour})
	defer s.Close(context.Background())
	cd, _ := codecFor("json")

	require.NoError(t, handle(t, s, cd, TypeTool, ToolPayload{Tool: "rectangle"}))
	assert.Equal(t, interaction.ToolInsert(document.KindRectangle), s.Machine().Tool())

	require.NoError(t, handle(t, s, cd, TypePointer, PointerPayload{Phase: PhaseDown, Event: interaction.PointerEvent{X: 10, Y: 10}}))
	require.NoError(t, handle(t, s, cd, TypePointer, PointerPayload{Phase: PhaseUp, Event: interaction.PointerEvent{X: 10, Y: 10}}))
	require.Equal(t, 1, s.Engine().Len())

	frame := s.Frame()
	assert.EqualValues(t, 1, frame.Seq)
	assert.NotEmpty(t, frame.Commands)
	assert.True(t, frame.CanUndo)
	assert.Len(t, frame.Selection, 1)

	assert.Zero(t, gw.count(), "saves wait for the debounce")
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, gw.count())

	require.NoError(t, handle(t, s, cd, TypeKey, interaction.KeyEvent{Key: "z", Ctrl: true}))
	assert.Zero(t, s.Engine().Len())
	frame = s.Frame()
	assert.EqualValues(t, 2, frame.Seq)
	assert.True(t, frame.CanRedo)

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 2, gw.count())
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 2, gw.count(), "nothing pending")
}

func TestHandleTextAndWheel(t *testing.T) {
	s := New("board_1", "user_1", emptyDoc(t), &recordingGateway{}, Options{SaveDebounce: time.Hour})
	defer s.Close(context.Background())
	cd, _ := codecFor("msgpack")

	id, err := s.Engine().Insert(&document.Text{Box: document.Box{Width: 100, Height: 40}, Value: "a"})
	require.NoError(t, err)

	require.NoError(t, handle(t, s, cd, TypeText, TextPayload{Action: "start", LayerID: id}))
	require.NoError(t, handle(t, s, cd, TypeText, TextPayload{Action: "update", Value: "hello"}))
	require.NoError(t, handle(t, s, cd, TypeText, TextPayload{Action: "end"}))
	l, _ := s.Engine().Layer(id)
	v, _ := document.TextOf(l)
	assert.Equal(t, "hello", v)

	assert.Error(t, handle(t, s, cd, TypeText, TextPayload{Action: "start", LayerID: "missing"}))

	require.NoError(t, handle(t, s, cd, TypeWheel, interaction.WheelEvent{DeltaX: 5, DeltaY: 7}))
	cam := s.Frame().Camera
	assert.InDelta(t, -5, cam.X, 1e-9)
	assert.InDelta(t, -7, cam.Y, 1e-9)
}

func TestWheelBurstYieldsOneFrame(t *testing.T) {
	now := time.Unix(0, 0)
	s := New("board_1", "user_1", emptyDoc(t), &recordingGateway{}, Options{
		SaveDebounce: time.Hour,
		Now:          func() time.Time { return now },
	})
	defer s.Close(context.Background())
	cd, _ := codecFor("json")

	_, ok := s.NextFrame()
	assert.False(t, ok, "nothing to draw yet")

	for range 50 {
		require.NoError(t, handle(t, s, cd, TypeWheel, interaction.WheelEvent{DeltaY: 2}))
	}
	cam := s.Machine().Camera()
	assert.Equal(t, -2.0, cam.Y, "later deltas wait for the next frame")

	frame, ok := s.NextFrame()
	require.True(t, ok)
	assert.EqualValues(t, 1, frame.Seq)
	assert.InDelta(t, -100, frame.Camera.Y, 1e-9)

	_, ok = s.NextFrame()
	assert.False(t, ok)
}

func TestHandleRejectsUnknownInput(t *testing.T) {
	s := New("board_1", "user_1", emptyDoc(t), &recordingGateway{}, Options{})
	defer s.Close(context.Background())
	cd, _ := codecFor("json")

	assert.ErrorIs(t, handle(t, s, cd, "input.gamepad", ToolPayload{}), ErrUnknownMessage)
	assert.Error(t, handle(t, s, cd, TypeTool, ToolPayload{Tool: "laser"}))
	assert.Error(t, handle(t, s, cd, TypePointer, PointerPayload{Phase: "hover"}))
	assert.Error(t, handle(t, s, cd, TypePointer, PointerPayload{Phase: PhaseDown, Handle: "middle"}))
}

func TestRejectedDocumentStartsEmpty(t *testing.T) {
	gw := &recordingGateway{}
	s := New("board_1", "user_1", []byte(`{"layers":{"a":{"type":"blob"}},"layerIds":["a"]}`), gw, Options{})
	require.Error(t, s.LoadError())
	assert.Zero(t, s.Engine().Len())
	require.NoError(t, s.Close(context.Background()))
	assert.Zero(t, gw.count(), "nothing changed, nothing saved")
}

func TestHubSingleEditor(t *testing.T) {
	h := NewHub()
	s1 := New("board_1", "user_1", emptyDoc(t), &recordingGateway{}, Options{})
	s2 := New("board_1", "user_1", emptyDoc(t), &recordingGateway{}, Options{})
	c1 := &Client{session: s1}
	c2 := &Client{session: s2}

	require.NoError(t, h.Register(c1))
	assert.ErrorIs(t, h.Register(c2), ErrBoardBusy)
	assert.True(t, h.Active("board_1"))

	h.Unregister(c2)
	assert.True(t, h.Active("board_1"), "a rejected client cannot release the board")

	require.NoError(t, h.Stop(context.Background()))
	h.Unregister(c1)
	assert.False(t, h.Active("board_1"))
	assert.Zero(t, h.Len())
}

type wsFixture struct {
	srv     *httptest.Server
	store   store.Store
	hub     *Hub
	token   string
	userID  string
	boardID string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	st := memory.New()
	authSvc := auth.NewService("test-secret", time.Hour)
	tok, err := authSvc.Issue("")
	require.NoError(t, err)

	b, err := st.CreateBoard(context.Background(), store.Board{ID: "board_1", OwnerID: tok.UserID, Name: "Plan"}, emptyDoc(t))
	require.NoError(t, err)

	hub := NewHub()
	h := NewHandler(hub, authSvc, st, Options{SaveDebounce: 10 * time.Millisecond}, nil)
	r := mux.NewRouter()
	r.HandleFunc("/ws/boards/{boardId}", h.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &wsFixture{srv: srv, store: st, hub: hub, token: tok.Token, userID: tok.UserID, boardID: b.ID}
}

func (f *wsFixture) url(boardID, query string) string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/boards/" + boardID + "?" + query
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, cd codec) (string, payloadFunc) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	typ, payload, err := cd.decode(data)
	require.NoError(t, err)
	return typ, payload
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, cd codec, typ string, payload any) {
	t.Helper()
	data, err := cd.encode(typ, payload)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, cd.frameType(), data))
}

func TestWebSocketSessionSavesBoard(t *testing.T) {
	for _, enc := range []string{"json", "msgpack"} {
		t.Run(enc, func(t *testing.T) {
			f := newWSFixture(t)
			cd, _ := codecFor(enc)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			conn, _, err := websocket.Dial(ctx, f.url(f.boardID, "token="+f.token+"&encoding="+enc), nil)
			require.NoError(t, err)

			typ, payload := readMessage(t, ctx, conn, cd)
			require.Equal(t, TypeWelcome, typ)
			var welcome WelcomePayload
			require.NoError(t, payload(&welcome))
			assert.Equal(t, f.boardID, welcome.BoardID)
			assert.NotEmpty(t, welcome.SessionID)

			typ, _ = readMessage(t, ctx, conn, cd)
			require.Equal(t, TypeFrame, typ)

			// A second editor is turned away while the first is connected.
			_, resp, err := websocket.Dial(ctx, f.url(f.boardID, "token="+f.token), nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusConflict, resp.StatusCode)

			send(t, ctx, conn, cd, TypeTool, ToolPayload{Tool: "note"})
			typ, _ = readMessage(t, ctx, conn, cd)
			require.Equal(t, TypeFrame, typ)

			send(t, ctx, conn, cd, TypePointer, PointerPayload{Phase: PhaseDown, Event: interaction.PointerEvent{X: 40, Y: 40}})
			readMessage(t, ctx, conn, cd)
			send(t, ctx, conn, cd, TypePointer, PointerPayload{Phase: PhaseUp, Event: interaction.PointerEvent{X: 40, Y: 40}})
			typ, payload = readMessage(t, ctx, conn, cd)
			require.Equal(t, TypeFrame, typ)
			var frame FramePayload
			require.NoError(t, payload(&frame))
			assert.NotEmpty(t, frame.Commands)
			assert.True(t, frame.CanUndo)

			send(t, ctx, conn, cd, "input.unknown", ToolPayload{})
			typ, _ = readMessage(t, ctx, conn, cd)
			assert.Equal(t, TypeError, typ)

			require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

			require.Eventually(t, func() bool {
				data, err := f.store.LoadDocument(context.Background(), f.userID, f.boardID)
				return err == nil && strings.Contains(string(data), `"note"`)
			}, 2*time.Second, 10*time.Millisecond)
			require.Eventually(t, func() bool { return !f.hub.Active(f.boardID) }, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestWebSocketRejectsBadRequests(t *testing.T) {
	f := newWSFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name   string
		board  string
		query  string
		status int
	}{
		{"missing token", f.boardID, "", http.StatusUnauthorized},
		{"bad token", f.boardID, "token=nope", http.StatusUnauthorized},
		{"unknown board", "board_2", "token=" + f.token, http.StatusNotFound},
		{"bad encoding", f.boardID, "token=" + f.token + "&encoding=xml", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.Dial(ctx, f.url(tt.board, tt.query), nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

var _ persist.Gateway = (*recordingGateway)(nil)
