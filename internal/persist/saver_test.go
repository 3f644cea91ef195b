package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
)

type recorder struct {
	mu    sync.Mutex
	saves [][]byte
	err   error
}

func (r *recorder) Save(ctx context.Context, boardID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, data)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func docWith(ids ...string) *document.Document {
	doc := document.New()
	for _, id := range ids {
		doc.Layers[id] = &document.Rectangle{Box: document.Box{Width: 1, Height: 1}}
		doc.LayerIDs = append(doc.LayerIDs, id)
	}
	return doc
}

func TestSaverCoalescesBursts(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(rec, "board_1", 20*time.Millisecond)
	defer s.Close()

	for _, ids := range [][]string{{"a"}, {"a", "b"}, {"a", "b", "c"}} {
		s.Notify(docWith(ids...))
	}

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	parsed, err := document.Parse(rec.saves[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, parsed.LayerIDs, "the latest document wins")
}

func TestSaverSkipsUnchangedPayloads(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(rec, "board_1", time.Hour)
	defer s.Close()

	require.NoError(t, s.Flush(context.Background()), "nothing queued")
	assert.Zero(t, rec.count())

	s.Notify(docWith("a"))
	require.NoError(t, s.Flush(context.Background()))
	s.Notify(docWith("a"))
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, rec.count())

	primed := NewSaver(rec, "board_1", time.Hour)
	defer primed.Close()
	primed.Prime(rec.saves[0])
	primed.Notify(docWith("a"))
	require.NoError(t, primed.Flush(context.Background()))
	assert.Equal(t, 1, rec.count())
}

func TestSaverReportsFailures(t *testing.T) {
	rec := &recorder{err: errors.New("disk full")}
	s := NewSaver(rec, "board_1", time.Hour)
	defer s.Close()

	s.Notify(docWith("a"))
	err := s.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// A failed payload is not remembered as stored.
	rec.err = nil
	s.Notify(docWith("a"))
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, rec.count())
}

func TestSaverCloseDropsPending(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(rec, "board_1", 10*time.Millisecond)

	s.Notify(docWith("a"))
	s.Close()
	s.Notify(docWith("b"))

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, rec.count())
	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, rec.count())
}

func TestGatewayFunc(t *testing.T) {
	var got string
	gw := GatewayFunc(func(ctx context.Context, boardID string, data []byte) error {
		got = boardID
		return nil
	})
	s := NewSaver(gw, "board_9", time.Hour)
	defer s.Close()

	s.Notify(docWith("a"))
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, "board_9", got)
}
