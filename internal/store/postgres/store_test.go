package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/store"
	"github.com/inamate/whiteboard/internal/store/storetest"
)

// Runs against a scratch database named by WHITEBOARD_TEST_DATABASE_URL.
func TestStore(t *testing.T) {
	url := os.Getenv("WHITEBOARD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("WHITEBOARD_TEST_DATABASE_URL not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, url)
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, `TRUNCATE boards`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
