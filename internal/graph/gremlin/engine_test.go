package gremlin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarttracing/pkg/platform/sentinel"
)

func TestAwait(t *testing.T) {
	t.Run("returns the call result", func(t *testing.T) {
		got, err := await(context.Background(), func() (int, error) { return 7, nil })
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := await(ctx, func() (int, error) {
			<-release
			return 0, nil
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestMapError(t *testing.T) {
	err := mapError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.ErrorIs(t, mapError(context.Canceled), sentinel.ErrUnavailable)
	assert.ErrorIs(t, mapError(errors.New("vertex with id already exists")), sentinel.ErrConflict)
	assert.Nil(t, mapError(nil))
}

// silentServer accepts the websocket upgrade and never answers a request.
func silentServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/gremlin"
}

func TestCallsAreBoundedByContext(t *testing.T) {
	engine, err := Open(silentServer(t), "g")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()

	err = engine.Ping(ctx)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
