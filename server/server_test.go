package server

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/willmacd/dql-tetris/relay"
	"github.com/willmacd/dql-tetris/render"
	"github.com/willmacd/dql-tetris/tetris"
)

func frame(t *testing.T, name string, score int) *structpb.Struct {
	t.Helper()
	snap := tetris.NewTestSnapshot(tetris.Z)
	snap.Score = score
	s, err := relay.FromSnapshot(name, snap).Struct()
	require.NoError(t, err)
	return s
}

func TestPublishAndWatch(t *testing.T) {
	ctx := context.Background()
	client, r, closer := testServer(ctx)
	defer closer()

	pub, err := client.Publish(ctx)
	require.NoError(t, err)
	require.NoError(t, pub.Send(frame(t, "alice", 10)))

	require.Eventually(t, func() bool { return len(r.Sessions()) == 1 }, time.Second, 5*time.Millisecond)
	id := r.Sessions()[0].ID

	watch, err := client.Watch(ctx, relay.SessionRequest(""))
	require.NoError(t, err)
	got, err := watch.Recv()
	require.NoError(t, err)
	f, err := relay.FrameFromStruct(got)
	require.NoError(t, err)
	assert.Equal(t, id, f.SessionID)
	assert.Equal(t, "alice", f.Name)
	assert.Equal(t, 10, f.Score)

	require.NoError(t, pub.Send(frame(t, "alice", 20)))
	got, err = watch.Recv()
	require.NoError(t, err)
	f, err = relay.FrameFromStruct(got)
	require.NoError(t, err)
	assert.Equal(t, 20, f.Score)

	resp, err := pub.CloseAndRecv()
	require.NoError(t, err)
	assert.Equal(t, id, relay.SessionID(resp))

	_, err = watch.Recv()
	assert.ErrorIs(t, err, io.EOF, "watch ends with the session")
	assert.True(t, r.Sessions()[0].Ended)
}

func TestWatchUnknownSession(t *testing.T) {
	ctx := context.Background()
	client, _, closer := testServer(ctx)
	defer closer()

	tests := map[string]string{
		"unknown id":        "nope",
		"no session at all": "",
	}
	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			watch, err := client.Watch(ctx, relay.SessionRequest(id))
			require.NoError(t, err)
			_, err = watch.Recv()
			assert.Equal(t, codes.NotFound, status.Code(err))
		})
	}
}

func TestPublishRejectsBadFrames(t *testing.T) {
	ctx := context.Background()
	client, r, closer := testServer(ctx)
	defer closer()

	pub, err := client.Publish(ctx)
	require.NoError(t, err)
	bad, err := structpb.NewStruct(map[string]any{"name": "bob", "rows": []any{"00"}})
	require.NoError(t, err)
	if err := pub.Send(bad); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("unexpected send error: %v", err)
	}
	_, err = pub.CloseAndRecv()
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Empty(t, r.Sessions())
}

func TestHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New(nil, 0)
	s := r.open("alice")
	snap := tetris.NewTestSnapshot(tetris.I)
	snap.Score = 70
	r.broadcast(s, relay.FromSnapshot("alice", snap))
	router := NewHTTP(r, render.New(nil))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	t.Run("list", func(t *testing.T) {
		w := get("/sessions")
		require.Equal(t, http.StatusOK, w.Code)
		var list []SessionInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, s.id, list[0].ID)
		assert.Equal(t, 70, list[0].Score)
	})

	t.Run("frame", func(t *testing.T) {
		w := get("/sessions/" + s.id)
		require.Equal(t, http.StatusOK, w.Code)
		var f relay.Frame
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
		assert.Equal(t, "alice", f.Name)
		assert.Len(t, f.Rows, tetris.Height)
	})

	t.Run("board", func(t *testing.T) {
		w := get("/sessions/" + s.id + "/board.png?width=130")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		img, err := png.Decode(w.Body)
		require.NoError(t, err)
		assert.Equal(t, 130, img.Bounds().Dx())
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get("/sessions/nope").Code)
		assert.Equal(t, http.StatusNotFound, get("/sessions/nope/board.png").Code)
		assert.Equal(t, http.StatusBadRequest, get("/sessions/"+s.id+"/board.png?width=wide").Code)
	})
}

func TestEndedSessionsEvicted(t *testing.T) {
	r := New(nil, time.Minute)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	old := r.open("old")
	recent := r.open("recent")
	live := r.open("live")
	r.mu.Lock()
	old.close()
	r.mu.Unlock()

	clock = clock.Add(50 * time.Second)
	r.mu.Lock()
	recent.close()
	r.mu.Unlock()
	r.broadcast(recent, relay.FromSnapshot("recent", tetris.NewTestSnapshot(tetris.O)))
	assert.Len(t, r.Sessions(), 3, "nothing is older than the retention yet")

	clock = clock.Add(20 * time.Second)
	ids := make([]string, 0, 2)
	for _, s := range r.Sessions() {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{recent.id, live.id}, ids, "running games are never evicted")
	_, ok := r.Frame(old.id)
	assert.False(t, ok)

	clock = clock.Add(time.Hour)
	r.open("next")
	_, ok = r.Frame(recent.id)
	assert.False(t, ok)
	_, ok = r.Frame(live.id)
	assert.True(t, ok)
}

func testServer(ctx context.Context) (relay.RelayClient, *Relay, func()) {
	buffer := 101024 * 1024
	lis := bufconn.Listen(buffer)

	r := New(nil, 0)
	s := grpc.NewServer()
	relay.RegisterRelayServer(s, r)
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Printf("unable to serve: %v", err)
		}
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Printf("error connecting to server: %v", err)
	}

	closer := func() {
		if err := conn.Close(); err != nil {
			log.Printf("error closing client: %v", err)
		}
		if err := lis.Close(); err != nil {
			log.Printf("error closing listener: %v", err)
		}
		s.Stop()
	}

	return relay.NewRelayClient(conn), r, closer
}
