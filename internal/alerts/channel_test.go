package alerts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotmon/internal/logging"
	"iotmon/internal/models"
)

type staticToken string

func (t staticToken) Get() (string, bool) { return string(t), t != "" }

type wsServer struct {
	*httptest.Server
	conns   chan *websocket.Conn
	headers chan http.Header
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{
		conns:   make(chan *websocket.Conn, 4),
		headers: make(chan http.Header, 4),
	}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.headers <- r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil
	}
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func waitLen(t *testing.T, feed *Feed, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return feed.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func openChannel(t *testing.T, srv *wsServer, feed *Feed) (*Channel, *websocket.Conn) {
	t.Helper()
	ch := NewChannel(srv.URL(), staticToken("abc123"), feed, logging.NewNop())
	t.Cleanup(ch.Close)
	require.NoError(t, ch.Open(context.Background()))
	return ch, srv.accept(t)
}

func TestChannel_SendsBearerOnHandshake(t *testing.T) {
	srv := newWSServer(t)
	openChannel(t, srv, NewFeed(0))

	header := <-srv.headers
	assert.Equal(t, "Bearer abc123", header.Get("Authorization"))
}

func TestChannel_NoCredentialNoHeader(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.URL(), staticToken(""), NewFeed(0), logging.NewNop())
	t.Cleanup(ch.Close)
	require.NoError(t, ch.Open(context.Background()))

	header := <-srv.headers
	assert.Empty(t, header.Get("Authorization"))
}

func TestChannel_NotificationPrependsAlert(t *testing.T) {
	srv := newWSServer(t)
	feed := NewFeed(0)
	feed.Replace([]models.Alert{{ID: "old"}})
	ch, conn := openChannel(t, srv, feed)
	assert.Equal(t, StateOpen, ch.State())

	send(t, conn, `{"type":"notification","alert":{"id":"a1","metric":"cpu_usage","value":91.5}}`)
	waitLen(t, feed, 2)

	got := feed.Snapshot()
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "cpu_usage", got[0].Metric)
	assert.InDelta(t, 91.5, got[0].Value, 0.001)
	assert.Equal(t, "old", got[1].ID)
}

func TestChannel_IgnoresOtherEventTypes(t *testing.T) {
	srv := newWSServer(t)
	feed := NewFeed(0)
	_, conn := openChannel(t, srv, feed)

	send(t, conn, `{"type":"ping"}`)
	send(t, conn, `{"type":"notification","alert":{"id":"a1"}}`)
	waitLen(t, feed, 1)
	assert.Equal(t, "a1", feed.Snapshot()[0].ID)
}

func TestChannel_AcceptsNaiveTimestamps(t *testing.T) {
	srv := newWSServer(t)
	feed := NewFeed(0)
	_, conn := openChannel(t, srv, feed)

	send(t, conn, `{"type":"notification","alert":{"id":"a1","created_at":"2024-01-01T00:00:00"}}`)
	send(t, conn, `{"type":"notification","alert":{"id":"a2","created_at":"2024-01-01T00:00:00.123456"}}`)
	waitLen(t, feed, 2)

	got := feed.Snapshot()
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 123456000, time.UTC), got[0].CreatedAt.Time)
	assert.Equal(t, "a1", got[1].ID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[1].CreatedAt.Time)
}

func TestChannel_DropsMalformedMessages(t *testing.T) {
	srv := newWSServer(t)
	feed := NewFeed(0)
	base, hook := test.NewNullLogger()
	ch := NewChannel(srv.URL(), staticToken("abc123"), feed, logging.Wrap(base))
	t.Cleanup(ch.Close)
	require.NoError(t, ch.Open(context.Background()))
	conn := srv.accept(t)

	send(t, conn, `not json`)
	send(t, conn, `{"type":"notification"}`)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	send(t, conn, `{"type":"notification","alert":{"id":"a2"}}`)

	waitLen(t, feed, 1)
	assert.Equal(t, "a2", feed.Snapshot()[0].ID)
	assert.Equal(t, StateOpen, ch.State())

	var warnings int
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Dropping malformed") {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestChannel_OpenIsIdempotent(t *testing.T) {
	srv := newWSServer(t)
	ch, _ := openChannel(t, srv, NewFeed(0))

	require.NoError(t, ch.Open(context.Background()))
	require.NoError(t, ch.Open(context.Background()))

	select {
	case <-srv.conns:
		t.Fatal("second handshake performed")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, StateOpen, ch.State())
}

func TestChannel_CloseIsIdempotentAndTerminal(t *testing.T) {
	srv := newWSServer(t)
	ch, _ := openChannel(t, srv, NewFeed(0))

	ch.Close()
	ch.Close()

	assert.Equal(t, StateClosed, ch.State())
	assert.True(t, ch.Terminated())
	assert.ErrorIs(t, ch.Open(context.Background()), ErrTerminated)
	select {
	case <-ch.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestChannel_CloseBeforeOpen(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/unused", staticToken(""), NewFeed(0), logging.NewNop())
	ch.Close()
	assert.ErrorIs(t, ch.Open(context.Background()), ErrTerminated)
}

func TestChannel_ServerCloseTransitionsToClosed(t *testing.T) {
	srv := newWSServer(t)
	base, hook := test.NewNullLogger()
	feed := NewFeed(0)
	ch := NewChannel(srv.URL(), staticToken("abc123"), feed, logging.Wrap(base))
	t.Cleanup(ch.Close)
	require.NoError(t, ch.Open(context.Background()))
	conn := srv.accept(t)

	conn.Close()

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not observe transport close")
	}
	assert.Equal(t, StateClosed, ch.State())
	assert.ErrorIs(t, ch.Open(context.Background()), ErrTerminated)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestChannel_HandshakeFailureTerminates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	ch := NewChannel("ws"+strings.TrimPrefix(srv.URL, "http"), staticToken("tok"), NewFeed(0), logging.NewNop())
	err := ch.Open(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTerminated)
	assert.True(t, ch.Terminated())
	assert.ErrorIs(t, ch.Open(context.Background()), ErrTerminated)
}

func TestChannel_CloseWhileConnecting(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		conn, err := upgrader.Upgrade(w, r, nil)
		if err == nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	ch := NewChannel("ws"+strings.TrimPrefix(srv.URL, "http"), staticToken(""), NewFeed(0), logging.NewNop())

	var (
		wg      sync.WaitGroup
		openErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		openErr = ch.Open(context.Background())
	}()

	<-entered
	assert.Equal(t, StateConnecting, ch.State())
	ch.Close()
	close(release)
	wg.Wait()

	assert.ErrorIs(t, openErr, ErrTerminated)
	assert.Equal(t, StateClosed, ch.State())
}
