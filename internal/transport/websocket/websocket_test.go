package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/protocol"
)

// echoServer answers every subscribe with a tensor_update for the same id.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if !strings.Contains(string(data), `"subscribe"`) {
				continue
			}
			reply := `{"type":"tensor_update","tensor_id":"A.out","summary":{"id":"A.out","kind":"vector","shape":[3]}}`
			if err := c.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialer_RoundTrip(t *testing.T) {
	srv := echoServer(t)
	ctx := context.Background()

	ch, err := NewDialer(wsURL(srv), time.Second).Dial(ctx)
	require.NoError(t, err)
	defer ch.Close()

	data, err := protocol.Encode(protocol.Subscribe{TensorID: "A.out"})
	require.NoError(t, err)
	require.NoError(t, ch.Send(ctx, data))

	reply, err := ch.Receive(ctx)
	require.NoError(t, err)
	msg, err := protocol.Decode(reply)
	require.NoError(t, err)
	assert.Equal(t, "A.out", msg.(protocol.TensorUpdate).TensorID)
}

func TestDialer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewDialer(wsURL(srv), time.Second).Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestChannel_Close(t *testing.T) {
	srv := echoServer(t)
	ch, err := NewDialer(wsURL(srv), time.Second).Dial(context.Background())
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	assert.NoError(t, ch.Close(), "second close is a no-op")
	assert.ErrorIs(t, ch.Send(context.Background(), []byte(`{}`)), conn.ErrClosed)
}

func TestChannel_ReceiveHonorsContext(t *testing.T) {
	srv := echoServer(t)
	ch, err := NewDialer(wsURL(srv), time.Second).Dial(context.Background())
	require.NoError(t, err)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = ch.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManagerOverWebsocket(t *testing.T) {
	srv := echoServer(t)
	m := conn.NewManager(NewDialer(wsURL(srv), time.Second), conn.DefaultConfig())
	m.Start(context.Background())
	defer m.Close()

	deadline := time.After(2 * time.Second)
	for m.State() != conn.Connected {
		select {
		case <-m.States():
		case <-deadline:
			t.Fatal("manager never connected")
		}
	}

	require.NoError(t, m.Subscribe(context.Background(), "A.out", ""))
	select {
	case msg := <-m.Messages():
		assert.IsType(t, protocol.TensorUpdate{}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
