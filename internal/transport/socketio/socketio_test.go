package socketio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload(t *testing.T) {
	testCases := []struct {
		name string
		arg  any
		want string
	}{
		{name: "text", arg: `{"type":"error","message":"x"}`, want: `{"type":"error","message":"x"}`},
		{name: "bytes", arg: []byte(`{"type":"error"}`), want: `{"type":"error"}`},
		{name: "decoded object", arg: map[string]any{"type": "error", "message": "x"}, want: `{"type":"error","message":"x"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := payload(tc.arg)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

func TestHTTPScheme(t *testing.T) {
	assert.Equal(t, "http", httpScheme("ws"))
	assert.Equal(t, "https", httpScheme("wss"))
	assert.Equal(t, "https", httpScheme("https"))
}

func TestDial_BadURL(t *testing.T) {
	_, err := NewDialer("://nope", time.Second).Dial(context.Background())
	assert.ErrorContains(t, err, "failed to parse URL")
}

func TestDial_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Either the cancelled context or the refused connection ends the dial.
	_, err := NewDialer("http://127.0.0.1:1/socket.io/", 5*time.Second).Dial(ctx)
	assert.Error(t, err)
}
