package app

import (
	"fmt"

	"github.com/vk/tensorscope/internal/config"
	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/transport/socketio"
	"github.com/vk/tensorscope/internal/transport/websocket"
)

// transports lists every duplex transport compiled into the binary.
var transports = map[string]func(config.Server) conn.Dialer{
	config.TransportWebSocket: func(s config.Server) conn.Dialer {
		return websocket.NewDialer(s.WSURL, s.Timeout)
	},
	config.TransportSocketIO: func(s config.Server) conn.Dialer {
		return socketio.NewDialer(s.WSURL, s.Timeout)
	},
}

func newDialer(s config.Server) (conn.Dialer, error) {
	build, ok := transports[s.Transport]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalid, s.Transport)
	}
	return build(s), nil
}
