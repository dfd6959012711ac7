package wsclient

import (
	"context"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/gorilla/websocket"
)

// Conn is one established connection. The interface is narrow so tests can
// drive the controller against a fake transport.
type Conn interface {
	ReadEnvelope() (wire.Envelope, error)
	WriteEnvelope(env wire.Envelope) error
	Close() error
}

// Dialer establishes connections for the controller.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

type websocketDialer struct {
	handshakeTimeout time.Duration
}

func (d *websocketDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return &websocketConn{conn: conn}, nil
}

type websocketConn struct {
	conn *websocket.Conn
}

func (c *websocketConn) ReadEnvelope() (wire.Envelope, error) {
	var env wire.Envelope
	err := c.conn.ReadJSON(&env)
	return env, err
}

func (c *websocketConn) WriteEnvelope(env wire.Envelope) error {
	return c.conn.WriteJSON(env)
}

func (c *websocketConn) Close() error {
	return c.conn.Close()
}
