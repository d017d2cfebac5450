package transport

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"
)

// WebSocketTransport is the client-side half of the socket.io-style
// websocket upgrade: once the initial xhr-polling handshake finishes,
// many pad servers move the connection to a real websocket. It speaks
// the same Envelope vocabulary as XhrPollTransport.
type WebSocketTransport struct {
	*BaseTransport

	endpoint string
	dialer   websocket.Dialer

	conn *websocket.Conn
}

// NewWebSocketTransport returns a transport that will dial endpoint
// (a ws:// or wss:// URL) on Connect.
func NewWebSocketTransport(endpoint string) *WebSocketTransport {
	return &WebSocketTransport{
		BaseTransport: NewBaseTransport(),
		endpoint:      endpoint,
	}
}

// Connect dials the websocket endpoint and starts the receive loop.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return err
	}

	conn, _, err := t.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	t.conn = conn

	go t.receiveLoop()
	return nil
}

// Send marshals env and writes it as a text frame.
func (t *WebSocketTransport) Send(ctx context.Context, env Envelope) error {
	if t.conn == nil {
		return ErrTransportClosed
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.markDisconnected()
		return ErrSendFailed
	}
	return nil
}

// Close closes the underlying connection.
func (t *WebSocketTransport) Close() error {
	t.markDisconnected()
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

func (t *WebSocketTransport) receiveLoop() {
	defer t.markDisconnected()

	for {
		_, payload, err := t.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue
		}

		select {
		case t.recvCh <- env:
		case <-t.disconnect:
			return
		}
	}
}
