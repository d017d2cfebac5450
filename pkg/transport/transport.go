package transport

import (
	"context"
	"sync"
)

// Transport is a bidirectional channel for exchanging protocol Envelopes
// with a pad server, implemented by both WebSocketTransport and
// XhrPollTransport.
type Transport interface {
	// Connect establishes the connection and starts the receive loop.
	Connect(ctx context.Context) error

	// Send delivers an envelope to the server.
	Send(ctx context.Context, env Envelope) error

	// Receive returns the channel envelopes arrive on.
	Receive() <-chan Envelope

	// Disconnected returns a channel that closes when the transport goes
	// down, whether by Close or by a read/write failure.
	Disconnected() <-chan struct{}

	// Close tears down the connection.
	Close() error
}

// BaseTransport holds the plumbing shared by every Transport
// implementation: the receive channel, a closed-once disconnect signal,
// and a cookie jar standing in for what a browser would persist across
// requests to the same pad.
type BaseTransport struct {
	recvCh         chan Envelope
	disconnect     chan struct{}
	disconnectOnce sync.Once

	mu      sync.Mutex
	cookies map[string]string
}

// NewBaseTransport returns a BaseTransport ready to be embedded in a
// concrete transport.
func NewBaseTransport() *BaseTransport {
	return &BaseTransport{
		recvCh:     make(chan Envelope, 64),
		disconnect: make(chan struct{}),
		cookies:    make(map[string]string),
	}
}

// Receive returns the channel envelopes arrive on.
func (t *BaseTransport) Receive() <-chan Envelope { return t.recvCh }

// Disconnected returns a channel that closes when the transport goes down.
func (t *BaseTransport) Disconnected() <-chan struct{} { return t.disconnect }

// markDisconnected closes the disconnect channel exactly once.
func (t *BaseTransport) markDisconnected() {
	t.disconnectOnce.Do(func() { close(t.disconnect) })
}

// Cookie returns a previously stored cookie value, or "" if unset.
func (t *BaseTransport) Cookie(name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cookies[name]
}

// SetCookie records a cookie value for the lifetime of the transport,
// the way a browser would persist the session id and auth token a pad
// server hands out on first contact.
func (t *BaseTransport) SetCookie(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cookies[name] = value
}

// TransportError describes a transport-level failure.
type TransportError struct {
	Code    string
	Message string
}

func (e *TransportError) Error() string { return e.Message }

var (
	// ErrTransportClosed is returned by WebSocketTransport.Send when no
	// connection has been established yet.
	ErrTransportClosed = &TransportError{Code: "closed", Message: "transport closed"}

	// ErrSendFailed is returned by Send when the underlying write fails;
	// the lower-level error is not retained.
	ErrSendFailed = &TransportError{Code: "send_failed", Message: "failed to send message"}
)
