package client

import (
	"context"
	"sync"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/transport"
)

// fakeTransport is an in-memory transport.Transport recording every
// envelope handed to Send, so tests can assert on what a Client sent
// without a real socket.
type fakeTransport struct {
	*transport.BaseTransport

	mu         sync.Mutex
	sent       []transport.Envelope
	connectErr error
	closed     bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{BaseTransport: transport.NewBaseTransport()}
}

func (f *fakeTransport) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeTransport) Send(ctx context.Context, env transport.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Sent() []transport.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Envelope, len(f.sent))
	copy(out, f.sent)
	return out
}
