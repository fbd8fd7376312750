package session

import (
	"sync"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
)

// Transport is the minimal duplex surface a physical connection needs to
// expose to the session layer. The websocket handler in cmd/server wraps
// coder/websocket's *websocket.Conn to satisfy this.
type Transport interface {
	WriteJSON(v protocol.Outbound) error
	Close() error
}

// Connection is the short-lived duplex binding between one physical
// websocket and a Session. It is created fresh on every (re)connect and
// discarded on disconnect; the Session it's attached to is what survives.
type Connection struct {
	SessionID string

	mu sync.Mutex

	transport Transport

	authenticated bool
	capabilities  protocol.Capabilities

	// pending tracks device_command ids awaiting a device_response, so a
	// late or duplicate response can be matched or discarded.
	pending map[string]chan protocol.DeviceResponseIn
}

// NewConnection wraps transport for delivery of stamped outbound envelopes.
func NewConnection(sessionID string, transport Transport) *Connection {
	return &Connection{
		SessionID: sessionID,
		transport: transport,
		pending:   make(map[string]chan protocol.DeviceResponseIn),
	}
}

// Send implements session.Sink by forwarding the envelope over the wire.
func (c *Connection) Send(env protocol.Outbound) error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.WriteJSON(env)
}

// Close tears down the underlying transport. Idempotent-safe to call twice;
// the second call's error, if any, is ignored by callers that only close on
// a best-effort basis.
func (c *Connection) Close() error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Close()
}

// MarkAuthenticated records that a valid auth envelope was received within
// the grace period.
func (c *Connection) MarkAuthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
}

func (c *Connection) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// SetCapabilities records the client's declared capabilities so the
// pipeline can skip emitting e.g. buttons or images to a client that
// can't render them.
func (c *Connection) SetCapabilities(caps protocol.Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capabilities = caps
}

func (c *Connection) Capabilities() protocol.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capabilities
}

// AwaitDeviceResponse registers id as awaiting a response and returns a
// channel that receives it. The caller is responsible for eventually
// calling ResolveDeviceResponse or abandoning the wait on context timeout;
// either way a subsequent call with the same id is a no-op replacement.
func (c *Connection) AwaitDeviceResponse(id string) <-chan protocol.DeviceResponseIn {
	ch := make(chan protocol.DeviceResponseIn, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch
}

// ResolveDeviceResponse delivers resp to whatever goroutine is awaiting the
// matching device_command id, if any. A response with an unrecognized or
// already-resolved id is silently dropped.
func (c *Connection) ResolveDeviceResponse(resp protocol.DeviceResponseIn) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}
