package app

import (
	"bytes"
	"encoding/json"
	"net"
	"sync"

	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
	"github.com/arpanpaul-gh/InMemory-DB/pkg/pool"
)

// framePool recycles the scratch buffers used to assemble outbound frames.
var framePool = pool.NewLitePool(func() *frameBuffer {
	return &frameBuffer{buf: make([]byte, 0, 512)}
})

type frameBuffer struct {
	buf []byte
}

func (b *frameBuffer) Reset() {
	b.buf = b.buf[:0]
}

// connection wraps an accepted socket. Protocol replies and bus deliveries
// share the socket, so every write goes through one mutex; reads stay with
// the owning worker and need no coordination (send and receive operate on
// disjoint halves of the stream).
type connection struct {
	sock    net.Conn
	pending []byte // bytes received but not yet framed
	scratch [512]byte
	id      uint64
	writeMu sync.Mutex
}

func newConnection(id uint64, sock net.Conn) *connection {
	return &connection{id: id, sock: sock}
}

// ID implements ports.Subscriber.
func (c *connection) ID() uint64 { return c.id }

// Send implements ports.Subscriber: bus deliveries are written like any
// other frame. An error here tells the bus the peer is gone.
func (c *connection) Send(d domain.Delivery) error {
	return c.writeFrame(d)
}

// writeFrame marshals v and writes it as one newline-terminated frame.
func (c *connection) writeFrame(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	frame := framePool.Get()
	defer framePool.Put(frame)
	frame.buf = append(frame.buf, payload...)
	frame.buf = append(frame.buf, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.sock.Write(frame.buf)
	return err
}

// readFrame returns the next newline-delimited frame, reading more bytes
// from the socket as needed. Deadline handling is the caller's: a timeout
// surfaces as a net.Error with any partial bytes kept in c.pending for the
// next call. Frames larger than max terminate the connection.
func (c *connection) readFrame(max int) ([]byte, error) {
	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			if i > max {
				return nil, domain.ErrFrameTooLarge
			}
			frame := bytes.TrimRight(c.pending[:i], "\r")
			rest := c.pending[i+1:]
			out := make([]byte, len(frame))
			copy(out, frame)
			c.pending = append(c.pending[:0], rest...)
			return out, nil
		}
		if len(c.pending) > max {
			return nil, domain.ErrFrameTooLarge
		}

		n, err := c.sock.Read(c.scratch[:])
		if n > 0 {
			c.pending = append(c.pending, c.scratch[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (c *connection) close() {
	_ = c.sock.Close()
}
