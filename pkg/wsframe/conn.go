package wsframe

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	// ErrMissingKey is returned by Upgrade when the request carries no
	// Sec-WebSocket-Key. The client has already been sent a 400.
	ErrMissingKey = errors.New("wsframe: missing Sec-WebSocket-Key")
	// ErrNotUpgrade is returned by Upgrade for a request that does not ask
	// for a WebSocket upgrade. The client has already been sent a 400.
	ErrNotUpgrade = errors.New("wsframe: not a websocket upgrade request")
)

// headerContains reports whether a comma-separated header holds token.
func headerContains(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// Upgrade completes the opening handshake and takes over the connection.
//
// On a handshake error Upgrade replies 400 itself and returns ErrMissingKey
// or ErrNotUpgrade.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	if r.Method != http.MethodGet ||
		!headerContains(r.Header, "Connection", "upgrade") ||
		!headerContains(r.Header, "Upgrade", "websocket") {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return nil, ErrNotUpgrade
	}
	key := strings.TrimSpace(r.Header.Get("Sec-WebSocket-Key"))
	if key == "" {
		http.Error(w, "missing Sec-WebSocket-Key", http.StatusBadRequest)
		return nil, ErrMissingKey
	}

	nc, rw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		return nil, fmt.Errorf("wsframe: hijack: %w", err)
	}

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + AcceptKey(key) + "\r\n\r\n"
	if _, err := rw.WriteString(resp); err != nil {
		nc.Close()
		return nil, fmt.Errorf("wsframe: write handshake: %w", err)
	}
	if err := rw.Flush(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("wsframe: write handshake: %w", err)
	}
	return newConn(nc, rw.Reader, rw.Writer), nil
}

// Conn is a server-side WebSocket connection.
//
// Writes are buffered until Flush. One goroutine may write while another
// runs ReadLoop; the two share the connection under a lock.
type Conn struct {
	nc net.Conn
	br *bufio.Reader

	mu        sync.Mutex
	bw        *bufio.Writer
	closeSent bool
	deadline  time.Time // last data write deadline, restored after control writes

	closeOnce sync.Once
	closeErr  error
}

func newConn(nc net.Conn, br *bufio.Reader, bw *bufio.Writer) *Conn {
	if br == nil {
		br = bufio.NewReader(nc)
	}
	if bw == nil {
		bw = bufio.NewWriter(nc)
	}
	return &Conn{nc: nc, br: br, bw: bw}
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// WriteMessage buffers one unfragmented message.
func (c *Conn) WriteMessage(op Opcode, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeSent {
		return net.ErrClosed
	}
	return WriteFrame(c.bw, op, payload)
}

// WriteBinary buffers one binary message.
func (c *Conn) WriteBinary(payload []byte) error {
	return c.WriteMessage(OpBinary, payload)
}

// Flush writes buffered frames to the connection.
func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bw.Flush()
}

// Buffered returns the number of bytes waiting for Flush.
func (c *Conn) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bw.Buffered()
}

// SetWriteDeadline sets the deadline for future writes and flushes.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return c.nc.SetWriteDeadline(t)
}

// writeControl writes and flushes a control frame immediately. The data
// writer's deadline is put back afterwards.
func (c *Conn) writeControl(op Opcode, payload []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeSent {
		return net.ErrClosed
	}
	if op == OpClose {
		c.closeSent = true
	}
	c.nc.SetWriteDeadline(time.Now().Add(timeout))
	defer c.nc.SetWriteDeadline(c.deadline)
	if err := WriteFrame(c.bw, op, payload); err != nil {
		return err
	}
	return c.bw.Flush()
}

const controlTimeout = time.Second

// ReadLoop consumes client frames until the connection ends. Pings are
// answered with pongs and a close frame is echoed. Data frames are
// discarded. It returns nil after a close handshake and the read error
// otherwise.
func (c *Conn) ReadLoop() error {
	for {
		f, err := ReadFrame(c.br)
		if err != nil {
			if errors.Is(err, ErrFrameTooLarge) {
				c.writeControl(OpClose, ClosePayload(CloseMessageTooBig, ""), controlTimeout)
			} else if errors.Is(err, ErrUnmasked) || errors.Is(err, ErrBadControl) {
				c.writeControl(OpClose, ClosePayload(CloseProtocolError, ""), controlTimeout)
			}
			return err
		}
		switch f.Opcode {
		case OpPing:
			if err := c.writeControl(OpPong, f.Payload, controlTimeout); err != nil {
				return err
			}
		case OpClose:
			// Echo the status code only.
			var payload []byte
			if len(f.Payload) >= 2 {
				payload = f.Payload[:2]
			}
			c.writeControl(OpClose, payload, controlTimeout)
			return nil
		}
	}
}

// Close sends a going-away close frame when none has been sent yet and
// closes the connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeControl(OpClose, ClosePayload(CloseGoingAway, ""), controlTimeout)
		c.closeErr = c.nc.Close()
	})
	return c.closeErr
}
