package wsframe

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestAcceptKey(t *testing.T) {
	// Example from RFC 6455 section 1.3.
	if got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="); got != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Fatalf("AcceptKey = %q, want %q", got, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")
	}
}

func TestAppendHeader(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x82, 0}},
		{124, []byte{0x82, 124}},
		{125, []byte{0x82, 125}},
		{126, []byte{0x82, 126, 0, 126}},
		{300, []byte{0x82, 126, 0x01, 0x2C}},
		{65535, []byte{0x82, 126, 0xFF, 0xFF}},
		{65536, []byte{0x82, 127, 0, 0, 0, 0, 0, 1, 0, 0}},
		{70000, []byte{0x82, 127, 0, 0, 0, 0, 0, 0x01, 0x11, 0x70}},
	}
	for _, tt := range tests {
		if got := AppendHeader(nil, OpBinary, tt.n); !bytes.Equal(got, tt.want) {
			t.Errorf("AppendHeader(%d) = %x, want %x", tt.n, got, tt.want)
		}
	}
}

func TestAppendFrame(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 300)
	got := AppendFrame(nil, OpBinary, payload)
	if len(got) != 4+300 {
		t.Fatalf("len = %d, want 304", len(got))
	}
	if !bytes.Equal(got[4:], payload) {
		t.Error("payload not copied verbatim")
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, OpBinary, payload); err != nil {
		t.Fatalf("WriteFrame error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), got) {
		t.Error("WriteFrame and AppendFrame disagree")
	}
}

// maskedFrame builds a client frame the way a browser would.
func maskedFrame(op Opcode, fin bool, payload []byte) []byte {
	b0 := byte(op)
	if fin {
		b0 |= 0x80
	}
	hdr := AppendHeader(nil, op, len(payload))
	hdr[0] = b0
	hdr[1] |= 0x80
	mask := [4]byte{1, 2, 3, 4}
	out := append(hdr, mask[:]...)
	for i, c := range payload {
		out = append(out, c^mask[i&3])
	}
	return out
}

func TestReadFrame(t *testing.T) {
	for _, n := range []int{0, 5, 125, 126, 300, 70000} {
		payload := bytes.Repeat([]byte("x"), n)
		f, err := ReadFrame(bytes.NewReader(maskedFrame(OpText, true, payload)))
		if err != nil {
			t.Fatalf("ReadFrame(%d) error: %v", n, err)
		}
		if !f.Fin || f.Opcode != OpText || !bytes.Equal(f.Payload, payload) {
			t.Errorf("ReadFrame(%d) = fin %v op %v len %d", n, f.Fin, f.Opcode, len(f.Payload))
		}
	}
}

func TestReadFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"unmasked", AppendFrame(nil, OpBinary, []byte("hi")), ErrUnmasked},
		{"fragmented ping", maskedFrame(OpPing, false, nil), ErrBadControl},
		{"long ping", maskedFrame(OpPing, true, make([]byte, 126)), ErrBadControl},
		{"too large", []byte{0x82, 0xFF, 0, 0, 0, 0, 0x10, 0, 0, 0}, ErrFrameTooLarge},
		{"truncated", maskedFrame(OpBinary, true, []byte("hello"))[:8], io.ErrUnexpectedEOF},
		{"empty", nil, io.EOF},
	}
	for _, tt := range tests {
		_, err := ReadFrame(bytes.NewReader(tt.in))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: ReadFrame error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestUpgrade_Rejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := Upgrade(w, r); err == nil {
			t.Error("Upgrade succeeded")
		}
	}))
	defer srv.Close()

	// Missing key.
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing key status = %d, want 400", resp.StatusCode)
	}

	// Plain GET.
	resp, err = http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("plain GET status = %d, want 400", resp.StatusCode)
	}
}

func TestConn_GorillaClient(t *testing.T) {
	serverDone := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			serverDone <- err
			return
		}
		defer c.Close()

		for _, n := range []int{10, 300, 70000} {
			if err := c.WriteBinary(bytes.Repeat([]byte{byte(n)}, n)); err != nil {
				serverDone <- err
				return
			}
		}
		if err := c.Flush(); err != nil {
			serverDone <- err
			return
		}
		serverDone <- c.ReadLoop()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer ws.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d, want 101", resp.StatusCode)
	}

	for _, n := range []int{10, 300, 70000} {
		typ, msg, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage error: %v", err)
		}
		if typ != websocket.BinaryMessage || len(msg) != n || msg[0] != byte(n) {
			t.Fatalf("message = type %d len %d, want binary len %d", typ, len(msg), n)
		}
	}

	// Ping is answered with a pong carrying the same payload.
	pong := make(chan string, 1)
	ws.SetPongHandler(func(data string) error {
		pong <- data
		return nil
	})
	if err := ws.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("ping error: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	go ws.ReadMessage()
	select {
	case data := <-pong:
		if data != "hb" {
			t.Errorf("pong payload = %q, want %q", data, "hb")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no pong")
	}

	// A client close ends ReadLoop cleanly.
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("close error: %v", err)
	}
	select {
	case err := <-serverDone:
		if err != nil {
			t.Fatalf("server ReadLoop = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe close")
	}
}

// deadlineConn records write deadlines set on the connection.
type deadlineConn struct {
	net.Conn
	mu        sync.Mutex
	deadlines []time.Time
}

func (d *deadlineConn) SetWriteDeadline(t time.Time) error {
	d.mu.Lock()
	d.deadlines = append(d.deadlines, t)
	d.mu.Unlock()
	return d.Conn.SetWriteDeadline(t)
}

func (d *deadlineConn) last() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deadlines[len(d.deadlines)-1]
}

func TestConn_PongKeepsDataDeadline(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	go io.Copy(io.Discard, client)

	dc := &deadlineConn{Conn: server}
	c := newConn(dc, nil, nil)
	defer c.Close()

	data := time.Now().Add(10 * time.Second)
	if err := c.SetWriteDeadline(data); err != nil {
		t.Fatal(err)
	}
	if err := c.writeControl(OpPong, []byte("hb"), controlTimeout); err != nil {
		t.Fatalf("writeControl error: %v", err)
	}
	if got := dc.last(); !got.Equal(data) {
		t.Fatalf("deadline after pong = %v, want %v", got, data)
	}

	// With no data deadline set, the control deadline is cleared again.
	c2 := newConn(dc, nil, nil)
	if err := c2.writeControl(OpPong, nil, controlTimeout); err != nil {
		t.Fatalf("writeControl error: %v", err)
	}
	if got := dc.last(); !got.IsZero() {
		t.Fatalf("deadline after pong = %v, want none", got)
	}
}
