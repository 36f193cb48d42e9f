package hyperate

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// transport is one open socket. It tolerates one concurrent reader alongside
// any number of writers; writes are serialized internally.
type transport interface {
	// read blocks until a complete message has been reassembled.
	read() ([]byte, error)

	// write sends data as a single text message.
	write(ctx context.Context, data []byte) error

	// close sends a close frame and releases the socket.
	close(ctx context.Context) error
}

// dialer opens a transport to the given URL.
type dialer func(ctx context.Context, rawURL string) (transport, error)

const closeFrameTimeout = time.Second

// wsTransport implements transport with gorilla/websocket.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func websocketDialer(handshakeTimeout, writeTimeout time.Duration) dialer {
	return func(ctx context.Context, rawURL string) (transport, error) {
		d := websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		}
		conn, _, err := d.DialContext(ctx, rawURL, nil)
		if err != nil {
			return nil, err
		}
		return &wsTransport{conn: conn, writeTimeout: writeTimeout}, nil
	}
}

func (t *wsTransport) read() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

// write blocks for at most the write timeout or until ctx is done. A write
// interrupted by ctx leaves the socket unusable, so the next send fails and
// the connection is reported lost.
func (t *wsTransport) write(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return errors.Wrap(err, "set write deadline")
	}

	stop := context.AfterFunc(ctx, func() {
		t.conn.NetConn().SetWriteDeadline(time.Now())
	})
	defer stop()

	err := t.conn.WriteMessage(websocket.TextMessage, data)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// The socket deadline can fire just before the context's own timer.
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	return err
}

// cancelled reports whether err means the caller gave up rather than the
// connection failing.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (t *wsTransport) close(ctx context.Context) error {
	deadline := time.Now().Add(closeFrameTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// The peer may already be gone; the socket is released regardless.
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return errors.Wrap(t.conn.Close(), "close socket")
}

// isCloseReceived reports whether err came from a close frame sent by the server.
func isCloseReceived(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}
