package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// ErrSendBufferFull is reported when a client cannot keep up with outbound
// traffic; the registry treats it like any other send failure and drops the
// connection.
var ErrSendBufferFull = errors.New("send buffer full")

var errConnClosed = errors.New("connection closed")

// WSConn wraps a websocket connection with a buffered outbound channel so a
// slow or dead socket never blocks the goroutine broadcasting to it.
type WSConn struct {
	conn   *websocket.Conn
	send   chan any
	logger *logrus.Entry

	closeOnce sync.Once
	closed    chan struct{}
}

func NewWSConn(conn *websocket.Conn, logger *logrus.Entry) *WSConn {
	return &WSConn{
		conn:   conn,
		send:   make(chan any, sendBufferSize),
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Send queues a payload for delivery. It never blocks: a full buffer or a
// closed connection returns an error instead.
func (c *WSConn) Send(payload any) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close tears the socket down. Idempotent.
func (c *WSConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// writePump drains the send channel onto the socket and keeps the connection
// alive with periodic pings. Runs as a goroutine per connection.
func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(payload); err != nil {
				c.logger.WithError(err).Debug("Write failed, closing connection")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop delivers each inbound text message to handle until the socket
// errors or closes.
func (c *WSConn) readLoop(handle func(raw []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Debug("Read failed")
			}
			return
		}
		handle(raw)
	}
}
